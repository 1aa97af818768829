// Package workspace owns the on-disk tix workspace: the .tix directory,
// its git repository and the layout files inside it. Every mutation goes
// through Mutate, which turns a set of file writes into exactly one commit
// or, on failure, into nothing at all.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/git"
)

// Layout names, relative to the workspace directory.
const (
	DirName     = ".tix"
	TicketsDir  = "tickets"
	LocalDir    = "local"
	ConfigFile  = "config.yaml"
	RemotesFile = "remotes.toml"
	KeepFile    = ".keep"
	IgnoreFile  = ".gitignore"
)

// DefaultProject is the branch a new workspace starts on.
const DefaultProject = "main"

// InitResult distinguishes a fresh workspace from an existing one.
type InitResult int

const (
	Initialized   InitResult = 0
	Reinitialized InitResult = 1
)

func (r InitResult) String() string {
	if r == Reinitialized {
		return "reinitialized"
	}
	return "initialized"
}

// layoutFile is a tracked file every workspace must contain.
type layoutFile struct {
	rel     string
	content string
}

var layout = []layoutFile{
	{IgnoreFile, LocalDir + "/\n"},
	{filepath.Join(TicketsDir, KeepFile), ""},
	{ConfigFile, "# tix workspace configuration\n"},
	{RemotesFile, "# tix remotes\n"},
}

// CommitHook runs after every successful Mutate with the new head.
type CommitHook func(ctx context.Context, hash string) error

// Workspace is an explicit handle on one workspace root. It is not safe
// for concurrent use; the engine facade serializes calls.
type Workspace struct {
	root    string
	dir     string
	repo    git.Repo
	project string
	actor   string
	author  func(ctx context.Context) git.Signature

	hookMu sync.Mutex
	hooks  []CommitHook

	gen atomic.Uint64
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithDefaultProject sets the branch Init creates.
func WithDefaultProject(name string) Option {
	return func(w *Workspace) {
		if name != "" {
			w.project = name
		}
	}
}

// WithActor names who is recorded in the event log.
func WithActor(actor string) Option {
	return func(w *Workspace) { w.actor = actor }
}

// New binds a workspace to root. repo must be bound to Dir(root).
func New(root string, repo git.Repo, opts ...Option) *Workspace {
	w := &Workspace{
		root:    root,
		dir:     Dir(root),
		repo:    repo,
		project: DefaultProject,
		author:  func(context.Context) git.Signature { return git.Signature{} },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the workspace directory for root.
func Dir(root string) string {
	return filepath.Join(root, DirName)
}

func (w *Workspace) Root() string   { return w.root }
func (w *Workspace) Dir() string    { return w.dir }
func (w *Workspace) Repo() git.Repo { return w.repo }

// Path joins rel onto the workspace directory.
func (w *Workspace) Path(rel ...string) string {
	return filepath.Join(append([]string{w.dir}, rel...)...)
}

// LocalPath returns a path inside the untracked local directory.
func (w *Workspace) LocalPath(name string) string {
	return w.Path(LocalDir, name)
}

// SetAuthor installs the commit author resolver.
func (w *Workspace) SetAuthor(fn func(ctx context.Context) git.Signature) {
	if fn != nil {
		w.author = fn
	}
}

// OnCommit registers a hook run after each successful Mutate.
func (w *Workspace) OnCommit(hook CommitHook) {
	w.hookMu.Lock()
	defer w.hookMu.Unlock()
	w.hooks = append(w.hooks, hook)
}

// Generation changes whenever the work tree may have changed. Read models
// compare it against the value they loaded at.
func (w *Workspace) Generation() uint64 { return w.gen.Load() }

// Invalidate bumps the generation.
func (w *Workspace) Invalidate() { w.gen.Add(1) }

// LogEvent records a mutation in the local event log.
func (w *Workspace) LogEvent(event, ticketID, details string) {
	debug.LogEvent(w.Path(LocalDir), event, ticketID, w.actor, details)
}

// Init creates the workspace, or repairs and reports an existing one.
func (w *Workspace) Init(ctx context.Context) (InitResult, error) {
	const op = "init"

	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return 0, creationError(op, err)
	}

	fresh := !w.repo.IsRepo(ctx)
	if fresh {
		debug.Logf("init: creating repository in %s on %s\n", w.dir, w.project)
		if err := w.repo.Init(ctx, w.project); err != nil {
			return 0, errcode.Wrap(errcode.WorkspaceCreationFailed, op, err)
		}
	}

	var missing []layoutFile
	for _, f := range layout {
		if _, err := os.Stat(w.Path(f.rel)); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, f)
		} else if err != nil {
			return 0, creationError(op, err)
		}
	}
	_, headErr := w.repo.Head(ctx)
	if !fresh && len(missing) == 0 && headErr == nil {
		return Reinitialized, nil
	}

	for _, f := range missing {
		if err := writeFile(w.Path(f.rel), []byte(f.content)); err != nil {
			return 0, creationError(op, err)
		}
	}
	msg := "init"
	if !fresh {
		msg = "init: repair workspace layout"
	}
	if _, err := w.repo.Commit(ctx, msg, w.author(ctx)); err != nil {
		return 0, errcode.Wrap(errcode.WorkspaceCreationFailed, op, err)
	}
	w.Invalidate()
	w.LogEvent("init", "", msg)

	if fresh {
		return Initialized, nil
	}
	return Reinitialized, nil
}

func creationError(op string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return errcode.Wrap(errcode.AccessDenied, op, err)
	}
	return errcode.Wrap(errcode.WorkspaceCreationFailed, op, err)
}

// Clone materializes the workspace from url. The clone must carry a tix
// layout; otherwise it is removed again.
func (w *Workspace) Clone(ctx context.Context, url string) error {
	const op = "clone"

	if _, err := os.Stat(w.dir); err == nil {
		return errcode.New(errcode.WorkspaceCreationFailed, op, "workspace already exists at %s", w.dir)
	}
	if err := os.MkdirAll(w.root, 0o750); err != nil {
		return creationError(op, err)
	}

	debug.Logf("clone: %s -> %s\n", url, w.dir)
	if err := w.repo.Clone(ctx, url); err != nil {
		_ = os.RemoveAll(w.dir)
		if errors.Is(err, git.ErrRemoteNotARepo) {
			return errcode.Wrap(errcode.RemoteNotARepository, op, err)
		}
		return errcode.Wrap(errcode.CommandFailed, op, err)
	}
	if err := w.Require(ctx); err != nil {
		_ = os.RemoveAll(w.dir)
		return errcode.New(errcode.RemoteNotARepository, op, "%s is not a tix workspace", url)
	}
	w.Invalidate()
	w.LogEvent("clone", "", url)
	return nil
}

// Require fails NotARepository unless the workspace is initialized.
func (w *Workspace) Require(ctx context.Context) error {
	info, err := os.Stat(w.Path(TicketsDir))
	if err != nil || !info.IsDir() {
		return errcode.New(errcode.NotARepository, "workspace", "no tix workspace at %s", w.root)
	}
	if !w.repo.IsRepo(ctx) {
		return errcode.New(errcode.NotARepository, "workspace", "%s is not a git repository", w.dir)
	}
	return nil
}

// Mutate runs fn inside a transaction and commits its writes as one
// commit with message. On any failure every file fn wrote is restored and
// the repository is reset to the pre-call head. Returns the new head.
func (w *Workspace) Mutate(ctx context.Context, message string, fn func(tx *Tx) error) (string, error) {
	if err := w.Require(ctx); err != nil {
		return "", err
	}
	before, _ := w.repo.Head(ctx)

	tx := &Tx{ws: w, backups: make(map[string]backup)}
	if err := fn(tx); err != nil {
		if rerr := tx.rollback(); rerr != nil {
			debug.Logf("mutate: rollback after %v failed: %v\n", err, rerr)
		}
		return "", err
	}

	hash, err := w.repo.Commit(ctx, message, w.author(ctx))
	if err != nil {
		if rerr := tx.rollback(); rerr != nil {
			debug.Logf("mutate: rollback failed: %v\n", rerr)
		}
		if before != "" {
			if rerr := w.repo.Reset(ctx, before); rerr != nil {
				debug.Logf("mutate: reset to %s failed: %v\n", before, rerr)
			}
		}
		w.Invalidate()
		return "", errcode.Wrap(errcode.CommandFailed, "commit", err)
	}
	w.Invalidate()
	debug.Logf("mutate: %s -> %s\n", firstLine(message), hash)

	w.hookMu.Lock()
	hooks := append([]CommitHook(nil), w.hooks...)
	w.hookMu.Unlock()
	for _, hook := range hooks {
		if err := hook(ctx, hash); err != nil {
			debug.Logf("mutate: commit hook: %v\n", err)
		}
	}
	return hash, nil
}

// FSError maps a filesystem error onto AccessDenied or FileSystemError.
func FSError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return errcode.Wrap(errcode.AccessDenied, op, err)
	}
	return errcode.Wrap(errcode.FileSystemError, op, err)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (w *Workspace) String() string {
	return fmt.Sprintf("workspace(%s)", w.root)
}
