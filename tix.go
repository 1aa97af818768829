// Package tix is the Go API of the tix ticket engine.
//
// A Workspace is an explicit handle on one workspace root; there is no
// process-wide current workspace, so several workspaces can be driven from
// one process. Every method maps to one engine operation. Mutations commit
// exactly once on success and leave no trace on failure.
//
//	ws, err := tix.Open(dir)
//	if err != nil { ... }
//	if _, err := ws.Init(ctx); err != nil { ... }
//	id, err := ws.Add(ctx, "Fix bug", "", tix.PriorityA)
//
// Errors carry a code from internal/errcode; compare with errors.Is against
// the Err* sentinels re-exported here, or map with Code.
package tix

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tixhq/tix/internal/config"
	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/git"
	"github.com/tixhq/tix/internal/history"
	"github.com/tixhq/tix/internal/project"
	"github.com/tixhq/tix/internal/remote"
	"github.com/tixhq/tix/internal/telemetry"
	"github.com/tixhq/tix/internal/ticket"
	"github.com/tixhq/tix/internal/types"
	"github.com/tixhq/tix/internal/validation"
	"github.com/tixhq/tix/internal/workspace"
)

// Core types
type (
	Ticket      = types.Ticket
	Status      = types.Status
	Priority    = types.Priority
	Field       = types.Field
	Filter      = types.TicketFilter
	Remote      = types.Remote
	Commit      = types.Commit
	ConfigEntry = config.Entry
	Settings    = config.Settings
	Position    = history.Position
	LogOptions  = history.LogOptions

	InitResult   = workspace.InitResult
	SwitchResult = project.SwitchResult
	Code         = errcode.Code
)

// Status constants
const (
	StatusBacklog = types.StatusBacklog
	StatusTodo    = types.StatusTodo
	StatusDoing   = types.StatusDoing
	StatusDone    = types.StatusDone
)

// Priority constants
const (
	PriorityUnspecified = types.PriorityUnspecified
	PriorityA           = types.PriorityA
	PriorityB           = types.PriorityB
	PriorityC           = types.PriorityC
	PriorityZ           = types.PriorityZ
)

// Field constants
const (
	FieldTitle    = types.FieldTitle
	FieldBody     = types.FieldBody
	FieldStatus   = types.FieldStatus
	FieldPriority = types.FieldPriority
)

// Result constants
const (
	Initialized   = workspace.Initialized
	Reinitialized = workspace.Reinitialized
	Switched      = project.Switched
	Created       = project.Created
)

// Error sentinels for errors.Is.
var (
	ErrNotARepository       = errcode.ErrNotARepository
	ErrCommandFailed        = errcode.ErrCommandFailed
	ErrInvalidKey           = errcode.ErrInvalidKey
	ErrKeyNotFound          = errcode.ErrKeyNotFound
	ErrRemoteAlreadyExists  = errcode.ErrRemoteAlreadyExists
	ErrRemoteInvalidName    = errcode.ErrRemoteInvalidName
	ErrRemoteNotARepository = errcode.ErrRemoteNotARepository
	ErrProjectNotFound      = errcode.ErrProjectNotFound
	ErrProjectAlreadyExists = errcode.ErrProjectAlreadyExists
	ErrAlreadyOnProject     = errcode.ErrAlreadyOnProject
	ErrSwitchFailed         = errcode.ErrSwitchFailed
	ErrInvalidPriority      = errcode.ErrInvalidPriority
	ErrInvalidTitle         = errcode.ErrInvalidTitle
	ErrInvalidTicketID      = errcode.ErrInvalidTicketID
	ErrTicketNotFound       = errcode.ErrTicketNotFound
	ErrInvalidStatus        = errcode.ErrInvalidStatus
	ErrNothingToUndo        = errcode.ErrNothingToUndo
	ErrNothingToRedo        = errcode.ErrNothingToRedo
)

// CodeOf maps err onto the integer taxonomy used at the C boundary.
func CodeOf(err error) Code { return errcode.Of(err) }

// Workspace drives one workspace root. Its methods are safe to call from
// several goroutines; calls are serialized.
type Workspace struct {
	mu       sync.Mutex
	root     string
	settings config.Settings

	ws       *workspace.Workspace
	tickets  *ticket.Store
	config   *config.Store
	remotes  *remote.Registry
	projects *project.Manager
	history  *history.Manager
}

type options struct {
	settings   *config.Settings
	newRepo    func(dir string, s config.Settings) git.Repo
	ticketOpts []ticket.Option
}

// Option configures Open.
type Option func(*options)

// WithSettings uses s instead of loading settings from the environment
// and the user config file.
func WithSettings(s Settings) Option {
	return func(o *options) { o.settings = &s }
}

// WithRepo replaces the git CLI with another implementation, typically
// git.NewMemory in tests.
func WithRepo(newRepo func(dir string) git.Repo) Option {
	return func(o *options) {
		o.newRepo = func(dir string, _ config.Settings) git.Repo { return newRepo(dir) }
	}
}

// WithClock sets the time source for ticket ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.ticketOpts = append(o.ticketOpts, ticket.WithClock(now)) }
}

func cliRepo(dir string, s config.Settings) git.Repo {
	return git.NewCLI(dir, git.WithBinary(s.GitBinary), git.WithRetries(s.GitRetries))
}

// Open binds a Workspace to root. It does not touch the disk; call Init or
// Clone to create the workspace, or use the handle directly on an existing
// one.
func Open(root string, opts ...Option) (*Workspace, error) {
	o := options{newRepo: cliRepo}
	for _, opt := range opts {
		opt(&o)
	}
	if root == "" {
		return nil, errcode.New(errcode.NotARepository, "open", "empty workspace root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, workspace.FSError("open", err)
	}

	var settings config.Settings
	if o.settings != nil {
		settings = *o.settings
	} else {
		settings, err = config.LoadSettings(config.New())
		if err != nil {
			return nil, errcode.Wrap(errcode.FileSystemError, "open", fmt.Errorf("load settings: %w", err))
		}
	}
	if settings.Debug {
		debug.SetVerbose(true)
	}

	ws := workspace.New(abs, o.newRepo(workspace.Dir(abs), settings),
		workspace.WithDefaultProject(settings.DefaultProject),
		workspace.WithActor(settings.Actor),
	)
	w := &Workspace{
		root:     abs,
		settings: settings,
		ws:       ws,
		tickets:  ticket.NewStore(ws, o.ticketOpts...),
		config:   config.NewStore(ws),
		remotes:  remote.NewRegistry(ws),
		projects: project.NewManager(ws),
		history:  history.NewManager(ws),
	}
	ws.SetAuthor(w.author)
	return w, nil
}

// author prefers the workspace's user.name/user.email and falls back to
// the configured actor.
func (w *Workspace) author(ctx context.Context) git.Signature {
	name, _ := w.config.Get(ctx, config.UserName)
	email, _ := w.config.Get(ctx, config.UserEmail)
	if name == "" {
		name = w.settings.Actor
	}
	return git.Signature{Name: name, Email: email}
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Settings returns the runtime settings the workspace was opened with.
func (w *Workspace) Settings() Settings { return w.settings }

func (w *Workspace) do(ctx context.Context, name string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ctx, op := telemetry.Start(ctx, name, attrs...)
	err := fn(ctx)
	op.End(err)
	if err != nil {
		debug.Logf("%s: %v\n", name, err)
	}
	return err
}

// syncRemotes brings git's remote configuration in line with the registry
// of the checked-out state. Failures are logged, not returned: the
// operation that triggered the sync has already succeeded.
func (w *Workspace) syncRemotes(ctx context.Context) {
	if err := w.remotes.Sync(ctx); err != nil {
		debug.Logf("remote sync: %v\n", err)
	}
}

// Init creates the workspace, or reports Reinitialized for an existing one.
func (w *Workspace) Init(ctx context.Context) (InitResult, error) {
	var res InitResult
	err := w.do(ctx, "init", func(ctx context.Context) (err error) {
		res, err = w.ws.Init(ctx)
		return err
	})
	return res, err
}

// Clone creates the workspace by cloning url and records it as remote
// "origin".
func (w *Workspace) Clone(ctx context.Context, url string) error {
	return w.do(ctx, "clone", func(ctx context.Context) error {
		if err := w.ws.Clone(ctx, url); err != nil {
			return err
		}
		return w.remotes.Adopt(ctx, "origin", url)
	}, attribute.String("tix.url", url))
}

// ConfigSet stores value under key and commits.
func (w *Workspace) ConfigSet(ctx context.Context, key, value string) error {
	return w.do(ctx, "config.set", func(ctx context.Context) error {
		return w.config.Set(ctx, key, value)
	}, attribute.String("tix.key", key))
}

// ConfigGet returns the value of key or its default.
func (w *Workspace) ConfigGet(ctx context.Context, key string) (string, error) {
	var v string
	err := w.do(ctx, "config.get", func(ctx context.Context) (err error) {
		v, err = w.config.Get(ctx, key)
		return err
	}, attribute.String("tix.key", key))
	return v, err
}

// ConfigList returns every recognized key with its effective value.
func (w *Workspace) ConfigList(ctx context.Context) ([]ConfigEntry, error) {
	var entries []ConfigEntry
	err := w.do(ctx, "config.list", func(ctx context.Context) (err error) {
		entries, err = w.config.All(ctx)
		return err
	})
	return entries, err
}

// Add creates a ticket in the backlog and returns its id.
func (w *Workspace) Add(ctx context.Context, title, body string, priority Priority) (string, error) {
	var id string
	err := w.do(ctx, "ticket.add", func(ctx context.Context) (err error) {
		id, err = w.tickets.Add(ctx, title, body, priority)
		return err
	})
	return id, err
}

// Move sets the status of ticket id from its code (b, t, w, d).
func (w *Workspace) Move(ctx context.Context, id string, status byte) error {
	return w.do(ctx, "ticket.move", func(ctx context.Context) error {
		return w.tickets.Move(ctx, id, status)
	}, attribute.String("tix.ticket", id))
}

// Amend updates the supplied fields of ticket id. Empty strings and
// PriorityUnspecified leave a field unchanged.
func (w *Workspace) Amend(ctx context.Context, id, title, body string, priority Priority) error {
	return w.do(ctx, "ticket.amend", func(ctx context.Context) error {
		return w.tickets.Amend(ctx, id, title, body, priority)
	}, attribute.String("tix.ticket", id))
}

// List returns the tickets whose status code is in statuses and whose
// priority letter is in priorities, in creation order. Empty strings
// match everything.
func (w *Workspace) List(ctx context.Context, statuses, priorities string) ([]*Ticket, error) {
	var out []*Ticket
	err := w.do(ctx, "ticket.list", func(ctx context.Context) error {
		f, err := ParseFilter(statuses, priorities)
		if err != nil {
			return err
		}
		out, err = w.tickets.List(ctx, f)
		return err
	})
	return out, err
}

// ParseFilter builds a Filter from status codes and priority letters.
func ParseFilter(statuses, priorities string) (Filter, error) {
	ss, err := validation.ParseStatusFilter(statuses)
	if err != nil {
		return Filter{}, err
	}
	ps, err := validation.ParsePriorityFilter(priorities)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Statuses: ss, Priorities: ps}, nil
}

// Show returns a copy of ticket id.
func (w *Workspace) Show(ctx context.Context, id string) (*Ticket, error) {
	var t *Ticket
	err := w.do(ctx, "ticket.show", func(ctx context.Context) (err error) {
		t, err = w.tickets.Show(ctx, id)
		return err
	}, attribute.String("tix.ticket", id))
	return t, err
}

// Field returns one projected field of ticket id.
func (w *Workspace) Field(ctx context.Context, id string, field Field) (string, error) {
	var v string
	err := w.do(ctx, "ticket.field", func(ctx context.Context) (err error) {
		v, err = w.tickets.Field(ctx, id, field)
		return err
	}, attribute.String("tix.ticket", id), attribute.String("tix.field", string(field)))
	return v, err
}

// RemoteAdd registers a new remote.
func (w *Workspace) RemoteAdd(ctx context.Context, name, url string) error {
	return w.do(ctx, "remote.add", func(ctx context.Context) error {
		return w.remotes.Add(ctx, name, url)
	}, attribute.String("tix.remote", name))
}

// RemoteList returns the registered remotes sorted by name.
func (w *Workspace) RemoteList(ctx context.Context) ([]Remote, error) {
	var out []Remote
	err := w.do(ctx, "remote.list", func(ctx context.Context) (err error) {
		out, err = w.remotes.List(ctx)
		return err
	})
	return out, err
}

// Switch checks out project name, creating it when create is set.
func (w *Workspace) Switch(ctx context.Context, name string, create bool) (SwitchResult, error) {
	var res SwitchResult
	err := w.do(ctx, "project.switch", func(ctx context.Context) (err error) {
		res, err = w.projects.Switch(ctx, name, create)
		if err == nil {
			w.syncRemotes(ctx)
		}
		return err
	}, attribute.String("tix.project", name))
	return res, err
}

// Projects returns every project, the current one first.
func (w *Workspace) Projects(ctx context.Context) ([]string, error) {
	var out []string
	err := w.do(ctx, "project.list", func(ctx context.Context) (err error) {
		out, err = w.projects.List(ctx)
		return err
	})
	return out, err
}

// CurrentProject returns the checked-out project.
func (w *Workspace) CurrentProject(ctx context.Context) (string, error) {
	var name string
	err := w.do(ctx, "project.current", func(ctx context.Context) (err error) {
		name, err = w.projects.Current(ctx)
		return err
	})
	return name, err
}

// Undo reverts the current project to the commit before the cursor.
func (w *Workspace) Undo(ctx context.Context) (Position, error) {
	var pos Position
	err := w.do(ctx, "history.undo", func(ctx context.Context) (err error) {
		pos, err = w.history.Undo(ctx)
		if err == nil {
			w.syncRemotes(ctx)
		}
		return err
	})
	return pos, err
}

// Redo re-applies the commit after the cursor.
func (w *Workspace) Redo(ctx context.Context) (Position, error) {
	var pos Position
	err := w.do(ctx, "history.redo", func(ctx context.Context) (err error) {
		pos, err = w.history.Redo(ctx)
		if err == nil {
			w.syncRemotes(ctx)
		}
		return err
	})
	return pos, err
}

// Position reports the history cursor of the current project.
func (w *Workspace) Position(ctx context.Context) (Position, error) {
	var pos Position
	err := w.do(ctx, "history.position", func(ctx context.Context) (err error) {
		pos, err = w.history.Position(ctx)
		return err
	})
	return pos, err
}

// Log streams the history of the current project, most recent first.
//
// Only option checking happens inside the call. The sequence reads git
// lazily, after Log has returned and without holding the workspace lock,
// so other Workspace methods may be called from the loop body. Iteration
// is traced as its own "history.log.read" operation that ends when the
// loop stops.
func (w *Workspace) Log(ctx context.Context, opts LogOptions) (iter.Seq2[Commit, error], error) {
	var seq iter.Seq2[Commit, error]
	err := w.do(ctx, "history.log", func(ctx context.Context) (err error) {
		seq, err = w.history.Log(ctx, opts)
		return err
	}, attribute.Int("tix.limit", opts.Limit))
	if err != nil {
		return nil, err
	}
	return func(yield func(Commit, error) bool) {
		_, op := telemetry.Start(ctx, "history.log.read")
		var failed error
		defer func() { op.End(failed) }()
		for c, err := range seq {
			if err != nil {
				failed = err
			}
			if !yield(c, err) || err != nil {
				return
			}
		}
	}, nil
}
