package git

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tixhq/tix/internal/types"
)

// Memory is a Repo that keeps history in process memory while still
// reading and writing the real work tree on disk. Commits snapshot every
// non-ignored file under Dir; Reset and Checkout write snapshots back.
//
// It exists so engine logic can be tested without a git binary.
type Memory struct {
	dir string
	now func() time.Time

	mu       sync.Mutex
	inited   bool
	commits  map[string]*memCommit
	branches map[string]string // name -> commit hash ("" while unborn)
	head     string            // current branch name
	remotes  map[string]string
	seq      int

	// FailCommit, when non-nil, makes the next Commit return it without
	// recording anything. It is cleared after use.
	FailCommit error
}

type memCommit struct {
	hash    string
	parent  string
	tree    map[string][]byte
	subject string
	author  Signature
	when    time.Time
}

// NewMemory returns an in-memory Repo for the work tree at dir.
func NewMemory(dir string) *Memory {
	return &Memory{
		dir:      dir,
		now:      time.Now,
		commits:  make(map[string]*memCommit),
		branches: make(map[string]string),
		remotes:  make(map[string]string),
	}
}

// SetClock replaces the commit timestamp source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Dir() string { return m.dir }

func (m *Memory) IsRepo(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return false
	}
	info, err := os.Stat(m.dir)
	return err == nil && info.IsDir()
}

func (m *Memory) Init(ctx context.Context, branch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := os.Stat(m.dir); err != nil {
		return err
	}
	m.inited = true
	m.head = branch
	if _, ok := m.branches[branch]; !ok {
		m.branches[branch] = ""
	}
	return nil
}

func (m *Memory) Clone(ctx context.Context, url string) error {
	return fmt.Errorf("%w: %s", ErrCloneUnsupported, url)
}

func (m *Memory) Commit(ctx context.Context, message string, author Signature) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return "", ErrNotRepository
	}
	if err := m.FailCommit; err != nil {
		m.FailCommit = nil
		return "", err
	}

	tree, err := m.snapshot()
	if err != nil {
		return "", err
	}
	m.seq++
	parent := m.branches[m.head]
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d", parent, message, m.seq)
	c := &memCommit{
		hash:    hex.EncodeToString(h.Sum(nil)),
		parent:  parent,
		tree:    tree,
		subject: firstLine(message),
		author:  author.OrDefault(),
		when:    m.now(),
	}
	m.commits[c.hash] = c
	m.branches[m.head] = c.hash
	return c.hash, nil
}

func (m *Memory) Head(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return "", ErrNotRepository
	}
	hash := m.branches[m.head]
	if hash == "" {
		return "", fmt.Errorf("%w: HEAD", ErrUnknownRevision)
	}
	return hash, nil
}

func (m *Memory) CurrentBranch(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return "", ErrNotRepository
	}
	return m.head, nil
}

func (m *Memory) Branches(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return nil, ErrNotRepository
	}
	names := make([]string, 0, len(m.branches))
	for name := range m.branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) CreateBranch(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return ErrNotRepository
	}
	if _, ok := m.branches[name]; ok {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	}
	m.branches[name] = m.branches[m.head]
	return nil
}

func (m *Memory) Checkout(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.branches[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}
	if hash != "" {
		if err := m.restore(m.commits[hash].tree); err != nil {
			return err
		}
	}
	m.head = name
	return nil
}

func (m *Memory) Reset(ctx context.Context, rev string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash := rev
	if b, ok := m.branches[rev]; ok {
		hash = b
	}
	c, ok := m.commits[hash]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRevision, rev)
	}
	if err := m.restore(c.tree); err != nil {
		return err
	}
	m.branches[m.head] = hash
	return nil
}

func (m *Memory) Log(ctx context.Context, opts LogOptions) iter.Seq2[types.Commit, error] {
	return func(yield func(types.Commit, error) bool) {
		m.mu.Lock()
		hash := m.branches[m.head]
		var chain []*memCommit
		for hash != "" {
			c := m.commits[hash]
			chain = append(chain, c)
			hash = c.parent
		}
		m.mu.Unlock()

		n := 0
		for _, c := range chain {
			if err := ctx.Err(); err != nil {
				yield(types.Commit{}, err)
				return
			}
			if !opts.Since.IsZero() && c.when.Before(opts.Since) {
				continue
			}
			if opts.Limit > 0 && n >= opts.Limit {
				return
			}
			n++
			commit := types.Commit{
				Hash:    c.hash,
				Author:  c.author.Name,
				Email:   c.author.Email,
				Date:    c.when,
				Subject: c.subject,
			}
			if !yield(commit, nil) {
				return
			}
		}
	}
}

func (m *Memory) AddRemote(ctx context.Context, name, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return ErrNotRepository
	}
	m.remotes[name] = url
	return nil
}

func (m *Memory) Remotes(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.remotes))
	for k, v := range m.remotes {
		out[k] = v
	}
	return out, nil
}

// ignored returns the top-level names listed in .gitignore. Only the
// simple "name" and "name/" forms are honoured.
func (m *Memory) ignored() map[string]bool {
	ign := map[string]bool{".git": true}
	data, err := os.ReadFile(filepath.Join(m.dir, ".gitignore"))
	if err != nil {
		return ign
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ign[strings.Trim(line, "/")] = true
	}
	return ign
}

func (m *Memory) walk(fn func(rel, path string) error) error {
	ign := m.ignored()
	return filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(m.dir, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ign[strings.SplitN(rel, "/", 2)[0]] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return fn(rel, path)
	})
}

func (m *Memory) snapshot() (map[string][]byte, error) {
	tree := make(map[string][]byte)
	err := m.walk(func(rel, path string) error {
		data, err := os.ReadFile(path) // #nosec G304 - path is inside the work tree
		if err != nil {
			return err
		}
		tree[rel] = data
		return nil
	})
	return tree, err
}

func (m *Memory) restore(tree map[string][]byte) error {
	var stale []string
	if err := m.walk(func(rel, path string) error {
		if _, ok := tree[rel]; !ok {
			stale = append(stale, path)
		}
		return nil
	}); err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	for rel, data := range tree {
		path := filepath.Join(m.dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return err
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var _ Repo = (*Memory)(nil)
