// Package history implements linear undo and redo over the commits of the
// current project.
//
// Each project keeps an ordered list of commit hashes (oldest first) and a
// cursor into it, stored in local/history.json outside version control.
// HEAD always equals commits[cursor]; when it does not (an out-of-band
// git operation), the list is re-derived from the first-parent log.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/natefinch/atomic"

	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/git"
	"github.com/tixhq/tix/internal/timeparsing"
	"github.com/tixhq/tix/internal/types"
	"github.com/tixhq/tix/internal/workspace"
)

// FileName is the state file inside the workspace's local directory.
const FileName = "history.json"

type state struct {
	Projects map[string]*track `json:"projects"`
}

type track struct {
	Commits []string `json:"commits"`
	Cursor  int      `json:"cursor"`
}

func (t *track) head() string {
	if t == nil || t.Cursor < 0 || t.Cursor >= len(t.Commits) {
		return ""
	}
	return t.Commits[t.Cursor]
}

// Position describes where the cursor stands.
type Position struct {
	Project string
	Cursor  int // index of HEAD in the project's commit list
	Tip     int // index of the newest redoable commit
}

// CanUndo reports whether Undo would succeed.
func (p Position) CanUndo() bool { return p.Cursor > 0 }

// CanRedo reports whether Redo would succeed.
func (p Position) CanRedo() bool { return p.Cursor < p.Tip }

// LogOptions selects history entries. Since accepts anything
// timeparsing.ParseSince understands.
type LogOptions struct {
	Limit int
	Since string
}

// Manager tracks undo/redo state for one workspace.
type Manager struct {
	ws  *workspace.Workspace
	now func() time.Time
}

// NewManager returns the history manager of ws and subscribes it to the
// workspace's commits.
func NewManager(ws *workspace.Workspace) *Manager {
	m := &Manager{ws: ws, now: time.Now}
	ws.OnCommit(m.Record)
	return m
}

func (m *Manager) path() string {
	return m.ws.LocalPath(FileName)
}

func (m *Manager) load() (*state, error) {
	st := &state{Projects: map[string]*track{}}
	data, err := os.ReadFile(m.path())
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, workspace.FSError("history.load", err)
	}
	if err := json.Unmarshal(data, st); err != nil {
		// A damaged state file only costs the redo tail.
		debug.Logf("history: discarding unreadable %s: %v\n", FileName, err)
		return &state{Projects: map[string]*track{}}, nil
	}
	if st.Projects == nil {
		st.Projects = map[string]*track{}
	}
	return st, nil
}

func (m *Manager) save(st *state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errcode.Wrap(errcode.UnknownError, "history.save", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path()), 0o750); err != nil {
		return workspace.FSError("history.save", err)
	}
	return workspace.FSError("history.save", atomic.WriteFile(m.path(), bytes.NewReader(data)))
}

// bootstrap derives a track from the first-parent log of HEAD.
func (m *Manager) bootstrap(ctx context.Context) (*track, error) {
	log, err := git.Collect(m.ws.Repo().Log(ctx, git.LogOptions{}))
	if err != nil {
		return nil, errcode.Wrap(errcode.CommandFailed, "history.bootstrap", err)
	}
	t := &track{Commits: make([]string, 0, len(log))}
	for i := len(log) - 1; i >= 0; i-- {
		t.Commits = append(t.Commits, log[i].Hash)
	}
	t.Cursor = len(t.Commits) - 1
	debug.Logf("history: bootstrapped %d commits\n", len(t.Commits))
	return t, nil
}

// current returns the consistent track of the checked-out project.
func (m *Manager) current(ctx context.Context) (string, *state, *track, error) {
	if err := m.ws.Require(ctx); err != nil {
		return "", nil, nil, err
	}
	repo := m.ws.Repo()
	project, err := repo.CurrentBranch(ctx)
	if err != nil {
		return "", nil, nil, errcode.Wrap(errcode.CommandFailed, "history", err)
	}
	head, err := repo.Head(ctx)
	if err != nil {
		return "", nil, nil, errcode.Wrap(errcode.CommandFailed, "history", err)
	}
	st, err := m.load()
	if err != nil {
		return "", nil, nil, err
	}

	t := st.Projects[project]
	if t.head() == head {
		return project, st, t, nil
	}
	if t != nil {
		if i := slices.Index(t.Commits, head); i >= 0 {
			t.Cursor = i
			return project, st, t, m.save(st)
		}
	}
	if t, err = m.bootstrap(ctx); err != nil {
		return "", nil, nil, err
	}
	st.Projects[project] = t
	return project, st, t, m.save(st)
}

// Record appends hash after the cursor, dropping any redo tail. It is
// registered as a workspace commit hook.
func (m *Manager) Record(ctx context.Context, hash string) error {
	repo := m.ws.Repo()
	project, err := repo.CurrentBranch(ctx)
	if err != nil {
		return errcode.Wrap(errcode.CommandFailed, "history.record", err)
	}
	st, err := m.load()
	if err != nil {
		return err
	}

	// The new commit's parent must be the recorded HEAD; otherwise the
	// branch moved behind our back and the track is rebuilt.
	recent, err := git.Collect(repo.Log(ctx, git.LogOptions{Limit: 2}))
	if err != nil {
		return errcode.Wrap(errcode.CommandFailed, "history.record", err)
	}
	t := st.Projects[project]
	if t != nil && len(recent) == 2 && recent[0].Hash == hash && recent[1].Hash == t.head() {
		t.Commits = append(t.Commits[:t.Cursor+1], hash)
		t.Cursor = len(t.Commits) - 1
	} else {
		if t, err = m.bootstrap(ctx); err != nil {
			return err
		}
		st.Projects[project] = t
	}
	return m.save(st)
}

// Undo moves the current project back one commit.
func (m *Manager) Undo(ctx context.Context) (Position, error) {
	project, st, t, err := m.current(ctx)
	if err != nil {
		return Position{}, err
	}
	if t.Cursor == 0 {
		return position(project, t), errcode.New(errcode.NothingToUndo, "undo", "nothing to undo")
	}
	return m.moveTo(ctx, "undo", project, st, t, t.Cursor-1)
}

// Redo re-applies the commit after the cursor.
func (m *Manager) Redo(ctx context.Context) (Position, error) {
	project, st, t, err := m.current(ctx)
	if err != nil {
		return Position{}, err
	}
	if t.Cursor >= len(t.Commits)-1 {
		return position(project, t), errcode.New(errcode.NothingToRedo, "redo", "nothing to redo")
	}
	return m.moveTo(ctx, "redo", project, st, t, t.Cursor+1)
}

func (m *Manager) moveTo(ctx context.Context, op, project string, st *state, t *track, cursor int) (Position, error) {
	target := t.Commits[cursor]
	if err := m.ws.Repo().Reset(ctx, target); err != nil {
		m.ws.Invalidate()
		return position(project, t), errcode.Wrap(errcode.CommandFailed, op, err)
	}
	m.ws.Invalidate()
	t.Cursor = cursor
	if err := m.save(st); err != nil {
		return position(project, t), err
	}
	m.ws.LogEvent(op, "", target)
	return position(project, t), nil
}

func position(project string, t *track) Position {
	return Position{Project: project, Cursor: t.Cursor, Tip: len(t.Commits) - 1}
}

// Position reports the cursor of the current project.
func (m *Manager) Position(ctx context.Context) (Position, error) {
	project, _, t, err := m.current(ctx)
	if err != nil {
		return Position{}, err
	}
	return position(project, t), nil
}

// Log streams the current project's history, most recent first. The
// sequence runs git lazily and cannot be restarted without calling Log
// again.
func (m *Manager) Log(ctx context.Context, opts LogOptions) (iter.Seq2[types.Commit, error], error) {
	if err := m.ws.Require(ctx); err != nil {
		return nil, err
	}
	lo := git.LogOptions{Limit: opts.Limit}
	if opts.Limit < 0 {
		lo.Limit = 0
	}
	if opts.Since != "" {
		since, err := timeparsing.ParseSince(opts.Since, m.now())
		if err != nil {
			return nil, errcode.Wrap(errcode.CommandFailed, "log", err)
		}
		lo.Since = since
	}
	seq := m.ws.Repo().Log(ctx, lo)
	return func(yield func(types.Commit, error) bool) {
		for c, err := range seq {
			if err != nil {
				yield(c, errcode.Wrap(errcode.CommandFailed, "log", err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}, nil
}
