package ticket

import (
	"context"
	"crypto/rand"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/git"
	"github.com/tixhq/tix/internal/idgen"
	"github.com/tixhq/tix/internal/types"
	"github.com/tixhq/tix/internal/workspace"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *workspace.Workspace, *git.Memory) {
	t.Helper()
	root := t.TempDir()
	repo := git.NewMemory(workspace.Dir(root))
	ws := workspace.New(root, repo)
	_, err := ws.Init(context.Background())
	require.NoError(t, err)
	return NewStore(ws, opts...), ws, repo
}

func commits(t *testing.T, repo git.Repo) []types.Commit {
	t.Helper()
	out, err := git.Collect(repo.Log(context.Background(), git.LogOptions{}))
	require.NoError(t, err)
	return out
}

func TestAddShowRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, repo := newTestStore(t)

	id, err := s.Add(ctx, "Fix bug", "", 'a')
	require.NoError(t, err)
	assert.Len(t, id, 26)

	got, err := s.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Fix bug", got.Title)
	assert.Equal(t, "", got.Body)
	assert.Equal(t, types.PriorityA, got.Priority)
	assert.Equal(t, types.StatusBacklog, got.Status)

	log := commits(t, repo)
	require.Len(t, log, 2)
	assert.Equal(t, "add "+id+": Fix bug", log[0].Subject)

	// A fresh store reads the same ticket back from disk.
	fresh := NewStore(s.ws)
	again, err := fresh.Show(ctx, strings.ToLower(id))
	require.NoError(t, err)
	assert.Equal(t, got.Title, again.Title)
	assert.Equal(t, got.Priority, again.Priority)
	assert.True(t, got.CreatedAt.Equal(again.CreatedAt))
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	s, _, repo := newTestStore(t)

	id, err := s.Add(ctx, "  padded  ", "body", types.PriorityUnspecified)
	require.NoError(t, err)
	got, err := s.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "padded", got.Title)
	assert.Equal(t, types.DefaultPriority, got.Priority)

	tests := []struct {
		name     string
		title    string
		priority types.Priority
		want     error
	}{
		{"empty title", "", 'a', errcode.ErrInvalidTitle},
		{"blank title", "   \t", 'a', errcode.ErrInvalidTitle},
		{"long title", strings.Repeat("x", types.MaxTitleLength+1), 'a', errcode.ErrInvalidTitle},
		{"bad priority", "ok", 'q', errcode.ErrInvalidPriority},
		{"digit priority", "ok", '1', errcode.ErrInvalidPriority},
		{"upper-case priority", "ok", 'A', errcode.ErrInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(ctx, tt.title, "", tt.priority)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, commits(t, repo), 2, "rejected adds must not commit")
}

func TestIDsAreStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	prev := ""
	for i := 0; i < 20; i++ {
		id, err := s.Add(ctx, "ticket", "", 0)
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	s, _, repo := newTestStore(t)
	id, err := s.Add(ctx, "Fix bug", "", 'b')
	require.NoError(t, err)

	require.NoError(t, s.Move(ctx, id, 'w'))
	got, err := s.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDoing, got.Status)
	assert.Equal(t, "move "+id+": backlog -> doing", commits(t, repo)[0].Subject)

	before := len(commits(t, repo))
	for _, bad := range []byte{'x', 'B', 0, 'z'} {
		err := s.Move(ctx, id, bad)
		assert.ErrorIs(t, err, errcode.ErrInvalidStatus, "status %q", bad)
		got, err := s.Show(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.StatusDoing, got.Status)
	}
	assert.Len(t, commits(t, repo), before)

	assert.ErrorIs(t, s.Move(ctx, "not-an-id", 't'), errcode.ErrInvalidTicketID)
	assert.ErrorIs(t, s.Move(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", 't'), errcode.ErrInvalidTicketID)
}

func TestAmend(t *testing.T) {
	ctx := context.Background()
	s, _, repo := newTestStore(t)
	id, err := s.Add(ctx, "Original", "first body", 'c')
	require.NoError(t, err)

	require.NoError(t, s.Amend(ctx, id, "", "second body", 0))
	got, err := s.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
	assert.Equal(t, "second body", got.Body)
	assert.Equal(t, types.PriorityC, got.Priority)

	require.NoError(t, s.Amend(ctx, id, "Renamed", "", 'a'))
	got, err = s.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "second body", got.Body)
	assert.Equal(t, types.PriorityA, got.Priority)
	assert.Equal(t, "amend "+id, commits(t, repo)[0].Subject)

	// Nothing supplied still records one commit.
	before := len(commits(t, repo))
	require.NoError(t, s.Amend(ctx, id, "", "", 0))
	assert.Len(t, commits(t, repo), before+1)

	assert.ErrorIs(t, s.Amend(ctx, id, "  ", "", 0), errcode.ErrInvalidTitle)
	assert.ErrorIs(t, s.Amend(ctx, id, "", "", 'x'), errcode.ErrInvalidPriority)
	assert.ErrorIs(t, s.Amend(ctx, id, "", "", 'Z'), errcode.ErrInvalidPriority)
	assert.ErrorIs(t, s.Amend(ctx, "bogus!", "t", "", 0), errcode.ErrInvalidTicketID)
	assert.ErrorIs(t, s.Amend(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", "t", "", 0), errcode.ErrTicketNotFound)
}

func TestShowAndField(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	id, err := s.Add(ctx, "Title", "Body", 'b')
	require.NoError(t, err)
	require.NoError(t, s.Move(ctx, id, 't'))

	tests := []struct {
		field types.Field
		want  string
	}{
		{types.FieldTitle, "Title"},
		{types.FieldBody, "Body"},
		{types.FieldStatus, "t"},
		{types.FieldPriority, "b"},
	}
	for _, tt := range tests {
		got, err := s.Field(ctx, id, tt.field)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.field)
	}

	_, err = s.Show(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.ErrorIs(t, err, errcode.ErrTicketNotFound)
	_, err = s.Show(ctx, "abc")
	assert.ErrorIs(t, err, errcode.ErrInvalidTicketID)
	_, err = s.Field(ctx, "8ZZZZZZZZZZZZZZZZZZZZZZZZZ", types.FieldTitle)
	assert.ErrorIs(t, err, errcode.ErrInvalidTicketID)

	// Returned tickets never alias the store.
	got, err := s.Show(ctx, id)
	require.NoError(t, err)
	got.Title = "mutated"
	again, err := s.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Title", again.Title)
}

func TestPrefixLookup(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	gen := idgen.NewWithSource(func() time.Time { return at }, rand.Reader)
	s, _, _ := newTestStore(t, WithGenerator(gen))

	a, err := s.Add(ctx, "A", "", 0)
	require.NoError(t, err)
	b, err := s.Add(ctx, "B", "", 0)
	require.NoError(t, err)

	// Same millisecond: both share the 10-character timestamp prefix.
	_, err = s.Show(ctx, a[:10])
	assert.ErrorIs(t, err, errcode.ErrInvalidTicketID, "ambiguous prefix")

	// The full ids differ somewhere after the timestamp.
	n := 10
	for a[:n] == b[:n] {
		n++
	}
	got, err := s.Show(ctx, strings.ToLower(b[:n+1]))
	require.NoError(t, err)
	assert.Equal(t, b, got.ID)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	type seed struct {
		title    string
		priority types.Priority
		status   byte
	}
	seeds := []seed{
		{"one", 'a', 'b'},
		{"two", 'b', 't'},
		{"three", 'a', 'w'},
		{"four", 'z', 'd'},
		{"five", 'c', 't'},
	}
	var ids []string
	for _, sd := range seeds {
		id, err := s.Add(ctx, sd.title, "", sd.priority)
		require.NoError(t, err)
		if sd.status != 'b' {
			require.NoError(t, s.Move(ctx, id, sd.status))
		}
		ids = append(ids, id)
	}

	titles := func(ts []*types.Ticket) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.Title)
		}
		return out
	}

	tests := []struct {
		name   string
		filter types.TicketFilter
		want   []string
	}{
		{"all", types.TicketFilter{}, []string{"one", "two", "three", "four", "five"}},
		{"backlog or todo", types.TicketFilter{Statuses: []types.Status{types.StatusBacklog, types.StatusTodo}}, []string{"one", "two", "five"}},
		{"priority a", types.TicketFilter{Priorities: []types.Priority{types.PriorityA}}, []string{"one", "three"}},
		{"todo and c", types.TicketFilter{Statuses: []types.Status{types.StatusTodo}, Priorities: []types.Priority{types.PriorityC}}, []string{"five"}},
		{"nothing", types.TicketFilter{Statuses: []types.Status{types.StatusDone}, Priorities: []types.Priority{types.PriorityA}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(first))
			second, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, titles(first), titles(second), "order must be stable")
		})
	}
}

func TestReloadAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	s, ws, _ := newTestStore(t)
	id, err := s.Add(ctx, "on disk", "", 0)
	require.NoError(t, err)

	require.NoError(t, os.Remove(ws.Path(recordPath(id))))
	_, err = s.Show(ctx, id)
	require.NoError(t, err, "cache is still valid until the generation moves")

	ws.Invalidate()
	_, err = s.Show(ctx, id)
	assert.ErrorIs(t, err, errcode.ErrTicketNotFound)
}

func TestLoadManyInParallel(t *testing.T) {
	ctx := context.Background()
	s, ws, _ := newTestStore(t, WithWorkers(3))
	var want []string
	for i := 0; i < 40; i++ {
		id, err := s.Add(ctx, "bulk", "", 0)
		require.NoError(t, err)
		want = append(want, id)
	}

	fresh := NewStore(ws, WithWorkers(3))
	got, err := fresh.List(ctx, types.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i].ID)
	}

	next, err := fresh.Add(ctx, "after reload", "", 0)
	require.NoError(t, err)
	assert.Greater(t, next, want[len(want)-1])
}

func TestCorruptRecord(t *testing.T) {
	ctx := context.Background()
	s, ws, _ := newTestStore(t)
	require.NoError(t, os.WriteFile(ws.Path("tickets", "01ARZ3NDEKTSV4RRFFQ69G5FAV.toml"), []byte("id = [broken"), 0o600))

	_, err := s.List(ctx, types.TicketFilter{})
	assert.Equal(t, errcode.FileSystemError, errcode.Of(err), "got %v", err)
}

func TestRecordWithBadFieldsIsRejected(t *testing.T) {
	const id = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	tests := []struct {
		name   string
		record string
	}{
		{"unknown priority", "id = \"" + id + "\"\ntitle = \"x\"\npriority = \"q\"\nstatus = \"todo\"\n"},
		{"upper-case priority", "id = \"" + id + "\"\ntitle = \"x\"\npriority = \"A\"\nstatus = \"todo\"\n"},
		{"missing priority", "id = \"" + id + "\"\ntitle = \"x\"\nstatus = \"todo\"\n"},
		{"unknown status", "id = \"" + id + "\"\ntitle = \"x\"\npriority = \"a\"\nstatus = \"blocked\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, ws, _ := newTestStore(t)
			require.NoError(t, os.WriteFile(ws.Path("tickets", id+".toml"), []byte(tt.record), 0o600))

			_, err := s.Show(ctx, id)
			assert.Equal(t, errcode.FileSystemError, errcode.Of(err), "got %v", err)
		})
	}
}

func TestMutationFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	s, _, repo := newTestStore(t)
	id, err := s.Add(ctx, "stable", "", 'b')
	require.NoError(t, err)
	before := len(commits(t, repo))

	repo.FailCommit = errors.New("disk full")
	err = s.Move(ctx, id, 'd')
	assert.ErrorIs(t, err, errcode.ErrCommandFailed)

	got, err := s.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBacklog, got.Status)
	assert.Len(t, commits(t, repo), before)

	repo.FailCommit = errors.New("disk full")
	_, err = s.Add(ctx, "lost", "", 0)
	assert.ErrorIs(t, err, errcode.ErrCommandFailed)
	all, err := s.List(ctx, types.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRequiresWorkspace(t *testing.T) {
	root := t.TempDir()
	s := NewStore(workspace.New(root, git.NewMemory(workspace.Dir(root))))
	_, err := s.Add(context.Background(), "x", "", 0)
	assert.ErrorIs(t, err, errcode.ErrNotARepository)
	_, err = s.List(context.Background(), types.TicketFilter{})
	assert.ErrorIs(t, err, errcode.ErrNotARepository)
}
