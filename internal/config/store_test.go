package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/git"
	"github.com/tixhq/tix/internal/workspace"
)

func newStore(t *testing.T) (*Store, git.Repo) {
	t.Helper()
	root := t.TempDir()
	repo := git.NewMemory(workspace.Dir(root))
	ws := workspace.New(root, repo)
	_, err := ws.Init(context.Background())
	require.NoError(t, err)
	return NewStore(ws), repo
}

func TestStoreDefaults(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	for _, name := range Keys() {
		k, _ := Lookup(name)
		got, err := s.Get(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, k.Default, got, name)
	}
}

func TestStoreSetGet(t *testing.T) {
	s, repo := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, UserName, "Alice"))
	require.NoError(t, s.Set(ctx, LogOneline, "true"))
	require.NoError(t, s.Set(ctx, UserName, "Alice B"))

	got, err := s.Get(ctx, UserName)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got)
	got, err = s.Get(ctx, LogOneline)
	require.NoError(t, err)
	assert.Equal(t, "true", got)

	commits, err := git.Collect(repo.Log(ctx, git.LogOptions{}))
	require.NoError(t, err)
	require.Len(t, commits, 4, "init plus one commit per set")
	assert.Equal(t, "config: set user.name", commits[0].Subject)

	entries, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(Keys()))
	for _, e := range entries {
		if e.Key == CoreEditor {
			assert.False(t, e.IsSet)
			assert.Equal(t, "vi", e.Value)
		}
		if e.Key == UserName {
			assert.True(t, e.IsSet)
		}
	}
}

func TestStoreRejects(t *testing.T) {
	s, repo := newStore(t)
	ctx := context.Background()

	tests := []struct {
		key, value string
	}{
		{"no.such.key", "x"},
		{ColorUI, "sometimes"},
		{LogOneline, "yes"},
		{UserEmail, "not-an-email"},
	}
	for _, tt := range tests {
		err := s.Set(ctx, tt.key, tt.value)
		assert.ErrorIs(t, err, errcode.ErrInvalidKey, "%s=%s", tt.key, tt.value)
	}

	commits, err := git.Collect(repo.Log(ctx, git.LogOptions{}))
	require.NoError(t, err)
	assert.Len(t, commits, 1, "rejected sets must not commit")

	_, err = s.Get(ctx, "no.such.key")
	assert.ErrorIs(t, err, errcode.ErrKeyNotFound)
}

func TestStoreRequiresWorkspace(t *testing.T) {
	root := t.TempDir()
	s := NewStore(workspace.New(root, git.NewMemory(workspace.Dir(root))))
	_, err := s.Get(context.Background(), UserName)
	assert.ErrorIs(t, err, errcode.ErrNotARepository)
	assert.ErrorIs(t, s.Set(context.Background(), UserName, "x"), errcode.ErrNotARepository)
}
