// Package remote keeps the registry of named remotes in remotes.toml.
// The registry file is versioned with the tickets, so it follows undo,
// redo and project switches; the git configuration is brought in line
// with it by Sync.
package remote

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/types"
	"github.com/tixhq/tix/internal/validation"
	"github.com/tixhq/tix/internal/workspace"
)

const header = "# tix remotes\n"

type registryFile struct {
	Remote []types.Remote `toml:"remote"`
}

// Registry manages the remotes of one workspace.
type Registry struct {
	ws *workspace.Workspace
}

// NewRegistry returns the remote registry of ws.
func NewRegistry(ws *workspace.Workspace) *Registry {
	return &Registry{ws: ws}
}

func (r *Registry) load() ([]types.Remote, error) {
	var f registryFile
	_, err := toml.DecodeFile(r.ws.Path(workspace.RemotesFile), &f)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return nil, workspace.FSError("remote.load", err)
		}
		return nil, errcode.Wrap(errcode.FileSystemError, "remote.load", err)
	}
	sort.Slice(f.Remote, func(i, j int) bool { return f.Remote[i].Name < f.Remote[j].Name })
	return f.Remote, nil
}

// Add registers name -> url. An existing name is never overwritten.
func (r *Registry) Add(ctx context.Context, name, url string) error {
	const op = "remote.add"
	if err := validation.ValidateRemote(name, url); err != nil {
		return err
	}
	if err := r.ws.Require(ctx); err != nil {
		return err
	}
	remotes, err := r.load()
	if err != nil {
		return err
	}
	for _, rm := range remotes {
		if rm.Name == name {
			return errcode.New(errcode.RemoteAlreadyExists, op, "remote %q already exists", name)
		}
	}
	remotes = append(remotes, types.Remote{Name: name, URL: url})
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })

	var buf bytes.Buffer
	buf.WriteString(header)
	if err := toml.NewEncoder(&buf).Encode(registryFile{Remote: remotes}); err != nil {
		return errcode.Wrap(errcode.UnknownError, op, err)
	}

	if _, err := r.ws.Mutate(ctx, "remote: add "+name, func(tx *workspace.Tx) error {
		if err := tx.WriteFile(workspace.RemotesFile, buf.Bytes()); err != nil {
			return err
		}
		if err := r.ws.Repo().AddRemote(ctx, name, url); err != nil {
			return errcode.Wrap(errcode.RemoteFailed, op, err)
		}
		return nil
	}); err != nil {
		return err
	}
	r.ws.LogEvent("remote", "", name+" "+url)
	return nil
}

// Adopt registers name unless it is already present.
func (r *Registry) Adopt(ctx context.Context, name, url string) error {
	remotes, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, rm := range remotes {
		if rm.Name == name {
			return nil
		}
	}
	return r.Add(ctx, name, url)
}

// List returns every remote sorted by name.
func (r *Registry) List(ctx context.Context) ([]types.Remote, error) {
	if err := r.ws.Require(ctx); err != nil {
		return nil, err
	}
	return r.load()
}

// Sync registers with git every remote the registry lists but git does not
// know with the same url. Remotes only git knows are left alone.
func (r *Registry) Sync(ctx context.Context) error {
	remotes, err := r.List(ctx)
	if err != nil {
		return err
	}
	if len(remotes) == 0 {
		return nil
	}
	known, err := r.ws.Repo().Remotes(ctx)
	if err != nil {
		return errcode.Wrap(errcode.RemoteFailed, "remote.sync", err)
	}
	for _, rm := range remotes {
		if known[rm.Name] == rm.URL {
			continue
		}
		debug.Logf("remote.sync: registering %s -> %s\n", rm.Name, rm.URL)
		if err := r.ws.Repo().AddRemote(ctx, rm.Name, rm.URL); err != nil {
			return errcode.Wrap(errcode.RemoteFailed, "remote.sync", err)
		}
	}
	return nil
}

