// Package project maps tix projects onto git branches.
package project

import (
	"context"
	"errors"

	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/git"
	"github.com/tixhq/tix/internal/validation"
	"github.com/tixhq/tix/internal/workspace"
)

// SwitchResult reports what Switch did.
type SwitchResult int

const (
	Switched SwitchResult = 0
	Created  SwitchResult = 1
)

func (r SwitchResult) String() string {
	if r == Created {
		return "created"
	}
	return "switched"
}

// Manager switches and lists projects of one workspace.
type Manager struct {
	ws *workspace.Workspace
}

// NewManager returns the project manager of ws.
func NewManager(ws *workspace.Workspace) *Manager {
	return &Manager{ws: ws}
}

// Current returns the checked-out project.
func (m *Manager) Current(ctx context.Context) (string, error) {
	if err := m.ws.Require(ctx); err != nil {
		return "", err
	}
	name, err := m.ws.Repo().CurrentBranch(ctx)
	if err != nil {
		return "", errcode.Wrap(errcode.CommandFailed, "project.current", err)
	}
	return name, nil
}

// List returns every project, the current one first, the rest in branch
// name order.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	branches, err := m.ws.Repo().Branches(ctx)
	if err != nil {
		return nil, errcode.Wrap(errcode.CommandFailed, "project.list", err)
	}
	out := []string{current}
	for _, b := range branches {
		if b != current {
			out = append(out, b)
		}
	}
	return out, nil
}

// Switch checks out project name, creating it from HEAD when create is
// set and it does not exist yet.
func (m *Manager) Switch(ctx context.Context, name string, create bool) (SwitchResult, error) {
	const op = "project.switch"
	if err := validation.ValidateProjectName(name); err != nil {
		return 0, err
	}
	current, err := m.Current(ctx)
	if err != nil {
		return 0, err
	}
	if name == current {
		return 0, errcode.New(errcode.AlreadyOnProject, op, "already on project %q", name)
	}

	repo := m.ws.Repo()
	branches, err := repo.Branches(ctx)
	if err != nil {
		return 0, errcode.Wrap(errcode.SwitchFailed, op, err)
	}
	exists := false
	for _, b := range branches {
		if b == name {
			exists = true
			break
		}
	}

	result := Switched
	if !exists {
		if !create {
			return 0, errcode.New(errcode.ProjectNotFound, op, "project %q does not exist", name)
		}
		if err := repo.CreateBranch(ctx, name); err != nil {
			if errors.Is(err, git.ErrBranchExists) {
				// Created by someone else between the listing and now.
				return 0, errcode.Wrap(errcode.ProjectAlreadyExists, op, err)
			}
			return 0, errcode.Wrap(errcode.SwitchFailed, op, err)
		}
		result = Created
	}

	debug.Logf("project.switch: %s -> %s (%s)\n", current, name, result)
	if err := repo.Checkout(ctx, name); err != nil {
		return 0, errcode.Wrap(errcode.SwitchFailed, op, err)
	}
	m.ws.Invalidate()
	m.ws.LogEvent("switch", "", current+" -> "+name)
	return result, nil
}
