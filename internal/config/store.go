package config

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/workspace"
)

const header = "# tix workspace configuration\n"

// Entry is one effective key/value pair.
type Entry struct {
	Key   string
	Value string
	IsSet bool
}

// Store reads and writes config.yaml inside a workspace.
type Store struct {
	ws *workspace.Workspace
}

// NewStore returns the config store of ws.
func NewStore(ws *workspace.Workspace) *Store {
	return &Store{ws: ws}
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.ws.Path(workspace.ConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, workspace.FSError("config.load", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errcode.Wrap(errcode.FileSystemError, "config.load", err)
	}
	return values, nil
}

// Set validates key and value, stores the value and commits.
func (s *Store) Set(ctx context.Context, key, value string) error {
	const op = "config.set"
	k, ok := Lookup(key)
	if !ok {
		return errcode.New(errcode.InvalidKey, op, "unknown config key %q", key)
	}
	if k.Validate != nil {
		if err := k.Validate(value); err != nil {
			return errcode.New(errcode.InvalidKey, op, "invalid value for %s: %v", key, err)
		}
	}
	if err := s.ws.Require(ctx); err != nil {
		return err
	}
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value

	out, err := yaml.Marshal(values)
	if err != nil {
		return errcode.Wrap(errcode.UnknownError, op, err)
	}
	if _, err := s.ws.Mutate(ctx, "config: set "+key, func(tx *workspace.Tx) error {
		return tx.WriteFile(workspace.ConfigFile, append([]byte(header), out...))
	}); err != nil {
		return err
	}
	s.ws.LogEvent("config", "", key+"="+value)
	return nil
}

// Get returns the stored value of key or its default.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	k, ok := Lookup(key)
	if !ok {
		return "", errcode.New(errcode.KeyNotFound, "config.get", "unknown config key %q", key)
	}
	if err := s.ws.Require(ctx); err != nil {
		return "", err
	}
	values, err := s.load()
	if err != nil {
		return "", err
	}
	if v, ok := values[key]; ok {
		return v, nil
	}
	return k.Default, nil
}

// All returns the effective value of every recognized key.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	if err := s.ws.Require(ctx); err != nil {
		return nil, err
	}
	values, err := s.load()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, name := range Keys() {
		k, _ := Lookup(name)
		v, set := values[name]
		if !set {
			v = k.Default
		}
		entries = append(entries, Entry{Key: name, Value: v, IsSet: set})
	}
	return entries, nil
}
