// Package ticket is the ticket store: one TOML record per ticket under
// tickets/, every mutation committed through the workspace.
package ticket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"

	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/idgen"
	"github.com/tixhq/tix/internal/types"
	"github.com/tixhq/tix/internal/validation"
	"github.com/tixhq/tix/internal/workspace"
)

const recordExt = ".toml"

// Store is the read model and write path for tickets. The in-memory index
// is rebuilt from disk whenever the workspace generation moves.
type Store struct {
	ws      *workspace.Workspace
	ids     *idgen.Generator
	now     func() time.Time
	workers int

	loaded bool
	gen    uint64
	byID   map[string]*types.Ticket
	order  []string // ULID order
}

// Option configures a Store.
type Option func(*Store)

// WithGenerator replaces the ID generator.
func WithGenerator(g *idgen.Generator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithWorkers bounds parallel record decoding.
func WithWorkers(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewStore returns the ticket store of ws.
func NewStore(ws *workspace.Workspace, opts ...Option) *Store {
	s := &Store{
		ws:      ws,
		ids:     idgen.New(),
		now:     time.Now,
		workers: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func recordPath(id string) string {
	return path.Join(workspace.TicketsDir, id+recordExt)
}

// load refreshes the index if the workspace changed since the last load.
func (s *Store) load(ctx context.Context) error {
	if err := s.ws.Require(ctx); err != nil {
		return err
	}
	gen := s.ws.Generation()
	if s.loaded && s.gen == gen {
		return nil
	}

	entries, err := os.ReadDir(s.ws.Path(workspace.TicketsDir))
	if err != nil {
		return workspace.FSError("ticket.load", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), recordExt) {
			names = append(names, e.Name())
		}
	}

	tickets := make([]*types.Ticket, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := s.readRecord(name)
			if err != nil {
				return err
			}
			tickets[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byID := make(map[string]*types.Ticket, len(tickets))
	order := make([]string, 0, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
		order = append(order, t.ID)
		if err := s.ids.Observe(t.ID); err != nil {
			debug.Logf("ticket.load: %s: %v\n", t.ID, err)
		}
	}
	sort.Strings(order)

	s.byID, s.order, s.gen, s.loaded = byID, order, gen, true
	debug.Logf("ticket.load: %d tickets at generation %d\n", len(order), gen)
	return nil
}

func (s *Store) readRecord(name string) (*types.Ticket, error) {
	var t types.Ticket
	p := s.ws.Path(workspace.TicketsDir, name)
	if _, err := toml.DecodeFile(p, &t); err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return nil, workspace.FSError("ticket.load", err)
		}
		return nil, errcode.Wrap(errcode.FileSystemError, "ticket.load", fmt.Errorf("%s: %w", name, err))
	}
	if want := strings.TrimSuffix(name, recordExt); t.ID != want {
		return nil, errcode.New(errcode.FileSystemError, "ticket.load",
			"%s: record id %q does not match file name", name, t.ID)
	}
	if !t.Priority.IsValid() {
		return nil, errcode.New(errcode.FileSystemError, "ticket.load",
			"%s: invalid priority %q", name, t.Priority.String())
	}
	if !t.Status.IsValid() {
		return nil, errcode.New(errcode.FileSystemError, "ticket.load",
			"%s: invalid status %q", name, t.Status)
	}
	return &t, nil
}

func encode(t *types.Ticket) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(t); err != nil {
		return nil, errcode.Wrap(errcode.UnknownError, "ticket.encode", err)
	}
	return buf.Bytes(), nil
}

// write commits t as one mutation and updates the index in place.
func (s *Store) write(ctx context.Context, message string, t *types.Ticket) error {
	data, err := encode(t)
	if err != nil {
		return err
	}
	if _, err := s.ws.Mutate(ctx, message, func(tx *workspace.Tx) error {
		return tx.WriteFile(recordPath(t.ID), data)
	}); err != nil {
		return err
	}
	if _, ok := s.byID[t.ID]; !ok {
		s.order = append(s.order, t.ID)
		sort.Strings(s.order)
	}
	s.byID[t.ID] = t
	s.gen = s.ws.Generation()
	return nil
}

// resolve maps a full ID or a unique prefix onto a stored ID. unknown is
// the code reported when nothing matches.
func (s *Store) resolve(ctx context.Context, op, id string, unknown errcode.Code) (string, error) {
	norm, full, err := validation.NormalizeTicketID(id)
	if err != nil {
		return "", err
	}
	if err := s.load(ctx); err != nil {
		return "", err
	}
	if full {
		if _, ok := s.byID[norm]; ok {
			return norm, nil
		}
		return "", errcode.New(unknown, op, "ticket %s not found", norm)
	}

	i := sort.SearchStrings(s.order, norm)
	var matches []string
	for ; i < len(s.order) && strings.HasPrefix(s.order[i], norm); i++ {
		matches = append(matches, s.order[i])
	}
	switch len(matches) {
	case 0:
		return "", errcode.New(unknown, op, "ticket %s not found", norm)
	case 1:
		return matches[0], nil
	}
	return "", errcode.New(errcode.InvalidTicketID, op,
		"ticket id %s is ambiguous (%d matches)", norm, len(matches))
}

// Add creates a backlog ticket and returns its ID.
func (s *Store) Add(ctx context.Context, title, body string, priority types.Priority) (string, error) {
	title, err := validation.ValidateTitle(title)
	if err != nil {
		return "", err
	}
	priority, err = validation.ValidatePriority(priority, true)
	if err != nil {
		return "", err
	}
	if priority == types.PriorityUnspecified {
		priority = types.DefaultPriority
	}
	if err := s.load(ctx); err != nil {
		return "", err
	}

	id, err := s.ids.Next()
	if err != nil {
		return "", errcode.Wrap(errcode.UnknownError, "ticket.add", err)
	}
	now := s.now().UTC().Truncate(time.Second)
	t := &types.Ticket{
		ID:        id,
		Title:     title,
		Body:      body,
		Priority:  priority,
		Status:    types.StatusBacklog,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, fmt.Sprintf("add %s: %s", id, title), t); err != nil {
		return "", err
	}
	s.ws.LogEvent("add", id, title)
	return id, nil
}

// Move changes a ticket's status. An unknown ticket is reported as
// InvalidTicketId, like a malformed one.
func (s *Store) Move(ctx context.Context, id string, status byte) error {
	const op = "ticket.move"
	if _, _, err := validation.NormalizeTicketID(id); err != nil {
		return err
	}
	to, err := validation.ParseStatusCode(status)
	if err != nil {
		return err
	}
	id, err = s.resolve(ctx, op, id, errcode.InvalidTicketID)
	if err != nil {
		return err
	}

	t := s.byID[id].Clone()
	from := t.Status
	t.Status = to
	t.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := s.write(ctx, fmt.Sprintf("move %s: %s -> %s", id, from, to), t); err != nil {
		return err
	}
	s.ws.LogEvent("move", id, fmt.Sprintf("%s -> %s", from, to))
	return nil
}

// Amend updates the supplied fields. Empty strings and an unspecified
// priority leave the stored value unchanged.
func (s *Store) Amend(ctx context.Context, id, title, body string, priority types.Priority) error {
	const op = "ticket.amend"
	var err error
	if title != "" {
		if title, err = validation.ValidateTitle(title); err != nil {
			return err
		}
	}
	if priority, err = validation.ValidatePriority(priority, true); err != nil {
		return err
	}
	if id, err = s.resolve(ctx, op, id, errcode.TicketNotFound); err != nil {
		return err
	}

	t := s.byID[id].Clone()
	var changed []string
	if title != "" {
		t.Title = title
		changed = append(changed, "title")
	}
	if body != "" {
		t.Body = body
		changed = append(changed, "body")
	}
	if priority != types.PriorityUnspecified {
		t.Priority = priority
		changed = append(changed, "priority")
	}
	t.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := s.write(ctx, "amend "+id, t); err != nil {
		return err
	}
	s.ws.LogEvent("amend", id, strings.Join(changed, ","))
	return nil
}

// List returns copies of the tickets matching filter, in ID order.
func (s *Store) List(ctx context.Context, filter types.TicketFilter) ([]*types.Ticket, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	var out []*types.Ticket
	for _, id := range s.order {
		if t := s.byID[id]; filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Show returns a copy of one ticket.
func (s *Store) Show(ctx context.Context, id string) (*types.Ticket, error) {
	id, err := s.resolve(ctx, "ticket.show", id, errcode.TicketNotFound)
	if err != nil {
		return nil, err
	}
	return s.byID[id].Clone(), nil
}

// Field projects a single attribute of one ticket.
func (s *Store) Field(ctx context.Context, id string, field types.Field) (string, error) {
	if !field.IsValid() {
		return "", errcode.New(errcode.UnknownError, "ticket.field", "unknown field %q", field)
	}
	t, err := s.Show(ctx, id)
	if err != nil {
		return "", err
	}
	return field.Project(t), nil
}
