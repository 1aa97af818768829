// Package idgen generates ticket identifiers.
//
// Ticket IDs are ULIDs: 48 bits of millisecond timestamp followed by 80
// bits of entropy, rendered as 26 Crockford base32 characters. IDs from a
// single Generator are strictly increasing, even within one millisecond
// and even if the wall clock steps backwards.
package idgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out strictly increasing ULIDs.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	last    ulid.ULID
}

// New returns a Generator seeded from crypto/rand.
func New() *Generator {
	return NewWithSource(time.Now, rand.Reader)
}

// NewWithSource returns a Generator using the given clock and entropy source.
// Tests use it to pin time.
func NewWithSource(now func() time.Time, entropy io.Reader) *Generator {
	return &Generator{
		now:     now,
		entropy: ulid.Monotonic(entropy, 0),
	}
}

// Observe raises the generator's floor so that every later ID sorts after
// id. Stores call it with the largest ID they already hold, so IDs stay
// monotonic across processes sharing one workspace.
func (g *Generator) Observe(id string) error {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return fmt.Errorf("observe id %q: %w", id, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if u.Compare(g.last) > 0 {
		g.last = u
	}
	return nil
}

// Next returns a new ULID string greater than every ID previously returned
// or observed.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(g.now())
	if ms < g.last.Time() {
		ms = g.last.Time()
	}

	id, err := ulid.New(ms, g.entropy)
	if err != nil && !errors.Is(err, ulid.ErrMonotonicOverflow) {
		return "", fmt.Errorf("generate id: %w", err)
	}
	if err != nil || id.Compare(g.last) <= 0 {
		id, err = successor(g.last)
		if err != nil {
			return "", err
		}
	}
	g.last = id
	return id.String(), nil
}

// successor returns the smallest ULID greater than u by incrementing its
// 80-bit entropy, carrying into the timestamp when the entropy wraps.
func successor(u ulid.ULID) (ulid.ULID, error) {
	next := u
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			return next, nil
		}
	}
	return ulid.ULID{}, fmt.Errorf("generate id: ULID space exhausted")
}

// Time extracts the creation time encoded in a ULID string.
func Time(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
