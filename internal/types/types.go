// Package types defines core data structures for the tix ticket tracker.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Ticket is a trackable work item. It is persisted as one TOML record per
// ticket under .tix/tickets/.
type Ticket struct {
	ID        string    `toml:"id"`
	Title     string    `toml:"title"`
	Body      string    `toml:"body"`
	Priority  Priority  `toml:"priority"`
	Status    Status    `toml:"status"`
	CreatedAt time.Time `toml:"created_at"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// Clone returns a copy that shares no state with t.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// MaxTitleLength bounds ticket titles, in bytes.
const MaxTitleLength = 500

// Status represents the workflow state of a ticket
type Status string

// Ticket status constants
const (
	StatusBacklog Status = "backlog"
	StatusTodo    Status = "todo"
	StatusDoing   Status = "doing"
	StatusDone    Status = "done"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusBacklog, StatusTodo, StatusDoing, StatusDone}

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

// Code returns the single-character wire code (b, t, w, d), or 0 for an
// invalid status.
func (s Status) Code() byte {
	switch s {
	case StatusBacklog:
		return 'b'
	case StatusTodo:
		return 't'
	case StatusDoing:
		return 'w'
	case StatusDone:
		return 'd'
	}
	return 0
}

// StatusFromCode maps a wire code to a Status. ok is false for unknown codes.
func StatusFromCode(c byte) (s Status, ok bool) {
	switch c {
	case 'b':
		return StatusBacklog, true
	case 't':
		return StatusTodo, true
	case 'w':
		return StatusDoing, true
	case 'd':
		return StatusDone, true
	}
	return "", false
}

// Priority is a ticket priority letter. 'a' is the most urgent; 'z' means
// "whenever" and is the default.
type Priority byte

// Priority constants. PriorityUnspecified is only meaningful as input: it
// selects the default on add and means "unchanged" on amend.
const (
	PriorityUnspecified Priority = 0
	PriorityA           Priority = 'a'
	PriorityB           Priority = 'b'
	PriorityC           Priority = 'c'
	PriorityZ           Priority = 'z'

	DefaultPriority = PriorityZ
)

// Priorities lists every stored priority, most urgent first.
var Priorities = []Priority{PriorityA, PriorityB, PriorityC, PriorityZ}

// IsValid reports whether p is a storable priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityA, PriorityB, PriorityC, PriorityZ:
		return true
	}
	return false
}

func (p Priority) String() string {
	if p == PriorityUnspecified {
		return ""
	}
	return string(rune(p))
}

// MarshalText stores priorities as their letter.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts a single letter. Whether it is a storable
// priority is checked by the ticket loader.
func (p *Priority) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	switch len(s) {
	case 0:
		*p = PriorityUnspecified
	case 1:
		*p = Priority(s[0])
	default:
		return fmt.Errorf("priority %q: want a single letter", s)
	}
	return nil
}

// Field names a single projected ticket attribute.
type Field string

// Projectable ticket fields.
const (
	FieldTitle    Field = "title"
	FieldBody     Field = "body"
	FieldStatus   Field = "status"
	FieldPriority Field = "priority"
)

// IsValid checks if the field can be projected.
func (f Field) IsValid() bool {
	switch f {
	case FieldTitle, FieldBody, FieldStatus, FieldPriority:
		return true
	}
	return false
}

// Project returns the textual value of f on t. Status and priority are
// returned as their single-character codes.
func (f Field) Project(t *Ticket) string {
	switch f {
	case FieldTitle:
		return t.Title
	case FieldBody:
		return t.Body
	case FieldStatus:
		return string(rune(t.Status.Code()))
	case FieldPriority:
		return t.Priority.String()
	}
	return ""
}

// TicketFilter selects tickets for List. Empty sets match everything.
type TicketFilter struct {
	Statuses   []Status
	Priorities []Priority
}

// Matches reports whether t passes the filter.
func (f TicketFilter) Matches(t *Ticket) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	return true
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(set []Priority, p Priority) bool {
	for _, v := range set {
		if v == p {
			return true
		}
	}
	return false
}

// Remote is a named remote descriptor.
type Remote struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Commit summarizes one entry of workspace history.
type Commit struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Email   string    `json:"email,omitempty"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
}

// ShortHash returns the first seven characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Format renders the commit either as a single "hash subject" line or as
// a multi-line block in the style of git log.
func (c Commit) Format(oneline bool) string {
	if oneline {
		return c.ShortHash() + " " + c.Subject
	}
	var b strings.Builder
	b.WriteString("commit ")
	b.WriteString(c.Hash)
	b.WriteString("\nAuthor: ")
	b.WriteString(c.Author)
	if c.Email != "" {
		b.WriteString(" <" + c.Email + ">")
	}
	b.WriteString("\nDate:   ")
	b.WriteString(c.Date.Format(time.RFC1123Z))
	b.WriteString("\n\n    ")
	b.WriteString(c.Subject)
	return b.String()
}
