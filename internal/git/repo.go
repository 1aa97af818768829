// Package git is the version-control boundary of tix. The engine never
// shells out to git itself; it talks to a Repo, which is either the real
// git CLI (CLI) or an in-memory substitute (Memory) used by tests.
//
// A Repo is bound to one work tree directory for its whole life. All
// operations target that directory, never the process working directory.
package git

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/tixhq/tix/internal/types"
)

// Sentinel errors shared by every Repo implementation.
var (
	ErrNotRepository    = errors.New("not a git repository")
	ErrBranchExists     = errors.New("branch already exists")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrRemoteNotARepo   = errors.New("remote is not a git repository")
	ErrDetachedHead     = errors.New("HEAD is detached")
	ErrUnknownRevision  = errors.New("unknown revision")
	ErrCloneUnsupported = errors.New("clone not supported by this repository")
)

// Signature identifies the author of a commit.
type Signature struct {
	Name  string
	Email string
}

// DefaultSignature is used when neither config nor settings name an author.
var DefaultSignature = Signature{Name: "tix", Email: "tix@localhost"}

// OrDefault fills empty fields from DefaultSignature.
func (s Signature) OrDefault() Signature {
	if s.Name == "" {
		s.Name = DefaultSignature.Name
	}
	if s.Email == "" {
		s.Email = DefaultSignature.Email
	}
	return s
}

// LogOptions bounds a history walk.
type LogOptions struct {
	Limit int       // 0 means unbounded
	Since time.Time // zero means no lower bound
}

// Repo is the capability set tix needs from version control.
type Repo interface {
	// Dir returns the work tree directory the repo is bound to.
	Dir() string

	// IsRepo reports whether Dir is the root of an initialized repository.
	IsRepo(ctx context.Context) bool

	// Init creates an empty repository whose unborn HEAD points at branch.
	Init(ctx context.Context, branch string) error

	// Clone materializes Dir from url. Dir must not exist.
	Clone(ctx context.Context, url string) error

	// Commit stages every non-ignored change in the work tree and records
	// one commit, even when nothing changed. Returns the new commit hash.
	Commit(ctx context.Context, message string, author Signature) (string, error)

	// Head returns the hash HEAD points at.
	Head(ctx context.Context) (string, error)

	// CurrentBranch returns the checked-out branch.
	CurrentBranch(ctx context.Context) (string, error)

	// Branches returns every local branch, sorted by name.
	Branches(ctx context.Context) ([]string, error)

	// CreateBranch creates name at HEAD without checking it out.
	CreateBranch(ctx context.Context, name string) error

	// Checkout switches the work tree to branch name.
	Checkout(ctx context.Context, name string) error

	// Reset moves the current branch to rev and makes the work tree and
	// index match it.
	Reset(ctx context.Context, rev string) error

	// Log streams first-parent history of HEAD, most recent first.
	Log(ctx context.Context, opts LogOptions) iter.Seq2[types.Commit, error]

	// AddRemote registers name → url, replacing the url if name exists.
	AddRemote(ctx context.Context, name, url string) error

	// Remotes returns the registered remotes.
	Remotes(ctx context.Context) (map[string]string, error)
}

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v (stderr: %s)", strings.Join(e.Args, " "), e.Err, stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Collect drains a log sequence into a slice, stopping at the first error.
func Collect(seq iter.Seq2[types.Commit, error]) ([]types.Commit, error) {
	var out []types.Commit
	for c, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}
