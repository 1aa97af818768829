package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tixhq/tix/internal/types"
)

// CLI is a Repo backed by the git executable. Every command runs as
// "git -C <dir> ...".
type CLI struct {
	dir     string
	bin     string
	retries uint64
}

// Option configures a CLI.
type Option func(*CLI)

// WithBinary overrides the git executable (default "git" from PATH).
func WithBinary(bin string) Option {
	return func(c *CLI) {
		if bin != "" {
			c.bin = bin
		}
	}
}

// WithRetries bounds how often a command blocked by a stale index.lock is
// retried.
func WithRetries(n int) Option {
	return func(c *CLI) {
		if n >= 0 {
			c.retries = uint64(n)
		}
	}
}

// NewCLI returns a Repo for the work tree at dir.
func NewCLI(dir string, opts ...Option) *CLI {
	c := &CLI{dir: dir, bin: "git", retries: 5}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the git executable can be found.
func (c *CLI) Available() bool {
	_, err := exec.LookPath(c.bin)
	return err == nil
}

func (c *CLI) Dir() string { return c.dir }

// environ disables credential prompts and pins the locale; stderr text is
// matched below.
func (c *CLI) environ() []string {
	return append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"LC_ALL=C",
		"LANG=C",
	)
}

// run executes git against the work tree and returns stdout. Failures caused
// by a concurrent index.lock are retried with exponential backoff; anything
// else fails immediately.
func (c *CLI) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", c.dir}, args...)

	op := func() (string, error) {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, c.bin, full...)
		cmd.Env = c.environ()
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			cerr := &CommandError{Args: args, Stderr: stderr.String(), Err: err}
			if strings.Contains(cerr.Stderr, "index.lock") {
				return "", cerr
			}
			return "", backoff.Permanent(cerr)
		}
		return stdout.String(), nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), ctx)

	return backoff.RetryWithData(op, b)
}

// IsRepo checks for a .git entry directly under Dir, so a tix workspace
// nested inside a user's own repository is never mistaken for it.
func (c *CLI) IsRepo(ctx context.Context) bool {
	if _, err := os.Stat(filepath.Join(c.dir, ".git")); err != nil {
		return false
	}
	_, err := c.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

func (c *CLI) Init(ctx context.Context, branch string) error {
	if _, err := c.run(ctx, "init", "-q"); err != nil {
		return err
	}
	if _, err := c.run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+branch); err != nil {
		return err
	}
	return nil
}

func (c *CLI) Clone(ctx context.Context, url string) error {
	if _, err := os.Stat(c.dir); err == nil {
		return fmt.Errorf("clone into %s: destination already exists", c.dir)
	}
	var stderr bytes.Buffer
	args := []string{"clone", "-q", url, c.dir}
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Env = c.environ()
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cerr := &CommandError{Args: args, Stderr: stderr.String(), Err: err}
		if looksLikeMissingRepo(cerr.Stderr) {
			return fmt.Errorf("%w: %w", ErrRemoteNotARepo, cerr)
		}
		return cerr
	}
	return nil
}

func looksLikeMissingRepo(stderr string) bool {
	for _, marker := range []string{
		"does not appear to be a git repository",
		"not found",
		"does not exist",
		"Could not read from remote repository",
	} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

func (c *CLI) Commit(ctx context.Context, message string, author Signature) (string, error) {
	author = author.OrDefault()
	if _, err := c.run(ctx, "add", "-A", "."); err != nil {
		return "", err
	}
	if _, err := c.run(ctx,
		"-c", "user.name="+author.Name,
		"-c", "user.email="+author.Email,
		"-c", "commit.gpgsign=false",
		"commit", "-q", "--allow-empty", "--no-verify", "-m", message,
	); err != nil {
		return "", err
	}
	return c.Head(ctx)
}

func (c *CLI) Head(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch uses symbolic-ref, which also works on an unborn branch.
func (c *CLI) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "symbolic-ref", "-q", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDetachedHead, err)
	}
	return strings.TrimSpace(out), nil
}

func (c *CLI) Branches(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	sort.Strings(branches)
	return branches, nil
}

func (c *CLI) CreateBranch(ctx context.Context, name string) error {
	_, err := c.run(ctx, "branch", name)
	var cerr *CommandError
	if errors.As(err, &cerr) && strings.Contains(cerr.Stderr, "already exists") {
		return fmt.Errorf("%w: %w", ErrBranchExists, err)
	}
	return err
}

func (c *CLI) Checkout(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "rev-parse", "--verify", "-q", "refs/heads/"+name); err != nil {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}
	_, err := c.run(ctx, "checkout", "-q", name, "--")
	return err
}

func (c *CLI) Reset(ctx context.Context, rev string) error {
	if _, err := c.run(ctx, "rev-parse", "--verify", "-q", rev+"^{commit}"); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownRevision, rev)
	}
	_, err := c.run(ctx, "reset", "-q", "--hard", rev)
	return err
}

// logFormat separates fields with US (0x1f) and records with RS (0x1e) so
// subjects may contain anything but those control characters.
const logFormat = "--format=%H%x1f%an%x1f%ae%x1f%aI%x1f%s%x1e"

func (c *CLI) Log(ctx context.Context, opts LogOptions) iter.Seq2[types.Commit, error] {
	return func(yield func(types.Commit, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		args := []string{"log", "--first-parent", logFormat}
		if opts.Limit > 0 {
			args = append(args, fmt.Sprintf("--max-count=%d", opts.Limit))
		}
		if !opts.Since.IsZero() {
			args = append(args, "--since="+opts.Since.Format(time.RFC3339))
		}

		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, c.bin, append([]string{"-C", c.dir}, args...)...)
		cmd.Env = c.environ()
		cmd.Stderr = &stderr
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(types.Commit{}, err)
			return
		}
		if err := cmd.Start(); err != nil {
			yield(types.Commit{}, &CommandError{Args: args, Err: err})
			return
		}

		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		sc.Split(splitRecords)
		for sc.Scan() {
			rec := strings.TrimSpace(sc.Text())
			if rec == "" {
				continue
			}
			commit, perr := parseCommit(rec)
			if !yield(commit, perr) || perr != nil {
				cancel()
				_ = cmd.Wait()
				return
			}
		}
		scanErr := sc.Err()
		waitErr := cmd.Wait()
		switch {
		case scanErr != nil:
			yield(types.Commit{}, scanErr)
		case waitErr != nil:
			yield(types.Commit{}, &CommandError{Args: args, Stderr: stderr.String(), Err: waitErr})
		}
	}
}

func splitRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, 0x1e); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func parseCommit(rec string) (types.Commit, error) {
	fields := strings.Split(rec, "\x1f")
	if len(fields) != 5 {
		return types.Commit{}, fmt.Errorf("unexpected git log record %q", rec)
	}
	date, err := time.Parse(time.RFC3339, fields[3])
	if err != nil {
		return types.Commit{}, fmt.Errorf("parse commit date %q: %w", fields[3], err)
	}
	return types.Commit{
		Hash:    fields[0],
		Author:  fields[1],
		Email:   fields[2],
		Date:    date,
		Subject: fields[4],
	}, nil
}

func (c *CLI) AddRemote(ctx context.Context, name, url string) error {
	_, err := c.run(ctx, "remote", "add", name, url)
	var cerr *CommandError
	if errors.As(err, &cerr) && strings.Contains(cerr.Stderr, "already exists") {
		_, err = c.run(ctx, "remote", "set-url", name, url)
	}
	return err
}

func (c *CLI) Remotes(ctx context.Context) (map[string]string, error) {
	out, err := c.run(ctx, "remote", "-v")
	if err != nil {
		return nil, err
	}
	remotes := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[2] == "(fetch)" {
			remotes[fields[0]] = fields[1]
		}
	}
	return remotes, nil
}

var _ Repo = (*CLI)(nil)
