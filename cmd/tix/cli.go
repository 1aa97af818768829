package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tixhq/tix"
	"github.com/tixhq/tix/internal/config"
	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/ui"
)

// errCancelled ends a command quietly, e.g. an aborted form.
var errCancelled = errors.New("cancelled")

// cli carries the state of one invocation.
type cli struct {
	v        *viper.Viper
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	settings tix.Settings
	ws       *tix.Workspace
	jsonOut  bool
	color    bool

	// openOpts are appended to every tix.Open; tests swap the repository.
	openOpts []tix.Option
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{v: config.New(), in: in, out: out, errOut: errOut}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "tix",
		Short:         "tix - git-backed ticket tracker",
		Long:          `A lightweight ticket tracker whose tickets, config and remotes live in a git repository under .tix/. Every change is a commit; undo and redo walk that history, and projects are branches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(c.out, "tix version %s (%s)\n", Version, Build)
				return
			}
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("dir", "C", "", "Workspace root (default: current directory)")
	pf.String("actor", "", "Actor name for the event log (default: $TIX_ACTOR, $USER)")
	pf.String("git", "", "git executable (default: $TIX_GIT, git)")
	pf.BoolP("verbose", "v", false, "Enable verbose/debug output")
	pf.BoolVar(&c.jsonOut, "json", false, "Output in JSON format")
	_ = c.v.BindPFlag(config.KeyActor, pf.Lookup("actor"))
	_ = c.v.BindPFlag(config.KeyGit, pf.Lookup("git"))
	_ = c.v.BindPFlag(config.KeyDebug, pf.Lookup("verbose"))
	root.Flags().BoolP("version", "V", false, "Print version information")

	root.AddGroup(&cobra.Group{ID: "tickets", Title: "Working With Tickets:"})
	root.AddGroup(&cobra.Group{ID: "history", Title: "History & Projects:"})
	root.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})

	root.AddCommand(
		newInitCmd(c), newCloneCmd(c), newConfigCmd(c), newRemoteCmd(c),
		newAddCmd(c), newMoveCmd(c), newAmendCmd(c), newListCmd(c), newShowCmd(c),
		newSwitchCmd(c), newProjectsCmd(c), newUndoCmd(c), newRedoCmd(c), newLogCmd(c), newStatusCmd(c),
		newVersionCmd(c),
	)
	return root
}

// setup loads settings, opens the workspace handle and decides on color.
func (c *cli) setup(cmd *cobra.Command) error {
	s, err := config.LoadSettings(c.v)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	c.settings = s
	debug.SetVerbose(s.Debug)

	root, _ := cmd.Flags().GetString("dir")
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return err
		}
	}
	opts := append([]tix.Option{tix.WithSettings(s)}, c.openOpts...)
	if c.ws, err = tix.Open(root, opts...); err != nil {
		return err
	}

	mode := ui.ColorAuto
	if v, err := c.ws.ConfigGet(cmd.Context(), config.ColorUI); err == nil {
		mode = v
	}
	c.color = ui.Configure(mode)
	return nil
}

func (c *cli) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *cli) outputJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportError writes err with a hint for the common setup mistakes.
func reportError(w io.Writer, err error) {
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(w, "Cancelled.")
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	switch {
	case errors.Is(err, tix.ErrNotARepository):
		fmt.Fprintln(w, "Hint: run 'tix init' to create a workspace here, or pass --dir")
	case errors.Is(err, tix.ErrNothingToRedo):
		fmt.Fprintln(w, "Hint: a new change after undo discards the redo history")
	}
}
