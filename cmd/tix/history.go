package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tixhq/tix"
	"github.com/tixhq/tix/internal/config"
	"github.com/tixhq/tix/internal/types"
	"github.com/tixhq/tix/internal/ui"
)

func newSwitchCmd(c *cli) *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:     "switch <project>",
		GroupID: "history",
		Short:   "Switch to another project",
		Long: `Switch to another project. Each project is a git branch with its own
tickets and history. With --create the project is branched from the
current one first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.ws.Switch(cmd.Context(), args[0], create)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.outputJSON(map[string]string{"project": args[0], "result": res.String()})
			}
			if res == tix.Created {
				c.printf("Switched to a new project '%s'\n", args[0])
			} else {
				c.printf("Switched to project '%s'\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&create, "create", "c", false, "Create the project before switching")
	return cmd
}

func newProjectsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "projects",
		GroupID: "history",
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := c.ws.Projects(cmd.Context())
			if err != nil {
				return err
			}
			current, err := c.ws.CurrentProject(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.outputJSON(map[string]interface{}{"current": current, "projects": names})
			}
			for _, name := range names {
				if name == current {
					c.printf("* %s\n", ui.RenderAccent(name))
				} else {
					c.printf("  %s\n", name)
				}
			}
			return nil
		},
	}
}

func (c *cli) printPosition(verb string, pos tix.Position) error {
	if c.jsonOut {
		return c.outputJSON(map[string]interface{}{
			"project": pos.Project,
			"cursor":  pos.Cursor,
			"tip":     pos.Tip,
		})
	}
	c.printf("%s %s on %s (%d/%d)\n", ui.RenderPassIcon(), verb, pos.Project, pos.Cursor, pos.Tip)
	return nil
}

func newUndoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "undo",
		GroupID: "history",
		Short:   "Revert the last change",
		Long:    `Revert the last change of the current project. The change stays available to redo until a new change is made.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := c.ws.Undo(cmd.Context())
			if err != nil {
				return err
			}
			return c.printPosition("undone", pos)
		},
	}
}

func newRedoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "redo",
		GroupID: "history",
		Short:   "Re-apply the last undone change",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := c.ws.Redo(cmd.Context())
			if err != nil {
				return err
			}
			return c.printPosition("redone", pos)
		},
	}
}

func newLogCmd(c *cli) *cobra.Command {
	var limit int
	var since string
	var oneline bool
	cmd := &cobra.Command{
		Use:     "log",
		GroupID: "history",
		Short:   "Show the history of the current project",
		Long: `Show the history of the current project, newest first.

--since accepts RFC 3339 or YYYY-MM-DD dates, durations like "2h" or
"3 days ago", and phrases like "last monday". --oneline defaults to the
log.oneline config value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("oneline") {
				if v, err := c.ws.ConfigGet(ctx, config.LogOneline); err == nil {
					oneline = v == "true"
				}
			}
			seq, err := c.ws.Log(ctx, tix.LogOptions{Limit: limit, Since: since})
			if err != nil {
				return err
			}
			var commits []tix.Commit
			for commit, err := range seq {
				if err != nil {
					return err
				}
				if c.jsonOut {
					commits = append(commits, commit)
					continue
				}
				if oneline {
					c.printf("%s %s\n", ui.RenderWarn(commit.ShortHash()), commit.Subject)
					continue
				}
				c.printf("%s\n\n", commit.Format(false))
			}
			if c.jsonOut {
				if commits == nil {
					commits = []tix.Commit{}
				}
				return c.outputJSON(commits)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n entries (0 for all)")
	cmd.Flags().StringVar(&since, "since", "", "Show entries newer than this time")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "One line per entry")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "history",
		Short:   "Summarize the current project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pos, err := c.ws.Position(ctx)
			if err != nil {
				return err
			}
			tickets, err := c.ws.List(ctx, "", "")
			if err != nil {
				return err
			}
			counts := make(map[types.Status]int, len(types.Statuses))
			for _, t := range tickets {
				counts[t.Status]++
			}
			if c.jsonOut {
				byStatus := make(map[string]int, len(counts))
				for _, s := range types.Statuses {
					byStatus[string(s)] = counts[s]
				}
				return c.outputJSON(map[string]interface{}{
					"project":  pos.Project,
					"cursor":   pos.Cursor,
					"tip":      pos.Tip,
					"tickets":  len(tickets),
					"byStatus": byStatus,
				})
			}
			c.printf("On project %s\n", ui.RenderAccent(pos.Project))
			c.printf("History: %d of %d", pos.Cursor, pos.Tip)
			if pos.CanRedo() {
				c.printf(" %s", ui.RenderMuted(fmt.Sprintf("(%d redoable)", pos.Tip-pos.Cursor)))
			}
			c.printf("\n\n")
			for _, s := range types.Statuses {
				c.printf("  %-8s %d\n", ui.RenderStatus(s), counts[s])
			}
			return nil
		},
	}
}
