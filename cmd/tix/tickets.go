package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tixhq/tix"
	"github.com/tixhq/tix/internal/types"
	"github.com/tixhq/tix/internal/ui"
)

// ticketJSON is the --json shape of a ticket.
type ticketJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toJSON(t *tix.Ticket) ticketJSON {
	return ticketJSON{
		ID:        t.ID,
		Title:     t.Title,
		Body:      t.Body,
		Priority:  t.Priority.String(),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// parsePriorityArg maps a flag value to a priority. The empty string is
// PriorityUnspecified; anything longer than one letter is passed through
// as an invalid byte so the engine reports InvalidPriority.
func parsePriorityArg(s string) tix.Priority {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 0:
		return tix.PriorityUnspecified
	case 1:
		return tix.Priority(s[0])
	}
	return tix.Priority('?')
}

// parseStatusArg accepts a status code (b, t, w, d) or name (todo).
func parseStatusArg(s string) byte {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range types.Statuses {
		if s == string(st) {
			return st.Code()
		}
	}
	if len(s) == 1 {
		return s[0]
	}
	return '?'
}

func newAddCmd(c *cli) *cobra.Command {
	var body, priority string
	var form bool
	cmd := &cobra.Command{
		Use:     "add [title]",
		GroupID: "tickets",
		Short:   "Create a ticket in the backlog",
		Long: `Create a ticket in the backlog and print its id.

Priorities are a (most urgent), b, c and z (whenever, the default).
With --form the title, body and priority are collected interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			if form {
				if err := runAddForm(&title, &body, &priority); err != nil {
					return err
				}
			}
			id, err := c.ws.Add(cmd.Context(), title, body, parsePriorityArg(priority))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.outputJSON(map[string]string{"id": id})
			}
			c.printf("%s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&body, "body", "b", "", "Ticket body")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority: a, b, c or z")
	cmd.Flags().BoolVar(&form, "form", false, "Fill in the ticket with an interactive form")
	return cmd
}

func newMoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "move <id> <status>",
		GroupID: "tickets",
		Short:   "Change the status of a ticket",
		Long: `Change the status of a ticket. Status is a code or a name:
b backlog, t todo, w doing, d done.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ws.Move(cmd.Context(), args[0], parseStatusArg(args[1])); err != nil {
				return err
			}
			status, err := c.ws.Field(cmd.Context(), args[0], tix.FieldStatus)
			if err != nil {
				return err
			}
			c.printf("%s %s\n", ui.RenderPassIcon(), statusName(status))
			return nil
		},
	}
}

func statusName(code string) string {
	if len(code) == 1 {
		if s, ok := types.StatusFromCode(code[0]); ok {
			return string(s)
		}
	}
	return code
}

func newAmendCmd(c *cli) *cobra.Command {
	var title, body, priority string
	cmd := &cobra.Command{
		Use:     "amend <id>",
		GroupID: "tickets",
		Short:   "Change the title, body or priority of a ticket",
		Long:    `Change the title, body or priority of a ticket. Flags left out keep their current value.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ws.Amend(cmd.Context(), args[0], title, body, parsePriorityArg(priority)); err != nil {
				return err
			}
			c.printf("%s amended %s\n", ui.RenderPassIcon(), args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "New body")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority: a, b, c or z")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var statuses, priorities string
	var watch bool
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "tickets",
		Short:   "List tickets in creation order",
		Long: `List tickets in creation order.

--status takes status codes (e.g. "bt" for backlog and todo) and
--priority takes priority letters (e.g. "ab"). Empty means all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			render := func(ctx context.Context) error {
				tickets, err := c.ws.List(ctx, statuses, priorities)
				if err != nil {
					return err
				}
				return c.renderList(tickets)
			}
			if watch {
				return c.watch(cmd.Context(), render)
			}
			return render(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&statuses, "status", "s", "", "Status codes to include (b, t, w, d)")
	cmd.Flags().StringVarP(&priorities, "priority", "p", "", "Priorities to include (a, b, c, z)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render whenever tickets change")
	return cmd
}

func (c *cli) renderList(tickets []*tix.Ticket) error {
	if c.jsonOut {
		out := make([]ticketJSON, 0, len(tickets))
		for _, t := range tickets {
			out = append(out, toJSON(t))
		}
		return c.outputJSON(out)
	}
	if len(tickets) == 0 {
		c.printf("%s\n", ui.RenderMuted("No tickets."))
		return nil
	}
	width := ui.Width(100) - 30
	for _, t := range tickets {
		c.printf("%s  %-7s  %s  %s\n",
			ui.RenderID(t.ID, 10),
			ui.RenderStatus(t.Status)+strings.Repeat(" ", max(0, 7-len(t.Status))),
			ui.RenderPriority(t.Priority),
			ui.Truncate(t.Title, width),
		)
	}
	return nil
}

func newShowCmd(c *cli) *cobra.Command {
	var field string
	var watch bool
	cmd := &cobra.Command{
		Use:     "show <id>",
		GroupID: "tickets",
		Short:   "Show a ticket",
		Long: `Show a ticket. The id may be a unique prefix of at least four characters.
With --field only one of title, body, status or priority is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			render := func(ctx context.Context) error {
				if field != "" {
					v, err := c.ws.Field(ctx, id, tix.Field(field))
					if err != nil {
						return err
					}
					c.printf("%s\n", v)
					return nil
				}
				t, err := c.ws.Show(ctx, id)
				if err != nil {
					return err
				}
				return c.renderTicket(t)
			}
			if watch {
				return c.watch(cmd.Context(), render)
			}
			return render(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", "", "Print one field: title, body, status or priority")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render whenever the ticket changes")
	return cmd
}

func (c *cli) renderTicket(t *tix.Ticket) error {
	if c.jsonOut {
		return c.outputJSON(toJSON(t))
	}
	c.printf("%s %s\n", ui.RenderAccent(t.ID), ui.RenderCategory(t.Title))
	c.printf("Status: %s  Priority: %s\n", ui.RenderStatus(t.Status), ui.RenderPriority(t.Priority))
	c.printf("%s\n", ui.RenderMuted(fmt.Sprintf("Created %s  Updated %s",
		t.CreatedAt.Local().Format(time.DateTime), t.UpdatedAt.Local().Format(time.DateTime))))
	if t.Body != "" {
		c.printf("\n%s\n", t.Body)
	}
	return nil
}
