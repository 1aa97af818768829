package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tixhq/tix"
)

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "init",
		GroupID: "setup",
		Short:   "Create a tix workspace in the current directory",
		Long: `Create a tix workspace: a .tix directory holding a git repository with
the ticket store, config.yaml and remotes.toml, plus one initial commit.

Running init again on an existing workspace is safe. It repairs missing
layout files and never touches existing tickets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.ws.Init(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.outputJSON(map[string]string{"result": res.String(), "root": c.ws.Root()})
			}
			if res == tix.Reinitialized {
				c.printf("Reinitialized existing tix workspace in %s\n", c.ws.Root())
			} else {
				c.printf("Initialized empty tix workspace in %s\n", c.ws.Root())
			}
			return nil
		},
	}
}

func newCloneCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "clone <url>",
		GroupID: "setup",
		Short:   "Create a workspace by cloning a remote tix repository",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ws.Clone(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.printf("Cloned %s into %s\n", args[0], c.ws.Root())
			return nil
		},
	}
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: "setup",
		Short:   "Read and write workspace configuration",
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a config key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.ws.ConfigGet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.outputJSON(map[string]string{args[0]: v})
			}
			c.printf("%s\n", v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key (one commit)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ws.ConfigSet(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			c.printf("Set %s = %s\n", args[0], args[1])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every config key with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := c.ws.ConfigList(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				out := make(map[string]string, len(entries))
				for _, e := range entries {
					out[e.Key] = e.Value
				}
				return c.outputJSON(out)
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s = %s", e.Key, e.Value)
				if !e.IsSet {
					line += " (default)"
				}
				c.printf("%s\n", line)
			}
			return nil
		},
	}

	cmd.AddCommand(get, set, list)
	return cmd
}

func newRemoteCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remote",
		GroupID: "setup",
		Short:   "Manage named remotes",
	}

	add := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a remote (one commit)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ws.RemoteAdd(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			c.printf("Added remote %s\n", args[0])
			return nil
		},
	}

	var urls bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			remotes, err := c.ws.RemoteList(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				out := make([]map[string]string, 0, len(remotes))
				for _, r := range remotes {
					out = append(out, map[string]string{"name": r.Name, "url": r.URL})
				}
				return c.outputJSON(out)
			}
			for _, r := range remotes {
				if urls {
					c.printf("%s\t%s\n", r.Name, r.URL)
				} else {
					c.printf("%s\n", r.Name)
				}
			}
			return nil
		},
	}
	list.Flags().BoolVarP(&urls, "urls", "u", false, "Show URLs next to names")

	cmd.AddCommand(add, list)
	return cmd
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if c.jsonOut {
				_ = c.outputJSON(map[string]string{"version": Version, "build": Build})
				return
			}
			c.printf("tix version %s (%s)\n", Version, Build)
		},
	}
}
