package main

import (
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/tixhq/tix/internal/validation"
)

// runAddForm collects the fields of a new ticket interactively. Values
// already given on the command line are used as the starting point.
func runAddForm(title, body, priority *string) error {
	if *priority == "" {
		*priority = "z"
	}
	priorityOptions := []huh.Option[string]{
		huh.NewOption("a - Urgent", "a"),
		huh.NewOption("b - High", "b"),
		huh.NewOption("c - Normal", "c"),
		huh.NewOption("z - Whenever (default)", "z"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("Brief summary of the ticket (required)").
				Value(title).
				Validate(func(s string) error {
					_, err := validation.ValidateTitle(s)
					return err
				}),

			huh.NewText().
				Title("Body").
				Description("Details (optional)").
				CharLimit(5000).
				Value(body),

			huh.NewSelect[string]().
				Title("Priority").
				Options(priorityOptions...).
				Value(priority),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errCancelled
		}
		return err
	}
	return nil
}
