package tix_test

import (
	"context"
	"fmt"
	"os"

	"github.com/tixhq/tix"
	"github.com/tixhq/tix/internal/git"
)

func Example() {
	ctx := context.Background()
	root, _ := os.MkdirTemp("", "tix-example-*")
	defer os.RemoveAll(root)

	ws, err := tix.Open(root,
		tix.WithSettings(tix.Settings{GitBinary: "git", DefaultProject: "main", Actor: "example"}),
		tix.WithRepo(func(dir string) git.Repo { return git.NewMemory(dir) }),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := ws.Init(ctx); err != nil {
		fmt.Println(err)
		return
	}

	id, _ := ws.Add(ctx, "Write the release notes", "", tix.PriorityB)
	_ = ws.Move(ctx, id, 'w')

	t, _ := ws.Show(ctx, id)
	fmt.Println(t.Title, t.Status, t.Priority)

	_, _ = ws.Undo(ctx)
	status, _ := ws.Field(ctx, id, tix.FieldStatus)
	fmt.Println("after undo:", status)

	// Output:
	// Write the release notes doing b
	// after undo: b
}
