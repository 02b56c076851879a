package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/statebox/internal/statebox"
)

// StatusCmd implements the 'status' command: a full snapshot of one release.
type StatusCmd struct {
	Release string `short:"r" required:"" help:"Release identifier"`
	Refresh bool   `help:"Bypass the instance cache and re-read the store"`
	Format  string `short:"f" default:"text" enum:"text,json" help:"Output format (text or json)"`
}

func (s *StatusCmd) Run(_ *Global, root *CLI) error {
	box, closeBox, err := openStateBox(root, s.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	doc, err := box.Load(context.Background(), s.Refresh)
	if err != nil {
		return err
	}

	if s.Format == "json" {
		return printJSON(os.Stdout, doc)
	}

	fmt.Printf("release %s (updated %s)\n", doc.Release, doc.UpdatedAt.Format("2006-01-02 15:04:05 MST"))

	if len(doc.Metadata) > 0 {
		fmt.Println("metadata:")
		for k, v := range doc.Metadata {
			fmt.Printf("  %s: %v\n", k, v)
		}
	}

	fmt.Println("tasks:")
	for _, name := range statebox.TaskCatalog() {
		status := statebox.StatusNotStarted
		if t := doc.FindTask(name); t != nil {
			status = t.Status
		}
		fmt.Printf("  %-25s %s\n", name, status)
	}

	var open, blockers int
	for _, is := range doc.Issues {
		if !is.Resolved {
			open++
			if is.Blocker {
				blockers++
			}
		}
	}
	fmt.Printf("issues: %d total, %d open, %d blocking\n", len(doc.Issues), open, blockers)
	return nil
}
