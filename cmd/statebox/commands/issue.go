package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/statebox/internal/statebox"
)

// IssueCmd groups the issue subcommands.
type IssueCmd struct {
	Add     IssueAddCmd     `cmd:"" help:"Report a new issue against a release"`
	Resolve IssueResolveCmd `cmd:"" help:"Mark an issue as resolved"`
	List    IssueListCmd    `cmd:"" help:"List issues for a release"`
}

// IssueAddCmd implements 'issue add'.
type IssueAddCmd struct {
	Release     string   `short:"r" required:"" help:"Release identifier"`
	Description string   `arg:"" help:"Issue description"`
	Blocker     bool     `short:"b" help:"Mark the issue as blocking"`
	Task        []string `short:"t" help:"Related task name (repeatable)"`
}

func (i *IssueAddCmd) Run(_ *Global, root *CLI) error {
	var related []statebox.TaskName
	for _, raw := range i.Task {
		name, err := statebox.ParseTaskName(raw)
		if err != nil {
			return err
		}
		related = append(related, name)
	}

	box, closeBox, err := openStateBox(root, i.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	issue, created, err := box.AddIssue(context.Background(), i.Description, i.Blocker, related)
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("already tracked: %q\n", issue.Description)
		return nil
	}
	fmt.Printf("recorded: %q\n", issue.Description)
	return nil
}

// IssueResolveCmd implements 'issue resolve'.
type IssueResolveCmd struct {
	Release    string `short:"r" required:"" help:"Release identifier"`
	Query      string `arg:"" help:"Issue description, or an unambiguous substring of it"`
	Resolution string `arg:"" help:"How the issue was resolved"`
}

func (i *IssueResolveCmd) Run(_ *Global, root *CLI) error {
	box, closeBox, err := openStateBox(root, i.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	issue, err := box.ResolveIssue(context.Background(), i.Query, i.Resolution)
	if err != nil {
		return err
	}
	fmt.Printf("resolved: %q\n", issue.Description)
	return nil
}

// IssueListCmd implements 'issue list'.
type IssueListCmd struct {
	Release    string `short:"r" required:"" help:"Release identifier"`
	Unresolved bool   `short:"u" help:"Only show unresolved issues"`
	Blockers   bool   `short:"b" help:"Only show blocking issues"`
	Task       string `short:"t" help:"Only show issues referencing this task"`
	Format     string `short:"f" default:"text" enum:"text,json" help:"Output format (text or json)"`
}

func (i *IssueListCmd) Run(_ *Global, root *CLI) error {
	filter := statebox.IssueFilter{}
	if i.Unresolved {
		resolved := false
		filter.Resolved = &resolved
	}
	if i.Blockers {
		blocker := true
		filter.Blocker = &blocker
	}
	if i.Task != "" {
		name, err := statebox.ParseTaskName(i.Task)
		if err != nil {
			return err
		}
		filter.Task = &name
	}

	box, closeBox, err := openStateBox(root, i.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	issues, err := box.GetIssues(context.Background(), filter)
	if err != nil {
		return err
	}

	if i.Format == "json" {
		return printJSON(os.Stdout, issues)
	}
	if len(issues) == 0 {
		fmt.Println("no issues")
		return nil
	}
	for _, is := range issues {
		marker := " "
		if is.Blocker && !is.Resolved {
			marker = "!"
		}
		state := "open"
		if is.Resolved {
			state = "resolved"
		}
		fmt.Printf("%s [%s] %s\n", marker, state, is.Description)
		if is.Resolved && is.Resolution != "" {
			fmt.Printf("      resolution: %s\n", is.Resolution)
		}
		if len(is.RelatedTasks) > 0 {
			fmt.Printf("      tasks: %v\n", is.RelatedTasks)
		}
	}
	return nil
}
