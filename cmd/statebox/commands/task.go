package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/statebox/internal/statebox"
)

// TaskCmd groups the task subcommands.
type TaskCmd struct {
	Update TaskUpdateCmd `cmd:"" help:"Record a task status transition"`
	Get    TaskGetCmd    `cmd:"" help:"Show a task's current state"`
}

// TaskUpdateCmd implements 'task update'.
type TaskUpdateCmd struct {
	Release string `short:"r" required:"" help:"Release identifier (e.g. 4.16.9)"`
	Name    string `arg:"" help:"Task name (e.g. stage-testing)"`
	Status  string `arg:"" help:"New status: NotStarted, InProgress, Pass or Fail"`
	Result  string `help:"Free-form result text; read from stdin with '-'"`
}

func (t *TaskUpdateCmd) Run(_ *Global, root *CLI) error {
	name, err := statebox.ParseTaskName(t.Name)
	if err != nil {
		return err
	}
	status, err := statebox.ParseTaskStatus(t.Status)
	if err != nil {
		return err
	}

	result := t.Result
	if result == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read result from stdin: %w", err)
		}
		result = string(data)
	}

	box, closeBox, err := openStateBox(root, t.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	task, err := box.UpdateTask(context.Background(), name, status, result)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s -> %s\n", t.Release, task.Name, task.Status)
	return nil
}

// TaskGetCmd implements 'task get'.
type TaskGetCmd struct {
	Release string `short:"r" required:"" help:"Release identifier"`
	Name    string `arg:"" help:"Task name"`
	Format  string `short:"f" default:"text" enum:"text,json" help:"Output format (text or json)"`
}

func (t *TaskGetCmd) Run(_ *Global, root *CLI) error {
	name, err := statebox.ParseTaskName(t.Name)
	if err != nil {
		return err
	}

	box, closeBox, err := openStateBox(root, t.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	task, ok, err := box.GetTask(context.Background(), name)
	if err != nil {
		return err
	}
	if !ok {
		task = statebox.Task{Name: name, Status: statebox.StatusNotStarted}
	}

	if t.Format == "json" {
		return printJSON(os.Stdout, task)
	}
	fmt.Printf("%s: %s\n", task.Name, task.Status)
	if task.StartedAt != nil {
		fmt.Printf("  started:   %s\n", task.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if task.CompletedAt != nil {
		fmt.Printf("  completed: %s\n", task.CompletedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if task.Result != "" {
		fmt.Printf("  result: %s\n", task.Result)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
