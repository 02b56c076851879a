package commands

import (
	"fmt"

	"git.home.luguber.info/inful/statebox/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	fmt.Printf("Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Println("initialized successfully")
	return nil
}
