package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/statebox/cmd/statebox/commands"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("statebox"),
		kong.Description("Persistent release-workflow state tracking over a versioned document store."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&commands.Global{}, &cli)
	ctx.FatalIfErrorf(err)
}
