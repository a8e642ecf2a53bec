package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/refaktor/zigbind/config"
	"github.com/refaktor/zigbind/logging"
)

type CLI struct {
	Config   string `help:"Driver configuration (TOML or YAML)" short:"c" default:"zigbind.toml" type:"path"`
	LogLevel string `help:"Log level" default:"info" enum:"trace,debug,info,warn,error" env:"ZIGBIND_LOG_LEVEL"`

	Generate GenerateCmd `cmd:"" default:"withargs" help:"Generate bindings and shims for the configured targets"`
	List     ListCmd     `cmd:"" help:"Write each target's symbol list"`
	Dump     DumpCmd     `cmd:"" help:"Parse the headers and write their declarations as JSON"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("zigbind"),
		kong.Description("Generate Zig bindings for C and C++ headers"),
		kong.UsageOnError(),
		// Flags override CLI defaults from the working directory.
		kong.Configuration(kongtoml.Loader, "zigbind-cli.toml"),
		kong.Configuration(kongyaml.Loader, "zigbind-cli.yaml", "zigbind-cli.yml"),
	)

	level, err := logging.ParseLevel(cli.LogLevel)
	ctx.FatalIfErrorf(err)
	ctx.Bind(logging.NewHandler(os.Stderr, &logging.Options{Level: level}))

	if err := ctx.Run(&cli); err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cfgErr.String())
			os.Exit(1)
		}
		ctx.FatalIfErrorf(err)
	}
}
