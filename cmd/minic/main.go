package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/minic-lang/minic/compiler"
	"github.com/minic-lang/minic/compiler/front"
)

// minic.yaml in the working directory overrides the defaults.
const configFile = "minic.yaml"

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse files and dump the syntax tree",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "lower files and dump the intermediate representation",
		Action:      irAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile files to arm32 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "minic",
		Description: "minic is a MiniC to arm32 assembly compiler",
		Commands: []*cli.Command{
			parseCmd,
			irCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		x, err := front.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		fmt.Printf("ast: %+v\n", x)
	}

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		b, err := compiler.IRText(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "lower %v", a)
		}

		fmt.Printf("%s", b)
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, a, cfg)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		fmt.Printf("%s", obj)
	}

	return nil
}

func loadConfig() (*compiler.Config, error) {
	cfg := &compiler.Config{}

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read %v", configFile)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", configFile)
	}

	return cfg, nil
}
