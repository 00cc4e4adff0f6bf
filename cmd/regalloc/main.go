package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/regalloc/allocator"
	"github.com/slowlang/regalloc/allocator/parse"
)

func main() {
	parseCmd := &cli.Command{
		Name:   "parse",
		Action: parseAct,
		Args:   cli.Args{},
	}

	allocCmd := &cli.Command{
		Name:   "alloc",
		Action: allocAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "regalloc",
		Description: "regalloc assigns physical registers to the virtual registers of unit descriptions",
		Commands: []*cli.Command{
			parseCmd,
			allocCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		u, err := parse.Parse(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		fmt.Printf("unit %v: %d vregs, %d physical registers\n", u.Name, u.NumVirtRegs(), u.File.NumRegs())
	}

	return nil
}

func allocAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	out := os.Stdout

	if name := env.Str("REGALLOC_OUT", ""); name != "" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "create %v", name)
		}

		defer func() {
			e := f.Close()
			if err == nil {
				err = errors.Wrap(e, "close %v", name)
			}
		}()

		out = f
	}

	for _, a := range c.Args {
		rep, err := allocator.AllocateFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "allocate %v", a)
		}

		fmt.Fprintf(out, "%s", rep)
	}

	return nil
}
