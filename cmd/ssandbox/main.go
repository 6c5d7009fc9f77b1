// Command ssandbox is a thin driver over the container package: it loads a
// TOML config file and runs or manages the resulting sandbox from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/szdytom/ssandbox/container"
)

func main() {
	// Must come before anything else: argv[0] == "ssandbox-init" means this
	// process is the re-exec'd child, not a CLI invocation.
	if container.Init() {
		return
	}

	app := &cli.App{
		Name:  "ssandbox",
		Usage: "run and manage process sandboxes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a sandbox TOML config file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start a sandbox and wait for it to exit",
				Action: func(ctx *cli.Context) error {
					cfg, err := configFromContext(ctx)
					if err != nil {
						return cli.Exit(err, 1)
					}

					c := container.New(cfg)
					if err := c.Start(); err != nil {
						return cli.Exit(fmt.Sprintf("failed to start sandbox: %v", err), 1)
					}
					defer c.Delete()

					if err := c.Wait(); err != nil {
						return cli.Exit(fmt.Sprintf("sandbox exited with error: %v", err), 1)
					}
					return nil
				},
			},
			{
				Name:      "freeze",
				Usage:     "freeze a running sandbox",
				ArgsUsage: "<uid>",
				Action:    notImplemented,
			},
			{
				Name:      "thaw",
				Usage:     "thaw a frozen sandbox",
				ArgsUsage: "<uid>",
				Action:    notImplemented,
			},
			{
				Name:      "delete",
				Usage:     "terminate and clean up a sandbox",
				ArgsUsage: "<uid>",
				Action:    notImplemented,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFromContext(ctx *cli.Context) (*container.Config, error) {
	path := ctx.String("config")
	if path == "" {
		return container.DefaultConfig(), nil
	}
	return loadConfig(path)
}

// notImplemented backs the freeze/thaw/delete subcommands, which need a
// persistent registry of sandbox UID -> Container to attach to; that
// registry lives outside this driver's scope for now.
func notImplemented(ctx *cli.Context) error {
	return cli.Exit("this subcommand requires a running sandbox registry, not yet wired into this driver", 1)
}
