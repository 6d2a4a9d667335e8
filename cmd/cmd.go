// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand runs the HTTP API and workflow proxy.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server and workflow proxy",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles account sign-in
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Account sign-in operations",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in via OAuth and claim the daily sign-in bonus",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "email",
						Usage: "Account email (fallback when the provider returns none)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name for new accounts",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check the local API server health",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// rewriteCommand runs the rewrite pipeline from the command line
func rewriteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rewrite",
		Usage: "Rewrite caption text following an instruction (costs points)",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "Account ID or email",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "text",
				Usage: "Source text to rewrite",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Read source text from a file instead of --text",
			},
			&cli.StringFlag{
				Name:     "instruction",
				Aliases:  []string{"i"},
				Usage:    "Rewrite instruction, e.g. 改成卖汉服的",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the result to a file",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, markdown or json",
				Value: "text",
			},
		},
		Action: r.Rewrite,
	}
}

// extractCommand pulls caption text from a short-video link
func extractCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract caption text from a short-video link",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "url",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "Account ID or email",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the result to a file",
			},
		},
		Action: r.Extract,
	}
}

// pointsCommand inspects and mutates the point budget
func pointsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "points",
		Usage: "Point balance operations",
		Commands: []*cli.Command{
			{
				Name:  "balance",
				Usage: "Show the current balance, applying any pending daily reset",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Account ID or email",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PointsBalance,
			},
			{
				Name:  "signin",
				Usage: "Claim the daily sign-in bonus",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Account ID or email",
						Required: true,
					},
				},
				Action: r.PointsSignIn,
			},
		},
	}
}
