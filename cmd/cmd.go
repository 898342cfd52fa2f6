package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   "config.toml",
	}
}

func emailFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Customer email address",
		Required: true,
	}
}

// serveCommand runs the HTTP fulfillment service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the download-access and fulfillment HTTP service",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// setupCommand groups one-time setup actions.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the database or write a config file",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the database and apply migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write an example config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination path",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// seedCommand loads the catalog file into the database.
func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed the pack and track tables from a catalog file",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Path to catalog TOML file",
			},
		},
		Action: r.Seed,
	}
}

// adminCommand groups read-only inspection tooling.
func adminCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Inspect customer entitlements and orders",
		Commands: []*cli.Command{
			{
				Name:   "entitlements",
				Usage:  "Print every entitlement row held by an email",
				Flags:  []cli.Flag{configFlag(), emailFlag()},
				Action: r.AdminEntitlements,
			},
			{
				Name:   "orders",
				Usage:  "Print the order history for an email",
				Flags:  []cli.Flag{configFlag(), emailFlag()},
				Action: r.AdminOrders,
			},
			{
				Name:   "tui",
				Usage:  "Browse a customer's entitled packs interactively",
				Flags:  []cli.Flag{configFlag(), emailFlag()},
				Action: r.AdminTUI,
			},
		},
	}
}
