package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "Lootbox"
	app.Usage = ""
	app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start the api service",
			Category:    "Api",
			Description: `Serves the lootbox purchase and administration APIs.`,
		},
		{
			Action:   s.startMigrate,
			Name:     "migrate",
			Usage:    "Apply pending database migrations",
			Category: "Database",
		},
	}

	s.app = app
}
