package main

import (
	"fmt"

	"volunteerhub/internal/workflow"

	"github.com/urfave/cli/v2"
)

var adminCommand = &cli.Command{
	Name:  "admin",
	Usage: "Manage admin accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "grant",
			Usage: "Promote an existing profile to admin",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "profile-id",
					Usage:    "Profile (Cognito subject) to promote",
					Required: true,
				},
			},
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c, true)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}

				logger := newLogger(cfg.LogLevel)

				be, err := openBackend(c.Context, cfg, false)
				if err != nil {
					return err
				}
				defer be.close()

				engine := workflow.New(logger, be.repos, nil)

				profile, err := engine.GrantAdmin(c.Context, be.profiles, c.String("profile-id"))
				if err != nil {
					return err
				}

				fmt.Printf("%s is now %s\n", profile.ID, profile.UserType)
				return nil
			},
		},
	},
}
