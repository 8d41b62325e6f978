package main

import (
	"fmt"

	"volunteerhub/internal/seed"
	"volunteerhub/internal/workflow"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with development data",
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

		logger.Info("Connected to database")

		engine := workflow.New(logger, be.repos, nil)
		if err := seed.Run(c.Context, logger, engine, be.profiles); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}

		logger.Info("Seed data loaded successfully")

		return nil
	},
}
