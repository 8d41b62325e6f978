package main

import (
	"fmt"

	"volunteerhub/internal/db"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply pending database migrations",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c, true)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg.LogLevel)

		pool, err := db.Connect(c.Context, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		applied, err := db.Migrate(c.Context, pool, logger)
		if err != nil {
			return err
		}

		logger.WithField("applied", applied).Info("migrations complete")
		return nil
	},
}
