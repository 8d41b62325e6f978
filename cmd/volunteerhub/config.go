package main

import (
	"context"
	"fmt"

	"volunteerhub/internal/db"
	"volunteerhub/internal/store"
	"volunteerhub/internal/store/memory"
	"volunteerhub/internal/workflow"
	"volunteerhub/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func loadConfig(cCtx *cli.Context, requireDatabase bool) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(cCtx.String("env-prefix"), c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if requireDatabase && c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	return c, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithError(err).WithField("level", level).Warn("invalid log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

// backend is the set of stores the engine runs on, either Postgres or the
// in-memory store.
type backend struct {
	repos    workflow.Repositories
	profiles interface {
		workflow.RoleStore
		CreateProfile(ctx context.Context, profile *types.Profile) error
	}
	close func()
}

func openBackend(ctx context.Context, cfg *types.Config, inMemory bool) (*backend, error) {
	if inMemory {
		st := memory.New()
		return &backend{
			repos: workflow.Repositories{
				Profiles:      st,
				Opportunities: st,
				Applications:  st,
				Messages:      st,
				Reviews:       st,
				AdminActions:  st,
			},
			profiles: st,
			close:    func() {},
		}, nil
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	profiles := store.NewProfileRepository(pool)

	return &backend{
		repos: workflow.Repositories{
			Profiles:      profiles,
			Opportunities: store.NewOpportunityRepository(pool),
			Applications:  store.NewApplicationRepository(pool),
			Messages:      store.NewMessageRepository(pool),
			Reviews:       store.NewReviewRepository(pool),
			AdminActions:  store.NewAdminActionRepository(pool),
		},
		profiles: profiles,
		close:    pool.Close,
	}, nil
}
