package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volunteerhub/internal/notify"
	"volunteerhub/internal/server"
	"volunteerhub/internal/storage"
	"volunteerhub/internal/workflow"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "in-memory",
			Usage: "Keep all state in memory instead of Postgres",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inMemory := cCtx.Bool("in-memory")

	config, err := loadConfig(cCtx, !inMemory)
	if err != nil {
		return err
	}

	logger := newLogger(config.LogLevel)

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)
	documents := storage.NewDocumentStore(s3.NewFromConfig(awsConfig), config.S3BucketName)

	be, err := openBackend(ctx, config, inMemory)
	if err != nil {
		return err
	}
	defer be.close()

	if inMemory {
		logger.Warn("running with in-memory store, data is lost on shutdown")
	}

	emitter := notify.NewEmitter(logger, be.repos.Messages, config.NotifyQueueSize, time.Duration(config.NotifyTimeoutSec)*time.Second)
	engine := workflow.New(logger, be.repos, emitter)

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		engine,
		cognitoClient,
		documents,
		server.NewJWKSVerifier(jwkCache, jwksURL),
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	return emitter.Close(shutdownCtx)
}
