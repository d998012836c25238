// Package wire provides dependency injection for the migreview application.
// It creates singleton services with lazy initialization.
package wire

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	cliadapter "github.com/example/migreview/internal/adapters/cli"
	"github.com/example/migreview/internal/adapters/migrationapi"
	"github.com/example/migreview/internal/adapters/sqlite"
	"github.com/example/migreview/internal/app"
	"github.com/example/migreview/internal/config"
	"github.com/example/migreview/internal/db"
	"github.com/example/migreview/internal/ports/primary"
	"github.com/example/migreview/internal/store"
)

var (
	cfg           *config.Config
	reviewService primary.ReviewService
	once          sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// ReviewService returns the singleton ReviewService instance.
func ReviewService() primary.ReviewService {
	once.Do(initServices)
	return reviewService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	logger := config.GetLogger()

	cwd, err := os.Getwd()
	if err != nil {
		fatal(logger, "Getwd", err)
	}
	cfg, err = config.LoadConfig(cwd)
	if err != nil {
		fatal(logger, "LoadConfig", err)
	}
	if err := config.ConfigureLogger(cfg); err != nil {
		fatal(logger, "ConfigureLogger", err)
	}

	// Local draft storage
	database, err := db.GetDB(cfg.DBPath)
	if err != nil {
		fatal(logger, "GetDB", err)
	}
	drafts := sqlite.NewDraftRepository(database)

	// Remote migration service
	client, err := migrationapi.NewClient(cfg.ServiceURL, cfg.Timeout(), logger)
	if err != nil {
		fatal(logger, "NewClient", err)
	}

	st := store.New()
	executor := app.NewEffectExecutor(client, st, logger, cfg.FixConcurrency)
	reviewService = app.NewReviewService(client, drafts, st, executor, logger)

	logger.WithFields(logrus.Fields{
		"service": cfg.ServiceURL,
		"db":      cfg.DBPath,
	}).Debug("services initialized")
}

func fatal(logger *logrus.Logger, funcName string, err error) {
	config.LogError(logger, "wire", funcName, nil, err)
	os.Exit(1)
}

// ReviewAdapter returns a new ReviewAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func ReviewAdapter() *cliadapter.ReviewAdapter {
	return ReviewAdapterWithOutput(os.Stdout)
}

// ReviewAdapterWithOutput returns a new ReviewAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func ReviewAdapterWithOutput(out io.Writer) *cliadapter.ReviewAdapter {
	once.Do(initServices)
	return cliadapter.NewReviewAdapter(reviewService, out)
}
