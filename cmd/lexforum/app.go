package main

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/LexForumLab/lexforum/client/internal/api"
	"github.com/LexForumLab/lexforum/client/internal/cache"
	"github.com/LexForumLab/lexforum/client/internal/config"
	"github.com/LexForumLab/lexforum/client/internal/draft"
	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/journal"
	"github.com/LexForumLab/lexforum/client/internal/logging"
	"github.com/LexForumLab/lexforum/client/internal/mutation"
	"github.com/LexForumLab/lexforum/client/internal/resource"
	"github.com/LexForumLab/lexforum/client/internal/storage/boltdb"
	"github.com/LexForumLab/lexforum/client/internal/undo"
)

// app wires the client core together for the CLI commands.
type app struct {
	cfg      config.AppConfig
	logger   *zap.Logger
	store    *cache.Store
	executor *mutation.Executor
	client   *api.Client
	drafts   *draft.Store
	journal  *journal.Journal
	undo     *undo.Manager

	closers []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	kv, err := boltdb.Open(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, kv.Close)

	db, err := journal.OpenSQLite(cfg.JournalPath, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	a.journal, err = journal.New(db)
	if err != nil {
		a.close()
		return nil, err
	}

	a.store = cache.NewStore(cache.StoreConfig{Logger: logger})
	a.executor, err = mutation.NewExecutor(mutation.ExecutorConfig{
		Store:     a.store,
		Allocator: identity.NewTempAllocator(),
		Logger:    logger,
		Recorder:  a.journal,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.client, err = api.NewClient(api.ClientConfig{
		BaseURL:      cfg.APIBaseURL,
		SessionToken: cfg.SessionToken,
		Timeout:      cfg.NetworkTimeout,
		Logger:       logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.drafts, err = draft.NewStore(draft.StoreConfig{
		Storage: kv,
		IDs:     identity.NewUUIDProvider(),
		Logger:  logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.undo, err = undo.NewManager(undo.ManagerConfig{Store: a.store, Logger: logger})
	if err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.logger.Sync() //nolint:errcheck
}

// callOnce performs the network call with a single retry on transport or
// server-side failures. Application rejections are final.
func callOnce(ctx context.Context, call func() (resource.Entity, error)) (resource.Entity, error) {
	var confirmed resource.Entity
	operation := func() error {
		entity, err := call()
		if err != nil {
			if api.Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		confirmed = entity
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return confirmed, nil
}
