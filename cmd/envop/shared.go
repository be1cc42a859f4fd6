package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/config"
	"github.com/michaelbrown/envop/internal/environ"
	"github.com/michaelbrown/envop/internal/storage"
	"github.com/michaelbrown/envop/internal/storage/sqlite"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openStore opens the command journal, or returns nil when it is disabled.
func openStore(cfg *config.Config) (storage.Store, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

// session is everything a one-shot subcommand needs.
type session struct {
	cfg   *config.Config
	store storage.Store
	env   *environ.Environment
}

// openSession loads config, the journal and the environment picked by --env.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	name := envFlag
	if name == "" {
		name = cfg.Operator.Env
	}
	env, err := environ.Open(cfg, name, store, nil)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return &session{cfg: cfg, store: store, env: env}, nil
}

// Close removes a sandbox created during the session and closes the journal.
func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.env.Close(ctx); err != nil {
		logrus.WithError(err).Warn("failed to close environment")
	}
	if s.store != nil {
		s.store.Close()
	}
}
