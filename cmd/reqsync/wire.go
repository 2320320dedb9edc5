package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/reqsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reqsync/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/reqsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/reqsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/reqsync/internal/config"
	"github.com/custodia-labs/reqsync/internal/connectors/filesystem"
	"github.com/custodia-labs/reqsync/internal/connectors/github"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
	"github.com/custodia-labs/reqsync/internal/core/services"
	"github.com/custodia-labs/reqsync/internal/logger"
	"github.com/custodia-labs/reqsync/internal/normalisers/markdown"
)

// wire builds the stores and services named by cfg.
func wire(ctx context.Context, cfg *config.Config) (*cli.Services, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	mirror, lock, closeMirror, err := openMirror(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeMirror)

	authority, err := openAuthority(cfg)
	if err != nil {
		closeAll()
		return nil, err
	}

	rules, err := markdown.LoadRules(cfg.RulesFile)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("loading parser rules: %w", err)
	}
	norm := markdown.New(rules)

	ingest := services.NewIngestService(norm, mirror,
		services.WithWriteThrough(authority, norm),
		services.WithIngestTimeout(cfg.StoreTimeout),
	)
	reconciler := services.NewReconciler(authority, mirror, norm, ingest,
		services.WithRunLock(lock),
		services.WithReconcileTimeout(cfg.StoreTimeout),
	)
	documents := services.NewDocumentService(mirror, authority, norm)

	return &cli.Services{
		Ingest:     ingest,
		Reconciler: reconciler,
		Documents:  documents,
		Close:      closeAll,
	}, nil
}

func openMirror(ctx context.Context, cfg *config.Config) (driven.MirrorStore, driven.RunLock, func(), error) {
	switch cfg.Mirror.Driver {
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, postgres.Config{URL: cfg.Mirror.DSN, MaxConns: cfg.Mirror.MaxConns}, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, nil, err
		}
		logger.Debug("Mirror store: postgres")
		return st.MirrorStore(), st.RunLock(), st.Close, nil

	case config.DriverMemory:
		logger.Debug("Mirror store: memory")
		return memory.NewMirrorStore(), memory.NewRunLock(), func() {}, nil

	default:
		st, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening mirror store: %w", err)
		}
		logger.Debug("Mirror store: %s", st.Path())
		closeFn := func() {
			if err := st.Close(); err != nil {
				logger.Warn("closing mirror store: %v", err)
			}
		}
		return st.MirrorStore(), st.RunLock(cfg.Mirror.LockTTL), closeFn, nil
	}
}

func openAuthority(cfg *config.Config) (driven.AuthoritativeStore, error) {
	if cfg.Authority.Backend != config.BackendGitHub {
		logger.Debug("Authoritative store: %s", cfg.Authority.Root)
		return filesystem.NewStore(cfg.Authority.Root), nil
	}

	gh := cfg.Authority.GitHub
	repo, err := github.ParseRepository(gh.Repository)
	if err != nil {
		return nil, err
	}
	repo.Branch = gh.Branch
	repo.Dir = gh.Dir

	opts := []github.ClientOption{github.WithRate(gh.Rate)}
	if gh.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(gh.BaseURL))
	}
	client, err := github.NewClientWithToken(gh.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}
	logger.Debug("Authoritative store: github.com/%s", repo.Repository())
	return github.NewStore(client, repo)
}
