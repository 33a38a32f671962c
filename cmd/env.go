package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/scenescout/extract-cli/internal/learner"
	"github.com/scenescout/extract-cli/internal/lifecycle"
	"github.com/scenescout/extract-cli/internal/matcher"
	"github.com/scenescout/extract-cli/internal/store"
	"github.com/scenescout/extract-cli/internal/venue"
)

// engineEnv bundles the wired components a command needs.
type engineEnv struct {
	Store    store.Store
	Matcher  *matcher.Matcher
	Learner  *learner.Learner
	Resolver *venue.Resolver
	Manager  *lifecycle.Manager
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "extract.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEngine(ctx context.Context) (*engineEnv, error) {
	if err := cfg.Validate("cli"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	return &engineEnv{
		Store: st,
		Matcher: matcher.New(st, matcher.Options{
			MinConfidence: cfg.Engine.MinConfidence,
			MaxPatterns:   cfg.Engine.MaxPatterns,
		}),
		Learner: learner.New(st, learner.Options{
			MinValues:    cfg.Engine.MinCorrections,
			MinReplays:   cfg.Engine.MinReplays,
			PromoteRatio: cfg.Engine.PromoteRatio,
		}),
		Resolver: venue.NewResolver(st, venue.Options{
			Threshold:  cfg.Engine.FuzzyThreshold,
			MaxResults: cfg.Engine.FuzzyMaxResults,
		}),
		Manager: lifecycle.NewManager(st),
	}, nil
}

func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}
