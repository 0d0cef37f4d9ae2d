package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ridgeline-services/fieldops/internal/db"
	"github.com/ridgeline-services/fieldops/internal/model"
	"github.com/ridgeline-services/fieldops/internal/store"
	"github.com/ridgeline-services/fieldops/internal/taxcalc"
	"github.com/ridgeline-services/fieldops/internal/taxsync"
	"github.com/ridgeline-services/fieldops/pkg/geocode"
	"github.com/ridgeline-services/fieldops/pkg/invoicing"
)

// env bundles the wired subsystems a command needs. One explicit handle per
// process; nothing is cached in package state.
type env struct {
	store      *store.PostgresStore
	invoicing  invoicing.Client
	geocoder   geocode.Client
	syncer     *taxsync.Syncer
	calculator *taxcalc.Calculator
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// openStore connects to Postgres only.
func openStore(ctx context.Context) (*store.PostgresStore, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is not configured")
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
}

// initEnv wires the full pipeline: store, provider clients, and both stages.
func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	inv := invoicing.NewClient(
		cfg.Invoicing.BaseURL,
		cfg.Invoicing.Username,
		cfg.Invoicing.Password,
		invoicing.WithRateLimit(cfg.Invoicing.RateLimit),
		invoicing.WithSessionTTL(sessionTTL()),
	)

	geoOpts := []geocode.Option{
		geocode.WithBenchmark(cfg.Geocode.Benchmark, cfg.Geocode.Vintage),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
	}
	if cfg.Geocode.CountyShapefile != "" {
		idx, err := geocode.LoadCountyIndex(cfg.Geocode.CountyShapefile)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		geoOpts = append(geoOpts, geocode.WithCountyFallback(idx))
	}
	geo := geocode.NewClient(geoOpts...)

	syncLock := db.NewRunLock(st.Pool(), string(model.RunTypeSync))
	calcLock := db.NewRunLock(st.Pool(), string(model.RunTypeCalculate))

	return &env{
		store:      st,
		invoicing:  inv,
		geocoder:   geo,
		syncer:     taxsync.New(st, inv, syncLock, cfg.Invoicing.PageSize),
		calculator: taxcalc.New(st, geo, calcLock, cfg.Tax),
	}, nil
}
