package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/campaign"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/settings"
	"github.com/sells-group/prospect-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "prospects.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// appEnv holds the services shared by the campaign, leads, settings and
// serve commands.
type appEnv struct {
	Store     store.Store
	Settings  *settings.Manager
	Campaigns *campaign.Service
	Metrics   *metrics.Metrics
}

// Close releases the store.
func (a *appEnv) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}

// initApp opens the store and wires the campaign service for the given
// config mode. Callers should defer env.Close().
func initApp(ctx context.Context, mode string, sink enrich.EventSink) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	sm := settings.NewManager(st, settings.Defaults(cfg))
	svc := campaign.NewService(st, sm, campaign.NewFactory(cfg, st, m),
		campaign.WithEventSink(sink),
		campaign.WithGuard(campaign.NewGuard(cfg.Pipeline.MaxActiveCampaigns)),
		campaign.WithMetrics(m),
	)
	return &appEnv{Store: st, Settings: sm, Campaigns: svc, Metrics: m}, nil
}
