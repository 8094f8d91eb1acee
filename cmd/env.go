package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/crm"
	"github.com/sells-group/leadledger/internal/fetcher"
	"github.com/sells-group/leadledger/internal/ledger"
	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/monitoring"
	"github.com/sells-group/leadledger/internal/normalize"
	"github.com/sells-group/leadledger/internal/resilience"
	"github.com/sells-group/leadledger/internal/store"
	"github.com/sells-group/leadledger/internal/summary"
)

// appEnv holds the wired store, ledger and command surface shared by every
// subcommand.
type appEnv struct {
	Store     store.Store
	Ledger    *ledger.Ledger
	Service   *crm.Service
	Completer summary.Completer // nil when summaries are off
	Alerter   *monitoring.Alerter
}

// Close releases the store.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for mode and builds the environment. Callers
// should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Key:         cfg.Store.Key,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	led, err := ledger.Open(ctx, st, ledger.Options{Key: cfg.Store.Key})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	timeout := time.Duration(cfg.Sources.TimeoutSecs) * time.Second
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:     cfg.Sources.UserAgent,
		Timeout:       timeout,
		RatePerSecond: cfg.Sources.RatePerSecond,
	})
	breakers := resilience.NewBreakers(resilience.NewBreakerConfig(
		cfg.Sources.FailureThreshold,
		time.Duration(cfg.Sources.ResetTimeoutSecs)*time.Second,
	))
	sources := fetcher.NewSources(cfg.Sources.URLs, httpFetcher, timeout, fetcher.WithBreakers(breakers))

	summarizer, completer, err := summary.NewFromConfig(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if completer == nil {
		zap.L().Debug("summary provider off, suggestions use the placeholder")
	}

	alerter := monitoring.NewAlerter(cfg.Alerts)

	svc := crm.New(crm.Deps{
		Ledger:     led,
		Sources:    sources,
		Normalizer: normalize.New("csv", cfg.Phone.DefaultRegion),
		Summarizer: summarizer,
		Notifier:   alerter,
		Accounts:   crm.AccountsFromConfig(cfg.Users),
		Master:     cfg.Sources.Master,
		Threshold:  time.Duration(cfg.Alerts.ThresholdSecs) * time.Second,
	})

	return &appEnv{
		Store:     st,
		Ledger:    led,
		Service:   svc,
		Completer: completer,
		Alerter:   alerter,
	}, nil
}

// currentUser authenticates the --user/--password pair.
func (e *appEnv) currentUser() (model.User, error) {
	if flagUser == "" {
		return model.User{}, eris.Wrap(model.ErrUnauthorized, "--user is required")
	}
	return e.Service.Authenticate(flagUser, flagPassword)
}

// requireAdmin authenticates and rejects non-admin users.
func (e *appEnv) requireAdmin() (model.User, error) {
	u, err := e.currentUser()
	if err != nil {
		return u, err
	}
	if !u.IsAdmin() {
		return u, eris.Wrapf(model.ErrUnauthorized, "%s is not an admin", u.Username)
	}
	return u, nil
}
