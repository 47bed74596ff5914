package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"energy-billing/internal/config"
	"energy-billing/internal/ledger"
	"energy-billing/internal/source"
	"energy-billing/internal/state"
)

// FromConfig builds the source, store and ledger named by cfg and opens a
// Runtime over them. The caller owns the runtime and must Close it.
func FromConfig(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	sched, err := cfg.BuySchedule()
	if err != nil {
		return nil, fmt.Errorf("buy schedule: %w", err)
	}
	src, err := NewSource(cfg, log)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	lw, err := ledger.New(cfg.Ledger.Mode, cfg.OutputDir, cfg.Ledger.Missing, cfg.RoundDecimals)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rt, err := New(ctx, Options{
		InstanceID:    cfg.InstanceID,
		ForwardEntity: cfg.Meters.ForwardEntity,
		ReverseEntity: cfg.Meters.ReverseEntity,
		Source:        src,
		Store:         store,
		Ledger:        lw,
		BuySchedule:   sched,
		SellRate:      cfg.SellRate(),
		Currency:      cfg.Tariff.Currency,
		RoundDecimals: cfg.RoundDecimals,
		CostDecimals:  cfg.Tariff.CostDecimals,
		Location:      loc,
		Logger:        log,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	rt.interval = cfg.Interval()
	return rt, nil
}

// NewSource returns the meter source selected by cfg.Source.Kind.
func NewSource(cfg *config.Config, log zerolog.Logger) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceHomeAssistant:
		return source.NewHomeAssistantClient(cfg.Source.Token, cfg.Source.BaseURL, cfg.Source.Timeout, log), nil
	case config.SourceStatic:
		return source.NewStaticSource(cfg.Source.Static), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrSourceKind, cfg.Source.Kind)
	}
}

// OpenStore opens the state store selected by cfg.State.Kind.
func OpenStore(ctx context.Context, cfg *config.Config) (state.Store, error) {
	switch cfg.State.Kind {
	case config.StateFile, "":
		return state.NewFileStore(cfg.StatePath()), nil
	case config.StateSQLite:
		return state.OpenSQLite(ctx, cfg.StatePath(), cfg.InstanceID)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrStateKind, cfg.State.Kind)
	}
}

// Close stops the timer and releases the store.
func (r *Runtime) Close() error {
	r.Stop()
	return r.opts.Store.Close()
}

// Run starts the timer at the configured interval and blocks until ctx ends.
// The first cycle runs immediately.
func (r *Runtime) Run(ctx context.Context) error {
	if _, err := r.Update(ctx); err != nil {
		r.log.Warn().Err(err).Msg("initial update")
	}
	interval := r.Interval()
	if interval <= 0 {
		interval = time.Minute
	}
	cancel := r.Start(ctx, interval)
	defer cancel()
	<-ctx.Done()
	return ctx.Err()
}
