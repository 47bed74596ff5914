// Package engine runs the update cycle of one instance: read meters, advance
// accepted totals and baselines, price consumption, persist and publish.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"energy-billing/internal/accounting"
	"energy-billing/internal/ledger"
	"energy-billing/internal/metrics"
	"energy-billing/internal/model"
	"energy-billing/internal/options"
	"energy-billing/internal/source"
	"energy-billing/internal/state"
	"energy-billing/internal/tariff"
)

// Options wires a Runtime. Source, Store and BuySchedule are required.
type Options struct {
	InstanceID    string
	ForwardEntity string
	ReverseEntity string

	Source source.Source
	Store  state.Store
	// Ledger may be nil to disable the ledger.
	Ledger ledger.Writer

	BuySchedule *tariff.Schedule
	SellRate    tariff.FlatRate
	Currency    string

	// RoundDecimals applies to published kWh, CostDecimals to published money
	// (in thousands).
	RoundDecimals int
	CostDecimals  int

	Location *time.Location
	Clock    func() time.Time
	Logger   zerolog.Logger
}

// Runtime is the state of one instance. All mutation goes through one mutex,
// so a scheduled tick and an on-demand recalibration never interleave.
type Runtime struct {
	opts Options
	log  zerolog.Logger

	mu        sync.Mutex
	state     *accounting.State
	tracker   *accounting.Tracker
	baselines *accounting.BaselineStore
	recal     *accounting.Recalibrator

	snapMu   sync.RWMutex
	snapshot model.Snapshot

	obsMu     sync.Mutex
	observers map[int]func(model.Snapshot)
	nextObs   int

	timerMu   sync.Mutex
	stopTimer func()
	timerCtx  context.Context
	interval  time.Duration
}

// New loads the instance state from the store.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: source is required")
	}
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.BuySchedule == nil {
		return nil, errors.New("engine: buy schedule is required")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	st, err := opts.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	r := &Runtime{
		opts:      opts,
		log:       opts.Logger.With().Str("instance", opts.InstanceID).Logger(),
		state:     st,
		tracker:   accounting.NewTracker(st),
		baselines: accounting.NewBaselineStore(st),
		recal:     accounting.NewRecalibrator(st),
		observers: map[int]func(model.Snapshot){},
	}
	r.snapshot = r.compute(opts.Clock().In(opts.Location))
	return r, nil
}

// Snapshot returns the values published by the last cycle.
func (r *Runtime) Snapshot() model.Snapshot {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()
	return r.snapshot
}

// State returns a copy of the accounting document.
func (r *Runtime) State() *accounting.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

func (r *Runtime) Ledger() ledger.Writer { return r.opts.Ledger }

func (r *Runtime) BuySchedule() *tariff.Schedule { return r.opts.BuySchedule }

func (r *Runtime) SellRate() tariff.FlatRate { return r.opts.SellRate }

func (r *Runtime) Now() time.Time { return r.opts.Clock().In(r.opts.Location) }

// Update runs one cycle. Bad meter input never fails it; the returned error is
// a state or ledger I/O failure, and the next cycle retries.
func (r *Runtime) Update(ctx context.Context) (model.Snapshot, error) {
	return r.run(ctx, nil)
}

// Recalibrate applies overrides inside a cycle: meters are read and rolled over
// first, then each override rewrites its baseline, then values are recomputed.
func (r *Runtime) Recalibrate(ctx context.Context, overrides []accounting.Override) (model.Snapshot, error) {
	return r.run(ctx, overrides)
}

// ApplyOptions resolves a one-shot document, recalibrates, and restarts the
// timer when the document changes the interval. The document itself is never
// stored.
func (r *Runtime) ApplyOptions(ctx context.Context, doc options.Document) (model.Snapshot, error) {
	interval, hasInterval, err := doc.Interval()
	if err != nil {
		return r.Snapshot(), err
	}
	overrides := options.Resolve(ctx, doc, r.opts.Source, r.log)
	snap, err := r.Recalibrate(ctx, overrides)
	if hasInterval {
		r.setInterval(interval)
	}
	return snap, err
}

func (r *Runtime) run(ctx context.Context, overrides []accounting.Override) (model.Snapshot, error) {
	start := time.Now()

	r.mu.Lock()
	snap, err := r.cycleLocked(ctx, overrides)
	r.mu.Unlock()

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
		r.log.Error().Err(err).Msg("update cycle")
	}
	metrics.ObserveCycle(result, time.Since(start))

	r.notify(snap)
	return snap, err
}

func (r *Runtime) cycleLocked(ctx context.Context, overrides []accounting.Override) (model.Snapshot, error) {
	now := r.Now()

	buy, sell := source.ReadPair(ctx, r.opts.Source, r.log, r.opts.ForwardEntity, r.opts.ReverseEntity)
	for _, in := range []struct {
		ch model.Channel
		rd model.Reading
	}{{model.ChannelBuy, buy}, {model.ChannelSell, sell}} {
		r.advance(in.ch, in.rd, now)
	}

	for _, o := range overrides {
		kwh := o.KWh
		applied, err := r.recal.Apply(o.Channel, o.Period, &kwh, now)
		if err != nil {
			r.log.Warn().Err(err).Str("channel", string(o.Channel)).Str("period", string(o.Period)).Msg("one-shot value not applied")
			continue
		}
		if applied {
			metrics.IncRecalibration(string(o.Channel), string(o.Period))
			r.log.Info().Str("channel", string(o.Channel)).Str("period", string(o.Period)).Float64("kwh", kwh).Msg("baseline recalibrated")
		}
	}

	snap := r.compute(now)
	r.snapMu.Lock()
	r.snapshot = snap
	r.snapMu.Unlock()

	if err := r.opts.Store.Save(ctx, r.state); err != nil {
		return snap, fmt.Errorf("save state: %w", err)
	}

	if r.opts.Ledger != nil {
		err := r.opts.Ledger.Write(entryFor(snap, now))
		switch {
		case errors.Is(err, ledger.ErrIncompleteRow):
			metrics.IncLedgerWrite("skipped")
			r.log.Debug().Strs("missing", channelNames(snap.Missing)).Msg("ledger write skipped")
		case err != nil:
			metrics.IncLedgerWrite(metrics.ResultError)
			return snap, fmt.Errorf("write ledger: %w", err)
		default:
			metrics.IncLedgerWrite(metrics.ResultSuccess)
		}
	}
	return snap, nil
}

func (r *Runtime) advance(ch model.Channel, rd model.Reading, now time.Time) {
	if !rd.Valid {
		metrics.IncInvalidReading(string(ch))
		r.log.Debug().Str("channel", string(ch)).Msg("no valid reading this cycle")
	}
	accepted, ok, err := r.tracker.Update(ch, rd)
	if err != nil || !ok {
		return
	}
	metrics.SetAccepted(string(ch), accepted)

	rolled, err := r.baselines.RolloverAll(ch, now)
	if err != nil {
		r.log.Warn().Err(err).Str("channel", string(ch)).Msg("rollover")
		return
	}
	for _, p := range rolled {
		metrics.IncRollover(string(ch), string(p))
		r.log.Debug().
			Str("channel", string(ch)).
			Str("period", string(p)).
			Str("key", p.Key(now)).
			Float64("base", accepted).
			Msg("baseline rolled over")
	}
}

func channelNames(chs []model.Channel) []string {
	out := make([]string, len(chs))
	for i, c := range chs {
		out[i] = string(c)
	}
	return out
}
