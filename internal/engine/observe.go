package engine

import (
	"context"
	"sync"
	"time"

	"energy-billing/internal/model"
)

// Subscribe registers fn to receive the snapshot at the end of every cycle.
// Observers run synchronously on the cycle's goroutine, after the instance lock
// is released. The returned func removes the observer.
func (r *Runtime) Subscribe(fn func(model.Snapshot)) (unsubscribe func()) {
	r.obsMu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.obsMu.Lock()
			delete(r.observers, id)
			r.obsMu.Unlock()
		})
	}
}

func (r *Runtime) notify(snap model.Snapshot) {
	r.obsMu.Lock()
	fns := make([]func(model.Snapshot), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Start runs Update every interval until ctx ends or the returned cancel is
// called. At most one timer runs per instance: starting again cancels the
// previous one. Cancel blocks until an in-flight tick has finished.
func (r *Runtime) Start(ctx context.Context, interval time.Duration) (cancel func()) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	return r.startLocked(ctx, interval)
}

func (r *Runtime) startLocked(ctx context.Context, interval time.Duration) func() {
	if r.stopTimer != nil {
		r.stopTimer()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	tctx, cancelCtx := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-tctx.Done():
				return
			case <-ticker.C:
				_, _ = r.Update(tctx)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancelCtx()
			<-done
		})
	}
	r.stopTimer = stop
	r.timerCtx = ctx
	r.interval = interval
	r.log.Info().Dur("interval", interval).Msg("update timer started")
	return stop
}

// Stop cancels the running timer, if any.
func (r *Runtime) Stop() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.stopTimer != nil {
		r.stopTimer()
		r.stopTimer = nil
	}
}

// Interval is the interval of the running timer, or the last one requested.
func (r *Runtime) Interval() time.Duration {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	return r.interval
}

// setInterval records interval and restarts a running timer with it.
func (r *Runtime) setInterval(interval time.Duration) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.interval == interval && r.stopTimer != nil {
		return
	}
	r.interval = interval
	if r.stopTimer == nil || r.timerCtx == nil {
		return
	}
	r.startLocked(r.timerCtx, interval)
}
