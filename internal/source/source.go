// Package source reads the cumulative meter totals the accounting core consumes.
package source

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"energy-billing/internal/model"
)

// Source reads the current state of one entity.
// An entity that exists but reports a non-numeric state is an Invalid reading,
// not an error; errors are reserved for transport and lookup failures.
type Source interface {
	Read(ctx context.Context, entityID string) (model.Reading, error)
}

// ReadMany reads every entity concurrently. Entities that fail to read come
// back as Invalid; the failure is logged and never returned.
func ReadMany(ctx context.Context, src Source, log zerolog.Logger, entityIDs ...string) map[string]model.Reading {
	out := make(map[string]model.Reading, len(entityIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range entityIDs {
		if id == "" {
			continue
		}
		g.Go(func() error {
			r, err := src.Read(gctx, id)
			if err != nil {
				log.Warn().Err(err).Str("entity", id).Msg("meter unavailable")
				r = model.Invalid
			}
			mu.Lock()
			out[id] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ReadPair reads the forward (buy) and reverse (sell) meters.
func ReadPair(ctx context.Context, src Source, log zerolog.Logger, forwardID, reverseID string) (buy, sell model.Reading) {
	got := ReadMany(ctx, src, log, forwardID, reverseID)
	return got[forwardID], got[reverseID]
}
