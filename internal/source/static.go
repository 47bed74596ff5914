package source

import (
	"context"
	"strconv"
	"sync"

	"energy-billing/internal/model"
)

// StaticSource serves states set in process. Unknown entities read as Invalid.
type StaticSource struct {
	mu     sync.RWMutex
	states map[string]string
}

func NewStaticSource(states map[string]string) *StaticSource {
	s := &StaticSource{states: make(map[string]string, len(states))}
	for k, v := range states {
		s.states[k] = v
	}
	return s
}

// Set stores a raw state string, as a host would report it.
func (s *StaticSource) Set(entityID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[entityID] = state
}

func (s *StaticSource) SetValue(entityID string, v float64) {
	s.Set(entityID, strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *StaticSource) Read(_ context.Context, entityID string) (model.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.states[entityID]
	if !ok {
		return model.Invalid, nil
	}
	return model.ParseReading(raw), nil
}
