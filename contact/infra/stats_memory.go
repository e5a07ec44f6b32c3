package infra

import (
	"context"
	"maps"
	"sync"

	"contact-gateway/contact/domain"
)

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e para uma única instância.
//
// Não faz expiração; o contador por chave só é mantido com WithTrackKeys.
type MemoryStatsStore struct {
	mu    sync.Mutex
	total map[domain.OutcomeKind]int64
	byKey map[domain.ClientID]map[domain.OutcomeKind]int64

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total: make(map[domain.OutcomeKind]int64),
		byKey: make(map[domain.ClientID]map[domain.OutcomeKind]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	if s.trackKeys {
		k := s.byKey[ev.Key]
		if k == nil {
			k = make(map[domain.OutcomeKind]int64)
			s.byKey[ev.Key] = k
		}
		k[ev.Outcome]++
	}
	return nil
}

func (s *MemoryStatsStore) Totals(context.Context) (map[domain.OutcomeKind]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.total), nil
}

func (s *MemoryStatsStore) ByKey(id domain.ClientID) map[domain.OutcomeKind]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := maps.Clone(s.byKey[id])
	if out == nil {
		out = make(map[domain.OutcomeKind]int64)
	}
	return out
}
