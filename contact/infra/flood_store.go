package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FloodStore é um token bucket por chave (x/time/rate) com limpeza periódica.
//
// Fica na frente do handler e barra rajadas antes de decodificar o corpo.
// É independente da cota de submissões (RateLimitStore).
type FloodStore struct {
	mu           sync.Mutex
	entries      map[string]*floodEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type floodEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type FloodOption func(*FloodStore)

func WithFloodIdleTTL(d time.Duration) FloodOption {
	return func(s *FloodStore) { s.idleTTL = d }
}

func WithFloodCleanupEvery(d time.Duration) FloodOption {
	return func(s *FloodStore) { s.cleanupEvery = d }
}

func NewFloodStore(rps float64, burst int, opts ...FloodOption) *FloodStore {
	s := &FloodStore{
		entries:      make(map[string]*floodEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow consome um token da chave. Quando não há token, devolve quanto falta
// para o próximo (usado no Retry-After).
func (s *FloodStore) Allow(key string) (bool, time.Duration) {
	lim := s.limiter(key)
	now := time.Now()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

func (s *FloodStore) limiter(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &floodEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *FloodStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
func (s *FloodStore) StartJanitor(ctx DoneContext) {
	startTicker(ctx, s.cleanupEvery, s.Cleanup)
}
