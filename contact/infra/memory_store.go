package infra

import (
	"context"
	"time"

	"contact-gateway/contact/domain"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemoryStore é a janela fixa em memória, válida para uma única instância.
//
// Cada operação de leitura-modificação-escrita roda dentro do Upsert do
// concurrent-map, que segura o lock do shard da chave.
type MemoryStore struct {
	entries      cmap.ConcurrentMap[string, windowEntry]
	limit        int
	window       time.Duration
	now          Clock
	cleanupEvery time.Duration
}

type windowEntry struct {
	count int
	start time.Time
}

type MemoryStoreOption func(*MemoryStore)

func WithClock(now Clock) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithCleanupEvery(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

func NewMemoryStore(limit int, window time.Duration, opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries:      cmap.New[windowEntry](),
		limit:        limit,
		window:       window,
		now:          time.Now,
		cleanupEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Limit() int { return s.limit }

// fresh cria a entrada se não existir e zera a janela se ela já expirou.
func (s *MemoryStore) fresh(id domain.ClientID) windowEntry {
	now := s.now()
	return s.entries.Upsert(string(id), windowEntry{}, func(exist bool, cur, _ windowEntry) windowEntry {
		if !exist || now.Sub(cur.start) > s.window {
			return windowEntry{start: now}
		}
		return cur
	})
}

func (s *MemoryStore) IsLimited(_ context.Context, id domain.ClientID) (bool, error) {
	return s.fresh(id).count >= s.limit, nil
}

// Increment não verifica expiração: IsLimited precisa ter sido chamado antes,
// e a janela precisa ser maior que o tempo entre as duas chamadas (o janitor
// pode remover a entrada expirada nesse intervalo). config.Validate garante isso.
func (s *MemoryStore) Increment(_ context.Context, id domain.ClientID) error {
	now := s.now()
	s.entries.Upsert(string(id), windowEntry{}, func(exist bool, cur, _ windowEntry) windowEntry {
		if !exist {
			return windowEntry{start: now}
		}
		cur.count++
		return cur
	})
	return nil
}

func (s *MemoryStore) Remaining(_ context.Context, id domain.ClientID) (int, error) {
	return max(0, s.limit-s.fresh(id).count), nil
}

func (s *MemoryStore) ResetTime(_ context.Context, id domain.ClientID) (time.Duration, error) {
	ent, ok := s.entries.Get(string(id))
	if !ok {
		return 0, nil
	}
	return max(0, ent.start.Add(s.window).Sub(s.now())), nil
}

// Len devolve quantas chaves estão em memória.
func (s *MemoryStore) Len() int { return s.entries.Count() }

// Cleanup remove entradas com janela expirada. Para o chamador isso é
// indistinguível de um cliente nunca visto.
func (s *MemoryStore) Cleanup() {
	now := s.now()
	for _, k := range s.entries.Keys() {
		s.entries.RemoveCb(k, func(_ string, ent windowEntry, exists bool) bool {
			return exists && now.Sub(ent.start) > s.window
		})
	}
}

// StartJanitor inicia uma goroutine que limpa janelas expiradas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryStore) StartJanitor(ctx DoneContext) {
	startTicker(ctx, s.cleanupEvery, s.Cleanup)
}
