package infra

import (
	"context"
	"fmt"
	"sync"

	"contact-gateway/contact/domain"
)

// MemoryLocker é um mutex por chave, implementado com um ChanPool de 1 vaga
// por cliente. As entradas são removidas quando ninguém mais espera pela chave.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	pool domain.SlotPool
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*lockEntry)}
}

func (l *MemoryLocker) Lock(ctx context.Context, id domain.ClientID) (func(), error) {
	key := string(id)

	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &lockEntry{pool: NewChanPool(1)}
		l.entries[key] = ent
	}
	ent.refs++
	l.mu.Unlock()

	release, ok := ent.pool.Acquire(ctx)
	if !ok {
		l.drop(key, ent)
		return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, id)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			release()
			l.drop(key, ent)
		})
	}, nil
}

func (l *MemoryLocker) drop(key string, ent *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ent.refs--
	if ent.refs == 0 {
		delete(l.entries, key)
	}
}

// Len devolve quantas chaves têm dono ou alguém esperando.
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
