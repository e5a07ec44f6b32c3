package domain

import (
	"context"
	"time"
)

// StatsEvent representa o resultado terminal de uma submissão.
//
// Observação: cuidado com cardinalidade ao guardar Key (uma chave por IP).
type StatsEvent struct {
	Key     ClientID
	Outcome OutcomeKind
	At      time.Time
}

// StatsStore é a estratégia de persistência das estatísticas.
// O handler trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// StatsReader expõe os totais acumulados por resultado.
type StatsReader interface {
	Totals(ctx context.Context) (map[OutcomeKind]int64, error)
}
