package domain

// Camada de domínio do rate limit (janela fixa).

import (
	"context"
	"time"
)

// RateLimitStore guarda, por cliente, a contagem e o início da janela atual.
//
// Contrato:
//   - IsLimited cria a entrada se não existir e zera a janela expirada antes de decidir.
//   - Increment não verifica expiração; quem chama deve chamar IsLimited antes.
//   - Remaining fica sempre em [0, Limit()].
//   - ResetTime é 0 para clientes desconhecidos.
//
// A sequência IsLimited ... Increment precisa ser atômica por chave; isso é
// garantido segurando o KeyLocker da mesma chave durante o pipeline.
type RateLimitStore interface {
	IsLimited(ctx context.Context, id ClientID) (bool, error)
	Increment(ctx context.Context, id ClientID) error
	Remaining(ctx context.Context, id ClientID) (int, error)
	ResetTime(ctx context.Context, id ClientID) (time.Duration, error)
	Limit() int
}

// KeyLocker serializa o pipeline por cliente.
//
// Lock bloqueia até obter a trava ou até o ctx encerrar (ErrLockTimeout).
// A função unlock deve ser chamada exatamente uma vez.
type KeyLocker interface {
	Lock(ctx context.Context, id ClientID) (unlock func(), err error)
}
