package contact

import (
	"net/http"
	"strings"
	"time"

	"contact-gateway/contact/application"
	"contact-gateway/contact/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-ID"

// RequestID garante um id por request (reaproveita o do cliente se vier) e
// coloca no contexto um logger com esse id.
func RequestID(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			l := log.With().Str("request_id", id).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
		})
	}
}

// FloodLimiter barra rajadas por chave (infra.FloodStore).
type FloodLimiter interface {
	Allow(key string) (bool, time.Duration)
}

type FloodOptions struct {
	Limiter FloodLimiter
	KeyFn   KeyFunc
}

// FloodGuard responde 429 com Retry-After antes de qualquer trabalho do handler.
// Não mexe na cota de submissões.
func FloodGuard(opts FloodOptions) func(next http.Handler) http.Handler {
	if opts.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := opts.Limiter.Allow(opts.KeyFn(r))
			if !ok {
				w.Header().Set("Retry-After", formatInt(max(1, ceilUnits(wait, time.Second))))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita as submissões em voo (cada uma pode segurar
// duas chamadas remotas). Max <= 0 desliga.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				writeError(w, http.StatusServiceUnavailable, msgUnavailable)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
