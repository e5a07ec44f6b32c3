package contact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"contact-gateway/contact/domain"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	msgMissingFields = "Name, email, and message are required"
	msgCaptchaFailed = "reCAPTCHA verification failed"
	msgInvalidBody   = "Invalid request body"
	msgDispatchFail  = "Failed to send email"
	msgUnavailable   = "Service temporarily unavailable"
	msgBusy          = "Another submission from this client is in progress"
	msgSent          = "Email sent successfully"
	msgRateLimited   = "Rate limit exceeded. Please try again later (in about %d minute(s))."

	DefaultMaxBodyBytes int64 = 64 << 10
)

// Submitter é o caso de uso chamado pelo handler (application.Gateway).
type Submitter interface {
	Submit(ctx context.Context, id domain.ClientID, sub domain.Submission) domain.Outcome
}

type HandlerOptions struct {
	Gateway      Submitter
	Stats        domain.StatsStore
	KeyFn        KeyFunc
	MaxBodyBytes int64
	// Now é usado para o X-RateLimit-Reset (epoch ms).
	Now func() time.Time
}

type Handler struct {
	opts HandlerOptions
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{opts: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := zerolog.Ctx(r.Context())
	id := domain.ClientID(h.opts.KeyFn(r))

	var sub domain.Submission
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		log.Info().Err(err).Str("client", string(id)).Msg("invalid submission body")
		h.record(r.Context(), id, domain.OutcomeRejected)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	out := h.opts.Gateway.Submit(r.Context(), id, sub)
	h.record(r.Context(), id, out.Kind)
	h.respond(w, out)

	ev := log.Info()
	switch out.Kind {
	case domain.OutcomeDispatchFailed, domain.OutcomeUnavailable:
		ev = log.Error()
	case domain.OutcomeAccepted:
		if out.Err != nil {
			ev = log.Warn()
		}
	}
	ev.Err(out.Err).
		Str("client", string(id)).
		Str("outcome", string(out.Kind)).
		Dur("took", time.Since(start)).
		Msg("contact submission")
}

func (h *Handler) respond(w http.ResponseWriter, out domain.Outcome) {
	switch out.Kind {
	case domain.OutcomeAccepted:
		h.quotaHeaders(w, out)
		writeJSON(w, http.StatusOK, successBody{Success: true, Message: msgSent})

	case domain.OutcomeRateLimited:
		h.quotaHeaders(w, out)
		minutes := max(1, ceilUnits(out.ResetAfter, time.Minute))
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:        fmt.Sprintf(msgRateLimited, minutes),
			ResetMinutes: minutes,
		})

	case domain.OutcomeRejected:
		if errors.Is(out.Err, domain.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, msgMissingFields)
			return
		}
		writeError(w, http.StatusBadRequest, msgCaptchaFailed)

	case domain.OutcomeDispatchFailed:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgDispatchFail, Details: out.Detail})

	case domain.OutcomeBusy:
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, msgBusy)

	default:
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
	}
}

func (h *Handler) quotaHeaders(w http.ResponseWriter, out domain.Outcome) {
	reset := h.opts.Now().Add(out.ResetAfter)
	w.Header().Set("X-RateLimit-Limit", formatInt(out.Limit))
	w.Header().Set("X-RateLimit-Remaining", formatInt(out.Remaining))
	w.Header().Set("X-RateLimit-Reset", formatInt64(reset.UnixMilli()))
}

// record é best-effort: erro de estatística não derruba a request.
func (h *Handler) record(ctx context.Context, id domain.ClientID, kind domain.OutcomeKind) {
	if h.opts.Stats == nil {
		return
	}
	if err := h.opts.Stats.Record(ctx, domain.StatsEvent{Key: id, Outcome: kind, At: time.Now()}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("stats record failed")
	}
}
