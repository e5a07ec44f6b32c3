package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contact-gateway/contact/domain"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultCaptchaTimeout = 5 * time.Second
	DefaultMailTimeout    = 10 * time.Second
	DefaultLockTimeout    = 15 * time.Second
)

var validate = validator.New()

// Gateway orquestra o pipeline de uma submissão:
//
//	Received -> RateChecked -> CaptchaChecked -> Dispatched -> Completed
//
// Os checks baratos e locais vêm antes das chamadas remotas, então um cliente
// sem cota não consegue forçar chamadas ao captcha nem ao relay de email.
type Gateway struct {
	Store   domain.RateLimitStore
	Locker  domain.KeyLocker
	Captcha domain.CaptchaVerifier
	Mailer  domain.MailDispatcher

	CaptchaTimeout time.Duration
	MailTimeout    time.Duration
	LockTimeout    time.Duration
}

func (g Gateway) Submit(ctx context.Context, id domain.ClientID, sub domain.Submission) domain.Outcome {
	sub = trimSubmission(sub)
	if err := validate.Struct(sub); err != nil {
		return domain.Outcome{Kind: domain.OutcomeRejected, Err: fmt.Errorf("%w: %v", domain.ErrMissingFields, err)}
	}

	// desconexão do cliente não cancela as chamadas remotas em voo;
	// só os timeouts explícitos abaixo encerram o pipeline.
	ctx = context.WithoutCancel(ctx)

	unlock, err := g.lock(ctx, id)
	if err != nil {
		// só o timeout significa outra submissão do mesmo cliente em voo;
		// qualquer outro erro é o backend do lock fora do ar.
		if errors.Is(err, domain.ErrLockTimeout) {
			return domain.Outcome{Kind: domain.OutcomeBusy, Err: err}
		}
		return domain.Outcome{Kind: domain.OutcomeUnavailable, Err: err}
	}
	defer unlock()

	limited, err := g.Store.IsLimited(ctx, id)
	if err != nil {
		return domain.Outcome{Kind: domain.OutcomeUnavailable, Err: err}
	}
	if limited {
		return g.withQuota(ctx, id, domain.Outcome{Kind: domain.OutcomeRateLimited})
	}

	if sub.CaptchaToken == "" || !g.verify(ctx, sub.CaptchaToken) {
		return domain.Outcome{Kind: domain.OutcomeRejected, Err: domain.ErrCaptchaFailed}
	}

	if err := g.send(ctx, sub); err != nil {
		// falha no relay não consome cota
		return domain.Outcome{Kind: domain.OutcomeDispatchFailed, Err: err, Detail: err.Error()}
	}

	out := domain.Outcome{Kind: domain.OutcomeAccepted}
	if err := g.Store.Increment(ctx, id); err != nil {
		// o email já saiu; o resultado continua Accepted e o erro fica para o log.
		out.Err = fmt.Errorf("increment after dispatch: %w", err)
	}
	return g.withQuota(ctx, id, out)
}

func (g Gateway) lock(ctx context.Context, id domain.ClientID) (func(), error) {
	if g.Locker == nil {
		return func() {}, nil
	}
	timeout := g.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.Locker.Lock(lockCtx, id)
}

func (g Gateway) verify(ctx context.Context, token string) bool {
	if g.Captcha == nil {
		return false
	}
	timeout := g.CaptchaTimeout
	if timeout <= 0 {
		timeout = DefaultCaptchaTimeout
	}
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.Captcha.Verify(vctx, token)
}

func (g Gateway) send(ctx context.Context, sub domain.Submission) error {
	if g.Mailer == nil {
		return domain.ErrRelayNotConfigured
	}
	timeout := g.MailTimeout
	if timeout <= 0 {
		timeout = DefaultMailTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.Mailer.Send(sctx, sub)
}

// withQuota preenche os dados de cota usados nos headers X-RateLimit-*.
func (g Gateway) withQuota(ctx context.Context, id domain.ClientID, out domain.Outcome) domain.Outcome {
	out.Limit = g.Store.Limit()

	rem, err := g.Store.Remaining(ctx, id)
	if err != nil {
		out.Err = errors.Join(out.Err, err)
	} else {
		out.Remaining = rem
	}
	if out.Kind == domain.OutcomeRateLimited {
		out.Remaining = 0
	}

	reset, err := g.Store.ResetTime(ctx, id)
	if err != nil {
		out.Err = errors.Join(out.Err, err)
	} else {
		out.ResetAfter = reset
	}
	return out
}

func trimSubmission(sub domain.Submission) domain.Submission {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Message = strings.TrimSpace(sub.Message)
	sub.CaptchaToken = strings.TrimSpace(sub.CaptchaToken)
	return sub
}
