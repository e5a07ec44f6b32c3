package domain

import "errors"

// ClientID é a chave de bucketing do rate limit (normalmente o IP encaminhado).
// Não é um principal autenticado.
type ClientID string

// Submission é o formulário de contato recebido, válido apenas durante uma requisição.
type Submission struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required"`
	Message      string `json:"message" validate:"required"`
	CaptchaToken string `json:"recaptchaToken"`
}

var (
	ErrMissingFields      = errors.New("missing fields")
	ErrCaptchaFailed      = errors.New("captcha verification failed")
	ErrCaptchaNoSecret    = errors.New("captcha secret not configured")
	ErrRelayNotConfigured = errors.New("mail relay not configured")
	ErrLockTimeout        = errors.New("timed out waiting for client lock")
)
