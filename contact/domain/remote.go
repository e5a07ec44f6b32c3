package domain

import "context"

// CaptchaVerifier valida o token do cliente contra a autoridade externa.
// Qualquer ambiguidade (sem segredo, erro de transporte, resposta inválida) é false.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) bool
}

// MailDispatcher entrega a submissão na caixa fixa do operador.
// Não há retry nem fila: o erro volta direto para o gateway.
type MailDispatcher interface {
	Send(ctx context.Context, sub Submission) error
}
