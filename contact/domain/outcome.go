package domain

import "time"

type OutcomeKind string

const (
	OutcomeAccepted       OutcomeKind = "accepted"
	OutcomeRateLimited    OutcomeKind = "rate_limited"
	OutcomeRejected       OutcomeKind = "rejected"
	OutcomeDispatchFailed OutcomeKind = "dispatch_failed"
	OutcomeUnavailable    OutcomeKind = "unavailable"
	OutcomeBusy           OutcomeKind = "busy"
)

// Outcome é o resultado terminal de uma submissão.
//
// Limit/Remaining/ResetAfter só são preenchidos em Accepted e RateLimited,
// que são os casos em que a camada HTTP devolve os headers X-RateLimit-*.
type Outcome struct {
	Kind OutcomeKind
	// Err é o erro sentinela (ou embrulhado) que levou a uma saída de rejeição.
	Err error
	// Detail só é exposto ao cliente em DispatchFailed.
	Detail string

	Limit      int
	Remaining  int
	ResetAfter time.Duration
}
