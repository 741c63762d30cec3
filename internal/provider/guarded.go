package provider

import (
	"context"
	"fmt"

	"github.com/muktar11/ledgersafe/internal/guard"
)

// GuardedProvider wraps a PayoutProvider with a circuit breaker, so a string
// of failures against the external rail trips the breaker and fails fast
// instead of piling up timed-out HTTP calls behind it. One breaker key per
// wrapped provider instance — this system only ever talks to one rail at a
// time, so "payout_provider" is a fixed key rather than something per-call.
type GuardedProvider struct {
	inner   PayoutProvider
	breaker *guard.CircuitBreaker
}

const guardKey = "payout_provider"

// NewGuardedProvider wraps inner with breaker.
func NewGuardedProvider(inner PayoutProvider, breaker *guard.CircuitBreaker) *GuardedProvider {
	return &GuardedProvider{inner: inner, breaker: breaker}
}

// Initiate checks the breaker before delegating to inner, and records the
// outcome back into the breaker so repeated failures open the circuit.
func (g *GuardedProvider) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	result := g.breaker.Check(ctx, guardKey)
	if !result.Allowed {
		return nil, fmt.Errorf("payout provider unavailable: %s", result.Reason)
	}

	res, err := g.inner.Initiate(ctx, req)
	if err != nil {
		g.breaker.RecordFailure(guardKey)
		return nil, err
	}
	g.breaker.RecordSuccess(guardKey)
	return res, nil
}
