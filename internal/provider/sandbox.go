package provider

import (
	"context"
	"fmt"
	"sync"
)

// SandboxProvider is an in-memory PayoutProvider for local development and
// tests — it never makes a network call, deterministically "succeeds" every
// payout, and deduplicates on IdempotencyKey exactly like a real rail would.
type SandboxProvider struct {
	mu      sync.Mutex
	byKey   map[string]*InitiateResult
	counter int
}

// NewSandboxProvider constructs a SandboxProvider.
func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{byKey: make(map[string]*InitiateResult)}
}

// Initiate returns a deterministic, idempotent result for req.IdempotencyKey.
func (s *SandboxProvider) Initiate(_ context.Context, req InitiateRequest) (*InitiateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byKey[req.IdempotencyKey]; ok {
		return existing, nil
	}

	s.counter++
	result := &InitiateResult{
		ExternalPayoutID: fmt.Sprintf("sandbox_%06d", s.counter),
		Status:           "completed",
	}
	s.byKey[req.IdempotencyKey] = result
	return result, nil
}
