package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muktar11/ledgersafe/internal/guard"
)

type failingProvider struct {
	err error
}

func (f *failingProvider) Initiate(_ context.Context, _ InitiateRequest) (*InitiateResult, error) {
	return nil, f.err
}

func TestGuardedProvider_PassesThroughOnSuccess(t *testing.T) {
	sandbox := NewSandboxProvider()
	guarded := NewGuardedProvider(sandbox, guard.NewCircuitBreaker(3, time.Minute))

	result, err := guarded.Initiate(context.Background(), InitiateRequest{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "sandbox_000001", result.ExternalPayoutID)
}

func TestGuardedProvider_OpensAfterRepeatedFailures(t *testing.T) {
	failing := &failingProvider{err: errors.New("rail unavailable")}
	guarded := NewGuardedProvider(failing, guard.NewCircuitBreaker(2, time.Minute))
	ctx := context.Background()

	_, err := guarded.Initiate(ctx, InitiateRequest{IdempotencyKey: "k1"})
	require.Error(t, err)
	_, err = guarded.Initiate(ctx, InitiateRequest{IdempotencyKey: "k2"})
	require.Error(t, err)

	_, err = guarded.Initiate(ctx, InitiateRequest{IdempotencyKey: "k3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payout provider unavailable")
}

func TestSandboxProvider_IdempotentOnKey(t *testing.T) {
	sandbox := NewSandboxProvider()
	ctx := context.Background()

	first, err := sandbox.Initiate(ctx, InitiateRequest{IdempotencyKey: "dup"})
	require.NoError(t, err)
	second, err := sandbox.Initiate(ctx, InitiateRequest{IdempotencyKey: "dup"})
	require.NoError(t, err)

	assert.Equal(t, first.ExternalPayoutID, second.ExternalPayoutID)
}

func TestSandboxProvider_DistinctKeysGetDistinctIDs(t *testing.T) {
	sandbox := NewSandboxProvider()
	ctx := context.Background()

	a, _ := sandbox.Initiate(ctx, InitiateRequest{IdempotencyKey: "a"})
	b, _ := sandbox.Initiate(ctx, InitiateRequest{IdempotencyKey: "b"})

	assert.NotEqual(t, a.ExternalPayoutID, b.ExternalPayoutID)
}
