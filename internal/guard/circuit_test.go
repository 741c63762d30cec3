package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_ClosedByDefault(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	result := cb.Check(context.Background(), "provider")
	assert.True(t, result.Allowed)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	ctx := context.Background()

	cb.Check(ctx, "provider")
	cb.RecordFailure("provider")
	cb.RecordFailure("provider")
	cb.RecordFailure("provider")

	result := cb.Check(ctx, "provider")
	assert.False(t, result.Allowed)
	assert.Equal(t, "circuit_breaker", result.Guard)
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	cb.Check(ctx, "provider")
	cb.RecordFailure("provider")
	assert.False(t, cb.Check(ctx, "provider").Allowed)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Check(ctx, "provider").Allowed)
}

func TestCircuitBreaker_SuccessInHalfOpenCloses(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	cb.Check(ctx, "provider")
	cb.RecordFailure("provider")
	time.Sleep(20 * time.Millisecond)

	result := cb.Check(ctx, "provider")
	assert.True(t, result.Allowed)
	cb.RecordSuccess("provider")

	// Circuit closed again: many consecutive checks should all be allowed.
	for i := 0; i < 5; i++ {
		assert.True(t, cb.Check(ctx, "provider").Allowed)
	}
}

func TestCircuitBreaker_IndependentKeys(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	ctx := context.Background()

	cb.Check(ctx, "provider-a")
	cb.RecordFailure("provider-a")
	assert.False(t, cb.Check(ctx, "provider-a").Allowed)

	assert.True(t, cb.Check(ctx, "provider-b").Allowed)
}
