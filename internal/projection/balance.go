package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/repository"
)

const balanceCacheTTL = 5 * time.Second

// CachedBalanceReader answers GetAccountBalance reads from an optional
// short-TTL cache before falling through to Postgres, caching what it reads.
// The TTL is short because account_balances mutates on every ledger post —
// this exists to absorb read bursts (e.g. a dashboard polling many clients);
// a cached balance can lag the latest post by up to balanceCacheTTL.
type CachedBalanceReader struct {
	cache       Store
	projections repository.ProjectionRepository
}

// NewCachedBalanceReader constructs a reader over the given cache and
// Postgres-backed projection repository.
func NewCachedBalanceReader(cache Store, projections repository.ProjectionRepository) *CachedBalanceReader {
	return &CachedBalanceReader{cache: cache, projections: projections}
}

// GetAccountBalance returns the current balance projection for an account,
// preferring the cache and falling back to Postgres on a miss.
func (r *CachedBalanceReader) GetAccountBalance(ctx context.Context, db repository.DBTX, accountID uuid.UUID) (*domain.AccountBalance, error) {
	key := cacheKey(accountID)

	var cached domain.AccountBalance
	if err := GetJSON(ctx, r.cache, key, &cached); err == nil {
		return &cached, nil
	}

	balance, err := r.projections.GetAccountBalance(ctx, db, accountID)
	if err != nil {
		return nil, fmt.Errorf("read account balance: %w", err)
	}
	if balance == nil {
		return nil, nil
	}

	if err := SetJSON(ctx, r.cache, key, balance, balanceCacheTTL); err != nil {
		return balance, nil
	}
	return balance, nil
}

// Invalidate evicts a cached balance so the next read goes to Postgres.
// Nothing in this repository calls it: a ledger post does not evict, so a
// cached balance is served until balanceCacheTTL expires.
func (r *CachedBalanceReader) Invalidate(ctx context.Context, accountID uuid.UUID) error {
	return r.cache.Delete(ctx, cacheKey(accountID))
}

func cacheKey(accountID uuid.UUID) string {
	return fmt.Sprintf("projection:balance:%s", accountID)
}
