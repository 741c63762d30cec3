// Command seed-accounts creates the two ledger accounts the payout engine
// posts every transaction against (internal/payout.CashAccountCode and
// internal/payout.LiabilityAccountCode), if they don't already exist.
// Grounded on the operational bootstrap step original_source/payouts/
// fixtures run before the service accepts its first payout, re-expressed as
// a one-shot Go command in the style of cmd/outbox-consumer/main.go's
// config-load-then-connect shape.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/infra"
	"github.com/muktar11/ledgersafe/internal/payout"
	"github.com/muktar11/ledgersafe/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("seed-accounts failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx := context.Background()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	accounts := repository.NewAccountRepository()

	seeds := []domain.Account{
		{AccountCode: payout.CashAccountCode, Name: "Operating cash", AccountType: domain.AccountAsset},
		{AccountCode: payout.LiabilityAccountCode, Name: "Payout liability", AccountType: domain.AccountLiability},
	}

	for _, seed := range seeds {
		existing, err := accounts.FindByCode(ctx, pool, seed.AccountCode)
		if err != nil {
			return fmt.Errorf("check %s: %w", seed.AccountCode, err)
		}
		if existing != nil {
			logger.Info("account already exists", "account_code", seed.AccountCode)
			continue
		}

		account := seed
		if err := accounts.Create(ctx, pool, &account); err != nil {
			return fmt.Errorf("create %s: %w", seed.AccountCode, err)
		}
		logger.Info("account created", "account_code", account.AccountCode, "account_type", account.AccountType)
	}

	return nil
}
