package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/projection"
	"github.com/muktar11/ledgersafe/internal/repository"
)

// AccountHandler exposes the account read surface: GET
// /api/accounts/{code}/balance. This endpoint is not part of the original
// distillation but follows directly from the Projector's rebuildable
// AccountBalance read model (spec §4.6) — a ledger system without a way to
// ask "what is this account's balance right now" is incomplete.
type AccountHandler struct {
	pool         *pgxpool.Pool
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	balances     *projection.CachedBalanceReader
	rebuilder    *projection.Rebuilder
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(pool *pgxpool.Pool, accounts repository.AccountRepository, transactions repository.TransactionRepository, balances *projection.CachedBalanceReader, rebuilder *projection.Rebuilder) *AccountHandler {
	return &AccountHandler{pool: pool, accounts: accounts, transactions: transactions, balances: balances, rebuilder: rebuilder}
}

// List handles GET /api/accounts/, returning the full chart of accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), h.pool)
	if err != nil {
		RespondError(w, domain.ErrInternal("list accounts", err))
		return
	}
	RespondJSON(w, http.StatusOK, accounts)
}

// GetBalance handles GET /api/accounts/{code}/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	account, err := h.accounts.FindByCode(r.Context(), h.pool, code)
	if err != nil {
		RespondError(w, domain.ErrInternal("load account", err))
		return
	}
	if account == nil {
		RespondError(w, domain.ErrNotFound("account", code))
		return
	}

	balance, err := h.balances.GetAccountBalance(r.Context(), h.pool, account.ID)
	if err != nil {
		RespondError(w, domain.ErrInternal("load account balance", err))
		return
	}
	if balance == nil {
		balance = &domain.AccountBalance{AccountID: account.ID}
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"account_code": account.AccountCode,
		"account_type": account.AccountType,
		"balance":      balance.Balance.String(),
	})
}

// ListTransactions handles GET /api/accounts/{code}/transactions, returning
// the denormalized transaction listing in reverse-chronological order with
// cursor pagination via ?cursor=<transaction-id>.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	account, err := h.accounts.FindByCode(r.Context(), h.pool, code)
	if err != nil {
		RespondError(w, domain.ErrInternal("load account", err))
		return
	}
	if account == nil {
		RespondError(w, domain.ErrNotFound("account", code))
		return
	}

	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}

	summaries, err := h.transactions.ListByAccount(r.Context(), h.pool, account.ID, cursor, 20)
	if err != nil {
		RespondError(w, domain.ErrInternal("list transactions", err))
		return
	}
	RespondJSON(w, http.StatusOK, summaries)
}

// Rebuild handles POST /api/accounts/{code}/rebuild, recomputing the
// account's balance projection from scratch over every ledger entry ever
// posted against it. An operational recovery path for when the incremental
// projection is suspected to have drifted from the append-only source of
// truth — it never touches ledger_entries, only account_balances.
func (h *AccountHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	account, err := h.accounts.FindByCode(r.Context(), h.pool, code)
	if err != nil {
		RespondError(w, domain.ErrInternal("load account", err))
		return
	}
	if account == nil {
		RespondError(w, domain.ErrNotFound("account", code))
		return
	}

	balance, err := h.rebuilder.RebuildForAccount(r.Context(), h.pool, account.ID)
	if err != nil {
		RespondError(w, domain.ErrInternal("rebuild account balance", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"account_code": account.AccountCode,
		"balance":      balance.Balance.String(),
	})
}
