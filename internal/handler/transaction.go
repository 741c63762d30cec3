package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/repository"
)

// TransactionHandler exposes a read-only view onto posted ledger
// transactions: GET /api/transactions/{id} returns the transaction header
// plus its two entries, letting an operator confirm a post balanced
// without re-deriving it from the account-scoped listing.
type TransactionHandler struct {
	pool         *pgxpool.Pool
	transactions repository.TransactionRepository
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(pool *pgxpool.Pool, transactions repository.TransactionRepository) *TransactionHandler {
	return &TransactionHandler{pool: pool, transactions: transactions}
}

type transactionDetail struct {
	*domain.Transaction
	Entries []domain.LedgerEntry `json:"entries"`
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("id must be a valid uuid"))
		return
	}

	txn, err := h.transactions.FindByID(r.Context(), h.pool, id)
	if err != nil {
		RespondError(w, domain.ErrInternal("load transaction", err))
		return
	}
	if txn == nil {
		RespondError(w, domain.ErrNotFound("transaction", id.String()))
		return
	}

	entries, err := h.transactions.EntriesByTransaction(r.Context(), h.pool, txn.ID)
	if err != nil {
		RespondError(w, domain.ErrInternal("load transaction entries", err))
		return
	}

	RespondJSON(w, http.StatusOK, transactionDetail{Transaction: txn, Entries: entries})
}
