package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/payout"
	"github.com/muktar11/ledgersafe/internal/repository"
	"github.com/muktar11/ledgersafe/internal/store"
	"github.com/muktar11/ledgersafe/internal/taskrunner"
)

// PayoutHandler exposes the payout HTTP surface: POST /api/payouts/,
// GET /api/payouts/{id}/, and GET /api/payouts/. Grounded on
// original_source/payouts/views.py's create_payout/get_payout/list_payouts
// contract (201 on creation, 200 on idempotent replay, 400 on validation
// failure, 404 when not found).
type PayoutHandler struct {
	pool        *pgxpool.Pool
	payouts     *payout.Engine
	projections repository.ProjectionRepository
	runner      *taskrunner.Runner
}

// NewPayoutHandler constructs a PayoutHandler.
func NewPayoutHandler(pool *pgxpool.Pool, payouts *payout.Engine, projections repository.ProjectionRepository, runner *taskrunner.Runner) *PayoutHandler {
	return &PayoutHandler{pool: pool, payouts: payouts, projections: projections, runner: runner}
}

type createPayoutRequest struct {
	IdempotencyKey   string          `json:"idempotency_key"`
	Amount           string          `json:"amount"`
	Currency         string          `json:"currency"`
	RecipientAccount string          `json:"recipient_account"`
	RecipientName    string          `json:"recipient_name"`
	Description      string          `json:"description"`
	Metadata         json.RawMessage `json:"metadata"`
}

// Create handles POST /api/payouts/.
func (h *PayoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPayoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondError(w, domain.ErrValidation("amount must be a valid decimal string"))
		return
	}

	var result *domain.AdmitResult
	err = store.WithTransaction(r.Context(), h.pool, store.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		admitResult, admitErr := h.payouts.Admit(ctx, tx, domain.AdmitParams{
			IdempotencyKey:   req.IdempotencyKey,
			Amount:           amount,
			Currency:         req.Currency,
			RecipientAccount: req.RecipientAccount,
			RecipientName:    req.RecipientName,
			Description:      req.Description,
			Metadata:         req.Metadata,
		})
		if admitErr != nil {
			return admitErr
		}
		result = admitResult
		return nil
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	if result.Created && h.runner != nil {
		if err := h.runner.Enqueue(r.Context(), taskrunner.JobProcessPayout, result.Payout.IdempotencyKey); err != nil {
			RespondError(w, domain.ErrInternal("enqueue payout processing", err))
			return
		}
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	RespondJSON(w, status, result.Payout)
}

// Get handles GET /api/payouts/{id}/.
func (h *PayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.lookup(r)
	if err != nil {
		RespondError(w, domain.ErrInternal("load payout", err))
		return
	}
	if p == nil {
		RespondError(w, domain.ErrNotFound("payout", chi.URLParam(r, "id")))
		return
	}
	RespondJSON(w, http.StatusOK, p)
}

// Events handles GET /api/payouts/{id}/events, returning the payout's
// append-only audit trail in chronological order.
func (h *PayoutHandler) Events(w http.ResponseWriter, r *http.Request) {
	p, err := h.lookup(r)
	if err != nil {
		RespondError(w, domain.ErrInternal("load payout", err))
		return
	}
	if p == nil {
		RespondError(w, domain.ErrNotFound("payout", chi.URLParam(r, "id")))
		return
	}

	events, err := h.payouts.Events(r.Context(), h.pool, p.ID)
	if err != nil {
		RespondError(w, domain.ErrInternal("load payout events", err))
		return
	}
	RespondJSON(w, http.StatusOK, events)
}

func (h *PayoutHandler) lookup(r *http.Request) (*domain.Payout, error) {
	idParam := chi.URLParam(r, "id")
	if id, parseErr := uuid.Parse(idParam); parseErr == nil {
		return h.payouts.Get(r.Context(), h.pool, id)
	}
	return h.payouts.GetByIdempotencyKey(r.Context(), h.pool, idParam)
}

// List handles GET /api/payouts/, optionally filtered by ?status=.
func (h *PayoutHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.PayoutStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.PayoutStatus(raw)
		status = &s
	}

	summaries, err := h.projections.ListPayoutSummaries(r.Context(), h.pool, status, 20)
	if err != nil {
		RespondError(w, domain.ErrInternal("list payouts", err))
		return
	}
	RespondJSON(w, http.StatusOK, summaries)
}
