// Package app assembles the ledger/payout service's dependency graph into an
// http.Handler. Grounded on internal/app/wire.go's RouterDeps/NewRouter
// shape: one struct of externally-supplied dependencies, one function that
// constructs every repository/engine/handler and wires them onto a
// chi.Router.
package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muktar11/ledgersafe/internal/eventlog"
	"github.com/muktar11/ledgersafe/internal/guard"
	"github.com/muktar11/ledgersafe/internal/handler"
	"github.com/muktar11/ledgersafe/internal/infra"
	"github.com/muktar11/ledgersafe/internal/ledger"
	"github.com/muktar11/ledgersafe/internal/payout"
	"github.com/muktar11/ledgersafe/internal/projection"
	"github.com/muktar11/ledgersafe/internal/provider"
	"github.com/muktar11/ledgersafe/internal/repository"
	"github.com/muktar11/ledgersafe/internal/stream"
	"github.com/muktar11/ledgersafe/internal/taskrunner"
)

// RouterDeps holds every dependency Build needs to assemble the service.
type RouterDeps struct {
	Pool               *pgxpool.Pool
	Logger             *slog.Logger
	KafkaBrokers       string
	KafkaEnabled       bool
	PayoutJobsTopic    string
	CORSAllowedOrigins string

	// External payout provider. If ProviderBaseURL is empty, a
	// NewSandboxProvider is used instead — suitable for local development
	// and tests, matching original_source's fakeable payment gateway tests.
	ProviderBaseURL string
	ProviderAPIKey  string
}

// Deps bundles the constructed engines and the background components that
// main needs to start (the task runner's consume loop, the event tailer).
type Deps struct {
	Router     chi.Router
	Runner     *taskrunner.Runner
	Tailer     *stream.Tailer
	Rebuilder  *projection.Rebuilder
	LedgerCore *ledger.Engine
	Payouts    *payout.Engine
}

// Build assembles every repository, engine, handler, and background
// component, and returns the chi.Router plus anything main needs to run
// goroutines for.
func Build(deps RouterDeps) *Deps {
	pool := deps.Pool
	logger := deps.Logger

	// Repositories
	accountRepo := repository.NewAccountRepository()
	transactionRepo := repository.NewTransactionRepository()
	eventRepo := repository.NewEventRepository()
	payoutRepo := repository.NewPayoutRepository()
	projectionRepo := repository.NewProjectionRepository()

	// Event log
	eventLog := eventlog.NewLog(eventRepo)

	// Ledger and payout engines
	ledgerEngine := ledger.NewEngine(accountRepo, transactionRepo, projectionRepo, eventLog)
	payoutEngine := payout.NewEngine(payoutRepo, projectionRepo, ledgerEngine, eventLog)

	// Read models
	balanceCache := projection.NewInMemoryStore()
	balanceReader := projection.NewCachedBalanceReader(balanceCache, projectionRepo)
	rebuilder := projection.NewRebuilder(accountRepo, transactionRepo, eventRepo, projectionRepo)

	// External payout provider, wrapped in a circuit breaker so repeated
	// failures against the rail fail fast instead of exhausting retries one
	// timed-out HTTP call at a time.
	var payoutProvider provider.PayoutProvider
	if deps.ProviderBaseURL != "" {
		payoutProvider = provider.NewHTTPPayoutProvider(deps.ProviderBaseURL, deps.ProviderAPIKey, 10*time.Second)
	} else {
		payoutProvider = provider.NewSandboxProvider()
		logger.Warn("no external payout provider configured, using sandbox provider")
	}
	breaker := guard.NewCircuitBreaker(5, 30*time.Second)
	payoutProvider = provider.NewGuardedProvider(payoutProvider, breaker)

	// Task runner (background job queue)
	topic := deps.PayoutJobsTopic
	if topic == "" {
		topic = "payout-jobs"
	}
	producer := infra.NewKafkaProducer(deps.KafkaBrokers, deps.KafkaEnabled, logger)
	consumer := infra.NewKafkaConsumer(deps.KafkaBrokers, topic, "payout-workers", deps.KafkaEnabled, logger)
	runner := taskrunner.NewRunner(producer, consumer, topic, logger)
	runner.WithJobStore(repository.NewJobRepository(), pool)
	jobHandlers := taskrunner.NewHandlers(pool, payoutEngine, payoutProvider, runner, logger)
	jobHandlers.RegisterAll()

	// Streaming surface
	hub := stream.NewHub(logger)
	streamHandler := stream.NewHandler(hub, eventLog, pool, logger)
	tailer := stream.NewTailer(eventLog, pool, hub, time.Second, logger, 0)

	// HTTP handlers
	payoutHandler := handler.NewPayoutHandler(pool, payoutEngine, projectionRepo, runner)
	accountHandler := handler.NewAccountHandler(pool, accountRepo, transactionRepo, balanceReader, rebuilder)
	transactionHandler := handler.NewTransactionHandler(pool, transactionRepo)

	r := chi.NewRouter()
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSAllowedOrigins))

	r.Get("/health", handler.HealthHandler(pool))
	r.Get("/ws/events", streamHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(handler.JSONContentType)

		r.Route("/payouts", func(r chi.Router) {
			r.Post("/", payoutHandler.Create)
			r.Get("/", payoutHandler.List)
			r.Get("/{id}", payoutHandler.Get)
			r.Get("/{id}/", payoutHandler.Get)
			r.Get("/{id}/events", payoutHandler.Events)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountHandler.List)
			r.Get("/{code}/balance", accountHandler.GetBalance)
			r.Get("/{code}/transactions", accountHandler.ListTransactions)
			r.Post("/{code}/rebuild", accountHandler.Rebuild)
		})

		r.Get("/transactions/{id}", transactionHandler.Get)
	})

	return &Deps{
		Router:     r,
		Runner:     runner,
		Tailer:     tailer,
		Rebuilder:  rebuilder,
		LedgerCore: ledgerEngine,
		Payouts:    payoutEngine,
	}
}
