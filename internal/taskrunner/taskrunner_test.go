package taskrunner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muktar11/ledgersafe/internal/domain"
	"github.com/muktar11/ledgersafe/internal/infra"
	"github.com/muktar11/ledgersafe/internal/repository"
)

// fakeJobRepository is an in-memory repository.JobRepository, keyed by
// job_type+idempotency_key exactly like the payout_jobs unique constraint.
type fakeJobRepository struct {
	rows map[string]domain.PayoutJob
}

func newFakeJobRepository() *fakeJobRepository {
	return &fakeJobRepository{rows: map[string]domain.PayoutJob{}}
}

func (f *fakeJobRepository) key(jobType, idempotencyKey string) string {
	return jobType + ":" + idempotencyKey
}

func (f *fakeJobRepository) Upsert(_ context.Context, _ repository.DBTX, job domain.PayoutJob) error {
	f.rows[f.key(job.JobType, job.IdempotencyKey)] = job
	return nil
}

func (f *fakeJobRepository) Get(_ context.Context, _ repository.DBTX, jobType, idempotencyKey string) (*domain.PayoutJob, error) {
	row, ok := f.rows[f.key(jobType, idempotencyKey)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

var errHandlerFailed = errors.New("handler failed")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner() *Runner {
	producer := infra.NewKafkaProducer("", false, testLogger())
	consumer := infra.NewKafkaConsumer("", "jobs", "group", false, testLogger())
	return NewRunner(producer, consumer, "jobs", testLogger())
}

func TestDefaultPolicies_CoverEveryJobType(t *testing.T) {
	for _, jobType := range []JobType{JobProcessPayout, JobInitiateExternalPayout, JobCompleteExternalPayout} {
		policy, ok := DefaultPolicies[jobType]
		require.True(t, ok, "missing backoff policy for %s", jobType)
		assert.Greater(t, policy.MaxAttempts, 0)
		assert.Greater(t, policy.BaseDelay, time.Duration(0))
	}
}

func TestEnqueue_NoopWhenProducerDisabled(t *testing.T) {
	runner := newTestRunner()
	err := runner.Enqueue(context.Background(), JobProcessPayout, "idem-1")
	assert.NoError(t, err)
}

func TestHandle_DispatchesToRegisteredHandler(t *testing.T) {
	runner := newTestRunner()
	var called bool
	runner.Register(JobProcessPayout, func(_ context.Context, job Job) error {
		called = true
		assert.Equal(t, "idem-1", job.IdempotencyKey)
		return nil
	})

	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 1})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	assert.True(t, called)
}

func TestHandle_UnregisteredJobTypeDoesNotPanic(t *testing.T) {
	runner := newTestRunner()
	data, _ := json.Marshal(Job{Type: "unknown_job", IdempotencyKey: "idem-1", Attempt: 1})
	assert.NotPanics(t, func() {
		runner.handle(context.Background(), kafkago.Message{Value: data})
	})
}

func TestHandle_MalformedMessageDoesNotPanic(t *testing.T) {
	runner := newTestRunner()
	assert.NotPanics(t, func() {
		runner.handle(context.Background(), kafkago.Message{Value: []byte("not json")})
	})
}

func TestHandle_RetriesOnFailureBelowMaxAttempts(t *testing.T) {
	runner := newTestRunner()
	runner.policies = map[JobType]BackoffPolicy{JobProcessPayout: {BaseDelay: time.Millisecond, MaxAttempts: 3}}
	jobs := newFakeJobRepository()
	runner.WithJobStore(jobs, nil)

	var calls int
	runner.Register(JobProcessPayout, func(_ context.Context, _ Job) error {
		calls++
		return errHandlerFailed
	})

	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 1})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	assert.Equal(t, 1, calls)
	row, err := jobs.Get(context.Background(), nil, string(JobProcessPayout), "idem-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.Attempt)
	assert.Equal(t, domain.JobQueued, row.Status)
}

func TestHandle_StopsRetryingAtMaxAttempts(t *testing.T) {
	runner := newTestRunner()
	runner.policies = map[JobType]BackoffPolicy{JobProcessPayout: {BaseDelay: time.Millisecond, MaxAttempts: 2}}
	jobs := newFakeJobRepository()
	runner.WithJobStore(jobs, nil)

	var calls int
	runner.Register(JobProcessPayout, func(_ context.Context, _ Job) error {
		calls++
		return errHandlerFailed
	})

	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 2})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	assert.Equal(t, 1, calls)
	row, err := jobs.Get(context.Background(), nil, string(JobProcessPayout), "idem-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.Attempt)
	assert.Equal(t, domain.JobFailed, row.Status)
}

func TestHandle_ExhaustedRetriesInvokesOnExhausted(t *testing.T) {
	runner := newTestRunner()
	runner.policies = map[JobType]BackoffPolicy{JobProcessPayout: {BaseDelay: time.Millisecond, MaxAttempts: 2}}

	runner.Register(JobProcessPayout, func(_ context.Context, _ Job) error {
		return errHandlerFailed
	})

	var exhaustedJob Job
	var exhaustedErr error
	var called bool
	runner.OnExhausted(func(_ context.Context, job Job, err error) {
		called = true
		exhaustedJob = job
		exhaustedErr = err
	})

	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 2})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	assert.True(t, called)
	assert.Equal(t, "idem-1", exhaustedJob.IdempotencyKey)
	assert.ErrorIs(t, exhaustedErr, errHandlerFailed)
}

func TestHandle_BelowMaxAttemptsDoesNotInvokeOnExhausted(t *testing.T) {
	runner := newTestRunner()
	runner.policies = map[JobType]BackoffPolicy{JobProcessPayout: {BaseDelay: time.Millisecond, MaxAttempts: 3}}

	runner.Register(JobProcessPayout, func(_ context.Context, _ Job) error {
		return errHandlerFailed
	})

	var called bool
	runner.OnExhausted(func(_ context.Context, _ Job, _ error) {
		called = true
	})

	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 1})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	assert.False(t, called)
}

func TestBackoffDelay_GrowsExponentiallyWithAttempt(t *testing.T) {
	base := 10 * time.Millisecond
	assert.Equal(t, base, backoffDelay(base, 1))
	assert.Equal(t, 2*base, backoffDelay(base, 2))
	assert.Equal(t, 4*base, backoffDelay(base, 3))
	assert.Equal(t, 8*base, backoffDelay(base, 4))
}

func TestBackoffDelay_ClampsNonPositiveAttemptToOne(t *testing.T) {
	base := 10 * time.Millisecond
	assert.Equal(t, base, backoffDelay(base, 0))
	assert.Equal(t, base, backoffDelay(base, -1))
}

func TestEnqueue_PersistsJobRowWhenStoreConfigured(t *testing.T) {
	runner := newTestRunner()
	jobs := newFakeJobRepository()
	runner.WithJobStore(jobs, nil)

	require.NoError(t, runner.Enqueue(context.Background(), JobProcessPayout, "idem-1"))

	row, err := jobs.Get(context.Background(), nil, string(JobProcessPayout), "idem-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 1, row.Attempt)
	assert.Equal(t, domain.JobQueued, row.Status)
}

func TestHandle_ReconcilesAttemptFromDurableStore(t *testing.T) {
	runner := newTestRunner()
	runner.policies = map[JobType]BackoffPolicy{JobProcessPayout: {BaseDelay: time.Millisecond, MaxAttempts: 5}}
	jobs := newFakeJobRepository()
	runner.WithJobStore(jobs, nil)
	require.NoError(t, jobs.Upsert(context.Background(), nil, domain.PayoutJob{
		JobType: string(JobProcessPayout), IdempotencyKey: "idem-1", Attempt: 3, Status: domain.JobQueued,
	}))

	var seenAttempt int
	runner.Register(JobProcessPayout, func(_ context.Context, job Job) error {
		seenAttempt = job.Attempt
		return nil
	})

	// The Kafka message is stale (attempt 1); the durable row (attempt 3) wins.
	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 1})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	assert.Equal(t, 3, seenAttempt)
}

func TestHandle_MarksJobDoneInDurableStoreOnSuccess(t *testing.T) {
	runner := newTestRunner()
	jobs := newFakeJobRepository()
	runner.WithJobStore(jobs, nil)

	runner.Register(JobProcessPayout, func(_ context.Context, _ Job) error {
		return nil
	})

	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 1})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	row, err := jobs.Get(context.Background(), nil, string(JobProcessPayout), "idem-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, domain.JobDone, row.Status)
}

func TestHandle_MarksJobFailedInDurableStoreOnExhaustion(t *testing.T) {
	runner := newTestRunner()
	runner.policies = map[JobType]BackoffPolicy{JobProcessPayout: {BaseDelay: time.Millisecond, MaxAttempts: 1}}
	jobs := newFakeJobRepository()
	runner.WithJobStore(jobs, nil)

	runner.Register(JobProcessPayout, func(_ context.Context, _ Job) error {
		return errHandlerFailed
	})

	data, _ := json.Marshal(Job{Type: JobProcessPayout, IdempotencyKey: "idem-1", Attempt: 1})
	runner.handle(context.Background(), kafkago.Message{Value: data})

	row, err := jobs.Get(context.Background(), nil, string(JobProcessPayout), "idem-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, domain.JobFailed, row.Status)
}
