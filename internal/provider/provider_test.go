package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPayoutProvider_SucceedsOnOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"external_payout_id":"ext-1","status":"initiated"}`))
	}))
	defer server.Close()

	p := NewHTTPPayoutProvider(server.URL, "key", time.Second)
	result, err := p.Initiate(context.Background(), InitiateRequest{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", result.ExternalPayoutID)
}

func TestHTTPPayoutProvider_RateLimitedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPPayoutProvider(server.URL, "key", time.Second)
	_, err := p.Initiate(context.Background(), InitiateRequest{IdempotencyKey: "k1"})
	require.Error(t, err)
	assert.False(t, IsTerminal(err))
}

func TestHTTPPayoutProvider_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewHTTPPayoutProvider(server.URL, "key", time.Second)
	_, err := p.Initiate(context.Background(), InitiateRequest{IdempotencyKey: "k1"})
	require.Error(t, err)
	assert.False(t, IsTerminal(err))
}

func TestHTTPPayoutProvider_RejectionIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"unknown recipient account"}`))
	}))
	defer server.Close()

	p := NewHTTPPayoutProvider(server.URL, "key", time.Second)
	_, err := p.Initiate(context.Background(), InitiateRequest{IdempotencyKey: "k1"})
	require.Error(t, err)
	assert.True(t, IsTerminal(err))
}

func TestHTTPPayoutProvider_TimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPPayoutProvider(server.URL, "key", time.Millisecond)
	_, err := p.Initiate(context.Background(), InitiateRequest{IdempotencyKey: "k1"})
	require.Error(t, err)
	assert.False(t, IsTerminal(err))
}

func TestHTTPPayoutProvider_MissingAPIKeyIsTerminal(t *testing.T) {
	p := NewHTTPPayoutProvider("http://unused", "", time.Second)
	_, err := p.Initiate(context.Background(), InitiateRequest{IdempotencyKey: "k1"})
	require.Error(t, err)
	assert.True(t, IsTerminal(err))
}

func TestIsTerminal_FalseForPlainError(t *testing.T) {
	assert.False(t, IsTerminal(errors.New("boom")))
}

func TestIsTerminal_TrueForWrappedTerminalError(t *testing.T) {
	err := newTerminalError(errors.New("rejected"))
	wrapped := &wrapError{err}
	assert.True(t, IsTerminal(wrapped))
}

type wrapError struct{ err error }

func (e *wrapError) Error() string { return "wrapped: " + e.err.Error() }
func (e *wrapError) Unwrap() error { return e.err }
