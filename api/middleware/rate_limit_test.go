package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int64)}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func closeRequest(actor string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches/abc/close", nil)
	return req.WithContext(WithActor(req.Context(), actor))
}

func TestCloseRateLimitBlocksOverLimit(t *testing.T) {
	limiter := newFakeLimiter()
	mw := CloseRateLimit(NewCloseRateLimitPolicy(time.Minute, 2), limiter, nil)
	var calls int
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, closeRequest("jordan"))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200 got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, closeRequest("jordan"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", calls)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeRateLimit, payload.Error.Code)
	}

	// a different actor counts in its own window
	other := httptest.NewRecorder()
	handler.ServeHTTP(other, closeRequest("sam"))
	if other.Code != http.StatusOK {
		t.Fatalf("expected 200 for fresh actor got %d", other.Code)
	}
}

func TestCloseRateLimitDisabledWithoutStore(t *testing.T) {
	mw := CloseRateLimit(DefaultCloseRateLimitPolicy, nil, nil)
	var calls int
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, closeRequest("jordan"))
	if resp.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected passthrough without a store, got %d (calls %d)", resp.Code, calls)
	}
}

func TestCloseRateLimitStoreFailure(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	mw := CloseRateLimit(NewCloseRateLimitPolicy(time.Minute, 2), limiter, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when the limiter fails")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, closeRequest("jordan"))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
