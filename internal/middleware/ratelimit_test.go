package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// テスト用のレート制限設定。クリーンアップは長めにして干渉を避ける
func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0), // 1 req/sec
		GeneralBurst:    3,
		TxAddRate:       rate.Limit(1.0),
		TxAddBurst:      2,
		CleanupInterval: time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doAuthedRequest(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/transactions/all", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGeneralMiddleware_WithinBurst_Allows(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		if rec := doAuthedRequest(handler, "user-123"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestGeneralMiddleware_ExceedsBurst_Returns429WithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		doAuthedRequest(handler, "user-123")
	}

	rec := doAuthedRequest(handler, "user-123")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestGeneralMiddleware_LimitsArePerUser(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// user-aのバーストを使い切る
	for i := 0; i < 3; i++ {
		doAuthedRequest(handler, "user-a")
	}
	if rec := doAuthedRequest(handler, "user-a"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("user-a: status = %d, want 429", rec.Code)
	}

	// user-bには影響しない
	if rec := doAuthedRequest(handler, "user-b"); rec.Code != http.StatusOK {
		t.Errorf("user-b: status = %d, want 200", rec.Code)
	}
}

func TestTransactionAddMiddleware_IndependentOfGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	generalHandler := rl.GeneralMiddleware()(okHandler())
	txAddHandler := rl.TransactionAddMiddleware()(okHandler())

	// 取引追加のバースト(2)を使い切る
	for i := 0; i < 2; i++ {
		if rec := doAuthedRequest(txAddHandler, "user-123"); rec.Code != http.StatusOK {
			t.Fatalf("tx add request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
	if rec := doAuthedRequest(txAddHandler, "user-123"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("tx add: status = %d, want 429", rec.Code)
	}

	// API全般のリミッターは独立しているため引き続き許可される
	if rec := doAuthedRequest(generalHandler, "user-123"); rec.Code != http.StatusOK {
		t.Errorf("general: status = %d, want 200", rec.Code)
	}
}

func TestRateLimitMiddleware_NoUserInContext_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/transactions/all", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRateLimiter_Cleanup_RemovesStaleEntries(t *testing.T) {
	config := testRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	doAuthedRequest(handler, "user-123")

	if count := rl.GeneralLimiterCount(); count != 1 {
		t.Fatalf("GeneralLimiterCount() = %d, want 1", count)
	}

	// TTL（CleanupInterval * 2）を十分過ぎるまで待つ
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("GeneralLimiterCount() = %d after cleanup, want 0", rl.GeneralLimiterCount())
}
