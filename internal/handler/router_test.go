package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bonnex/bonnex/internal/middleware"
	"github.com/bonnex/bonnex/internal/token"
)

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *token.Service) {
	t.Helper()
	tokenService := token.NewService("access-secret", "refresh-secret", 15, 7)

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(120, 10))
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		TokenVerifier:      tokenService,
		CORSAllowedOrigins: []string{"https://app.example.com"},
		RateLimiter:        rl,
		AuthService:        &mockAuthService{},
		TokenService:       tokenService,
		AuthConfig:         AuthHandlerConfig{CookieSecure: true},
		UserService:        &mockUserService{},
		LedgerService:      &mockLedgerService{},
		DB:                 &mockPinger{},
	})
	return router, tokenService
}

func TestRouter_ProtectedRoute_WithoutCookie_Returns401(t *testing.T) {
	router, _ := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/user/profile"},
		{http.MethodPost, "/user/upgrade-plan"},
		{http.MethodPost, "/transactions/add"},
		{http.MethodGet, "/transactions/all"},
		{http.MethodGet, "/transactions/type/deposit"},
	}

	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestRouter_ProtectedRoute_WithValidCookie_Succeeds(t *testing.T) {
	router, tokenService := newTestRouter(t)

	accessToken, err := tokenService.IssueAccessToken("user-123", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookieName, Value: accessToken})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alice@example.com") {
		t.Errorf("body = %s, want profile attributes", rec.Body.String())
	}
}

func TestRouter_AuthRoutes_AreReachableWithoutSession(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"email":"alice@example.com","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/log-in", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_FullSessionFlow_LoginThenAccessThenRefresh(t *testing.T) {
	router, _ := newTestRouter(t)

	// 1. ログインしてCookieを取得
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/log-in",
		strings.NewReader(`{"email":"alice@example.com","password":"secret123"}`))
	loginRec := httptest.NewRecorder()
	router.ServeHTTP(loginRec, loginReq)

	if loginRec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", loginRec.Code)
	}
	cookies := loginRec.Result().Cookies()

	// 2. 取得したCookieで保護ルートにアクセス
	listReq := httptest.NewRequest(http.MethodGet, "/transactions/all", nil)
	for _, c := range cookies {
		listReq.AddCookie(c)
	}
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", listRec.Code)
	}

	// 3. リフレッシュトークンで新しいアクセストークンを取得
	refreshReq := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	for _, c := range cookies {
		refreshReq.AddCookie(c)
	}
	refreshRec := httptest.NewRecorder()
	router.ServeHTTP(refreshRec, refreshReq)

	if refreshRec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", refreshRec.Code)
	}

	var newAccess *http.Cookie
	for _, c := range refreshRec.Result().Cookies() {
		if c.Name == middleware.AccessTokenCookieName {
			newAccess = c
		}
	}
	if newAccess == nil || newAccess.Value == "" {
		t.Fatal("expected new accessToken cookie from refresh")
	}
}

func TestRouter_Health_ReturnsOK(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_Preflight_Returns204WithCORSHeaders(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/log-in", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want request origin", got)
	}
}

type recordingHTTPMetrics struct {
	statusCodes []int
}

func (r *recordingHTTPMetrics) RecordHTTPStatus(statusCode int) {
	r.statusCodes = append(r.statusCodes, statusCode)
}

func TestRouter_RequestStatus_IsRecordedToMetrics(t *testing.T) {
	tokenService := token.NewService("access-secret", "refresh-secret", 15, 7)
	recorder := &recordingHTTPMetrics{}

	router := NewRouter(&RouterDeps{
		TokenVerifier:      tokenService,
		CORSAllowedOrigins: []string{"https://app.example.com"},
		Logger:             slog.New(slog.NewJSONHandler(io.Discard, nil)),
		HTTPMetrics:        recorder,
		AuthService:        &mockAuthService{},
		TokenService:       tokenService,
		UserService:        &mockUserService{},
		LedgerService:      &mockLedgerService{},
		DB:                 &mockPinger{},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodGet, "/user/profile", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 200の/healthと401の/user/profile、両方のステータスが記録される
	if len(recorder.statusCodes) != 2 {
		t.Fatalf("recorded statuses = %v, want 2 entries", recorder.statusCodes)
	}
	if recorder.statusCodes[0] != http.StatusOK {
		t.Errorf("first status = %d, want 200", recorder.statusCodes[0])
	}
	if recorder.statusCodes[1] != http.StatusUnauthorized {
		t.Errorf("second status = %d, want 401", recorder.statusCodes[1])
	}
}

func TestRouter_SecurityHeaders_AreSet(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
