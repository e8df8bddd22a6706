package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bonnex/bonnex/internal/middleware"
)

// DBPinger はヘルスチェックが必要とするデータベース接続インターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier      middleware.TokenVerifier
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	Logger             *slog.Logger
	HTTPMetrics        middleware.HTTPMetricsRecorder

	// 認証・セッション
	AuthService  AuthServiceInterface
	TokenService TokenServiceInterface
	AuthConfig   AuthHandlerConfig

	// ユーザープロフィール
	UserService UserServiceInterface

	// 取引台帳
	LedgerService LedgerServiceInterface

	// 運用系
	DB             DBPinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → (保護ルートのみ) Session → RateLimit(General)
//
// 認証ルート（/auth/*）と運用系ルート（/health, /metrics）はセッション検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.HTTPMetrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	txHandler := NewTransactionHandler(deps.LedgerService)

	// --- 認証不要のルート ---

	// セッションライフサイクル
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", authHandler.SignUp)
		r.Post("/log-in", authHandler.LogIn)
		r.Post("/logout", authHandler.LogOut)
		r.Post("/refresh-token", authHandler.Refresh)
		r.Post("/forgot-password", authHandler.ForgotPassword)
	})

	// 運用系
	r.Get("/health", newHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// ユーザープロフィール
		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", userHandler.GetProfile)
			r.Post("/upgrade-plan", userHandler.UpgradePlan)
		})

		// 取引台帳
		r.Route("/transactions", func(r chi.Router) {
			// POST /transactions/add - 取引追加（書き込み専用レート制限を追加）
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.TransactionAddMiddleware()).Post("/add", txHandler.Add)
			} else {
				r.Post("/add", txHandler.Add)
			}

			r.Get("/all", txHandler.ListAll)
			r.Get("/type/{type}", txHandler.ListByType)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		writeJSONResponse(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
