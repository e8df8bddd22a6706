// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bonnex/bonnex/internal/model"
	"github.com/bonnex/bonnex/internal/token"
)

// AccessTokenCookieName はアクセストークンを保持するCookie名。
const AccessTokenCookieName = "accessToken"

// RefreshTokenCookieName はリフレッシュトークンを保持するCookie名。
const RefreshTokenCookieName = "refreshToken"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// emailContextKey はリクエストコンテキストにメールアドレスを格納するためのキー。
	emailContextKey = contextKey("email")
)

// TokenVerifier はアクセストークンの検証に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string, kind token.Kind) (*token.Claims, error)
}

// NewSessionMiddleware はHTTP Only Cookieからアクセストークンを読み取り、
// 署名と有効期限を検証するミドルウェアを返す。
// 認証済みユーザーIDとメールアドレスをリクエストコンテキストに注入する。
// Cookie欠如と検証失敗はいずれも401を返すが、期限切れは専用コードで区別する。
func NewSessionMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからアクセストークンを取得
			cookie, err := r.Cookie(AccessTokenCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError("認証トークンがありません。"))
				return
			}

			// 2. 署名と有効期限を検証
			claims, err := verifier.Verify(cookie.Value, token.KindAccess)
			if err != nil {
				if errors.Is(err, token.ErrTokenExpired) {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenExpiredError())
					return
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			// 3. 認証済みユーザーの属性をコンテキストに注入
			ctx := ContextWithUserID(r.Context(), claims.UserID)
			ctx = context.WithValue(ctx, emailContextKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// EmailFromContext はリクエストコンテキストからメールアドレスを取得する。
func EmailFromContext(ctx context.Context) (string, error) {
	email, ok := ctx.Value(emailContextKey).(string)
	if !ok || email == "" {
		return "", fmt.Errorf("email not found in context")
	}
	return email, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
