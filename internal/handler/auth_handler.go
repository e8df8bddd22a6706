// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bonnex/bonnex/internal/middleware"
	"github.com/bonnex/bonnex/internal/model"
	"github.com/bonnex/bonnex/internal/token"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password, fullName string) (*model.User, error)
	LogIn(ctx context.Context, email, password string) (*model.User, error)
	LogOut(ctx context.Context)
	ForgotPassword(ctx context.Context, email string) error
}

// TokenServiceInterface はトークンの発行・検証インターフェース。
// token.Serviceの部分集合として定義する。
type TokenServiceInterface interface {
	IssueAccessToken(userID, email string) (string, error)
	IssueRefreshToken(userID, email string) (string, error)
	Verify(tokenString string, kind token.Kind) (*token.Claims, error)
	AccessTokenMaxAge() int
	RefreshTokenMaxAge() int
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はセッションライフサイクル関連のHTTPハンドラー。
// トークンはHTTP Only Cookieで受け渡しし、レスポンスボディには含めない。
type AuthHandler struct {
	service      AuthServiceInterface
	tokenService TokenServiceInterface
	config       AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, tokenService TokenServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		tokenService: tokenService,
		config:       config,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignUp は新規アカウントを作成し、セッションを開始する。
// POST /auth/sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("email, password, name"))
		return
	}

	// 1. 必須フィールドの検証
	var missing []string
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError(strings.Join(missing, ", ")))
		return
	}

	// 2. アカウント作成
	user, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 3. トークンを発行し、Cookieでセッションを開始
	if err := h.issueSessionCookies(w, user); err != nil {
		slog.Error("failed to issue session tokens", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"message": "アカウントを作成しました。",
		"user":    toUserResponse(user),
	})
}

type logInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogIn は認証情報を検証し、セッションを開始する。
// POST /auth/log-in
func (h *AuthHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var req logInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("email, password"))
		return
	}

	var missing []string
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError(strings.Join(missing, ", ")))
		return
	}

	user, err := h.service.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.issueSessionCookies(w, user); err != nil {
		slog.Error("failed to issue session tokens", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message": "ログインしました。",
		"user":    toUserResponse(user),
	})
}

// LogOut はセッションCookieを破棄する。
// IdP側のサインアウトが失敗しても必ず200を返す。
// POST /auth/logout
func (h *AuthHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	h.service.LogOut(r.Context())

	h.clearCookie(w, middleware.AccessTokenCookieName)
	h.clearCookie(w, middleware.RefreshTokenCookieName)

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "ログアウトしました。",
	})
}

// Refresh はリフレッシュトークンを検証し、新しいアクセストークンを発行する。
// リフレッシュトークン自体は更新しない（ローテーションなし）。
// Cookie欠如は401、検証失敗は403で区別する。
// POST /auth/refresh-token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized,
			model.NewUnauthorizedError("リフレッシュトークンがありません。"))
		return
	}

	claims, err := h.tokenService.Verify(cookie.Value, token.KindRefresh)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			writeAPIErrorResponse(w, http.StatusForbidden, model.NewTokenExpiredError())
			return
		}
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewInvalidTokenError())
		return
	}

	accessToken, err := h.tokenService.IssueAccessToken(claims.UserID, claims.Email)
	if err != nil {
		slog.Error("failed to issue access token", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookieName, accessToken, h.tokenService.AccessTokenMaxAge())

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "トークンを更新しました。",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword はパスワードリセットメールの送信を依頼する。
// メールアドレスの存在有無にかかわらず成功レスポンスを返す。
// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("email"))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "パスワードリセットメールを送信しました。",
	})
}

// issueSessionCookies はアクセス・リフレッシュ両トークンを発行しCookieに設定する。
func (h *AuthHandler) issueSessionCookies(w http.ResponseWriter, user *model.User) error {
	accessToken, err := h.tokenService.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return err
	}
	refreshToken, err := h.tokenService.IssueRefreshToken(user.ID, user.Email)
	if err != nil {
		return err
	}

	h.setCookie(w, middleware.AccessTokenCookieName, accessToken, h.tokenService.AccessTokenMaxAge())
	h.setCookie(w, middleware.RefreshTokenCookieName, refreshToken, h.tokenService.RefreshTokenMaxAge())
	return nil
}

// setCookie はトークンCookieを設定する。
// クロスオリジンのフロントエンドからcredentials付きで送信されるためSameSite=Noneを使う。
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearCookie はCookieを失効させる。
func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}
}

// --- ヘルパー関数 ---

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidToken,
		model.ErrCodeTokenExpired, model.ErrCodeProfileNotFound:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidCredentials, model.ErrCodeSignUpFailed,
		model.ErrCodeMissingFields, model.ErrCodeInvalidTxType:
		return http.StatusBadRequest
	case model.ErrCodeProviderError, model.ErrCodeStoreError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
