// Package identity は外部IdPへのプロキシとローカルプロフィールの管理を提供する。
// 認証情報の検証・アカウント作成・パスワードリセットはすべてIdP側に委譲し、
// このパッケージ自体はセッション状態を一切持たない。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ProviderUser はIdPから返されたアイデンティティを表す。
type ProviderUser struct {
	ID    string
	Email string
}

// AuthFailedError はIdPが認証情報を拒否したことを表す（4xx系）。
// 通信障害やIdP内部エラーとは区別され、呼び出し側で401/400に変換される。
type AuthFailedError struct {
	StatusCode int
	Message    string // IdPの生メッセージ。ログ専用でクライアントには返さない
}

// Error はerrorインターフェースを実装する。
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("identity provider rejected request with status %d: %s", e.StatusCode, e.Message)
}

// Provider は外部IdPのインターフェース。
// 実装はGoTrue互換のREST APIクライアントだが、テストではモックに差し替える。
type Provider interface {
	// SignUp はIdP側にアイデンティティを作成する。
	SignUp(ctx context.Context, email, password string) (*ProviderUser, error)
	// SignInWithPassword はパスワードグラントで認証情報を検証する。
	SignInWithPassword(ctx context.Context, email, password string) (*ProviderUser, error)
	// SignOut はIdP側のセッションを破棄する。ベストエフォートで呼ばれる。
	SignOut(ctx context.Context) error
	// ResetPasswordForEmail はパスワードリセットメールの送信をIdPに依頼する。
	// 未知のメールアドレスに対してIdPが黙ってno-opする場合もエラーにはならない。
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
}

// GoTrueConfig はGoTrue互換IdPクライアントの設定。
type GoTrueConfig struct {
	BaseURL string
	APIKey  string

	// テスト用に差し替え可能なHTTPクライアント
	HTTPClient *http.Client
}

// GoTrueProvider はGoTrue互換のREST APIを呼び出すIdPクライアント。
type GoTrueProvider struct {
	config     GoTrueConfig
	httpClient *http.Client
}

// NewGoTrueProvider はGoTrueProviderを生成する。
func NewGoTrueProvider(config GoTrueConfig) *GoTrueProvider {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &GoTrueProvider{config: config, httpClient: client}
}

// gotrueUserResponse はGoTrueのユーザーオブジェクトのレスポンス。
type gotrueUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// gotrueSignUpResponse はsignupエンドポイントのレスポンス。
// GoTrueは設定によりユーザーオブジェクトを直接返す場合とuserフィールドに包んで返す場合がある。
type gotrueSignUpResponse struct {
	gotrueUserResponse
	User *gotrueUserResponse `json:"user"`
}

// gotrueTokenResponse はtokenエンドポイントのレスポンス。
type gotrueTokenResponse struct {
	AccessToken string             `json:"access_token"`
	User        gotrueUserResponse `json:"user"`
}

// gotrueErrorResponse はGoTrueのエラーレスポンス。
// バージョンによりフィールド名が異なるため両方を受ける。
type gotrueErrorResponse struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

// SignUp はIdP側にアイデンティティを作成する。
func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string) (*ProviderUser, error) {
	body, err := p.post(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var resp gotrueSignUpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse signup response: %w", err)
	}

	user := resp.gotrueUserResponse
	if resp.User != nil {
		user = *resp.User
	}
	if user.ID == "" {
		return nil, fmt.Errorf("missing user ID in signup response")
	}

	return &ProviderUser{ID: user.ID, Email: user.Email}, nil
}

// SignInWithPassword はパスワードグラントで認証情報を検証する。
func (p *GoTrueProvider) SignInWithPassword(ctx context.Context, email, password string) (*ProviderUser, error) {
	body, err := p.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var resp gotrueTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if resp.User.ID == "" {
		return nil, fmt.Errorf("missing user ID in token response")
	}

	return &ProviderUser{ID: resp.User.ID, Email: resp.User.Email}, nil
}

// SignOut はIdP側のセッションを破棄する。
func (p *GoTrueProvider) SignOut(ctx context.Context) error {
	_, err := p.post(ctx, "/auth/v1/logout", nil)
	return err
}

// ResetPasswordForEmail はパスワードリセットメールの送信をIdPに依頼する。
// redirectToはリセット完了後にユーザーを戻すフロントエンドのURL。
func (p *GoTrueProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	_, err := p.post(ctx, path, map[string]string{"email": email})
	return err
}

// post はIdPのエンドポイントにJSONボディをPOSTする。
// 4xxはAuthFailedError、それ以外の非2xxは通常のエラーとして返す。
func (p *GoTrueProvider) post(ctx context.Context, path string, payload map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var errResp gotrueErrorResponse
		_ = json.Unmarshal(body, &errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.ErrorDescription
		}
		if msg == "" {
			msg = string(body)
		}
		return nil, &AuthFailedError{StatusCode: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// compile-time interface check
var _ Provider = (*GoTrueProvider)(nil)
