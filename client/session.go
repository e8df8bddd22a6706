package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// SessionController はクライアント側のセッション状態を管理する。
// サーバーのCookieを唯一の真実とし、ローカルにはユーザー属性のみをキャッシュする。
type SessionController struct {
	client *Client

	mu        sync.Mutex
	user      *User
	isLoading bool

	// パスワード回復フロー中はサイレント復元を遅延させる。
	// 回復リンク経由の着地直後に復元が走ると回復セッションを上書きしてしまう。
	recovering bool

	// 進行中のRestoreがあれば後続はその完了を待つ（シングルフライト）
	restoreDone chan struct{}
	restoreErr  error
}

// NewSessionController はSessionControllerを生成する。
func NewSessionController(client *Client) *SessionController {
	return &SessionController{client: client}
}

// User は現在のユーザーを返す。未認証の場合はnil, false。
func (s *SessionController) User() (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, false
	}
	u := *s.user
	return &u, true
}

// IsLoading はセッション復元が進行中かどうかを返す。
func (s *SessionController) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

// BeginPasswordRecovery はパスワード回復フローの開始を記録する。
// 回復フロー中、Restoreは何もせずに成功を返す。
func (s *SessionController) BeginPasswordRecovery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recovering = true
}

// CompletePasswordRecovery はパスワード回復フローの終了を記録する。
func (s *SessionController) CompletePasswordRecovery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recovering = false
}

// Restore はリフレッシュトークンによるサイレントセッション復元を行う。
// リフレッシュに成功した場合のみプロフィールを取得してユーザーをキャッシュする。
// 失敗しても未認証状態に落とすだけでエラーは返さない（Cookieがない初回訪問は正常系）。
// 同時に複数回呼ばれた場合、2回目以降は進行中の復元の完了を待って同じ結果を返す。
func (s *SessionController) Restore(ctx context.Context) error {
	s.mu.Lock()

	if s.recovering {
		s.mu.Unlock()
		return nil
	}

	// 進行中の復元があれば待ち合わせる
	if s.restoreDone != nil {
		done := s.restoreDone
		s.mu.Unlock()
		select {
		case <-done:
			s.mu.Lock()
			err := s.restoreErr
			s.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	s.restoreDone = done
	s.isLoading = true
	s.mu.Unlock()

	err := s.restore(ctx)

	s.mu.Lock()
	s.restoreErr = err
	s.isLoading = false
	s.restoreDone = nil
	close(done)
	s.mu.Unlock()

	return err
}

// restore は復元の本体。呼び出し元がisLoadingの管理を行う。
func (s *SessionController) restore(ctx context.Context) error {
	// 1. リフレッシュトークンで新しいアクセストークンを取得
	err := s.client.doJSON(ctx, http.MethodPost, "/auth/refresh-token", nil, nil)
	if err != nil {
		var apiErr *APIError
		// 401/403はセッションなしとして扱い、エラーにはしない
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			s.setUser(nil)
			return nil
		}
		return err
	}

	// 2. プロフィールを取得してユーザーをキャッシュ
	user, err := s.fetchUser(ctx)
	if err != nil {
		s.setUser(nil)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil
		}
		return err
	}

	s.setUser(user)
	return nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"name,omitempty"`
}

type sessionResponse struct {
	User User `json:"user"`
}

// Login は認証情報でログインし、ユーザーをキャッシュする。
func (s *SessionController) Login(ctx context.Context, email, password string) (*User, error) {
	var resp sessionResponse
	err := s.client.doJSON(ctx, http.MethodPost, "/auth/log-in",
		credentialsRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	s.setUser(&resp.User)
	return &resp.User, nil
}

// Signup は新規アカウントを作成し、ユーザーをキャッシュする。
// サーバーはサインアップ成功と同時にセッションCookieを設定する。
func (s *SessionController) Signup(ctx context.Context, email, password, fullName string) (*User, error) {
	var resp sessionResponse
	err := s.client.doJSON(ctx, http.MethodPost, "/auth/sign-up",
		credentialsRequest{Email: email, Password: password, FullName: fullName}, &resp)
	if err != nil {
		return nil, err
	}

	s.setUser(&resp.User)
	return &resp.User, nil
}

// Logout はセッションを終了する。
// サーバー呼び出しの成否にかかわらずローカルのユーザーキャッシュは破棄する。
func (s *SessionController) Logout(ctx context.Context) error {
	err := s.client.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	s.setUser(nil)
	return err
}

// ForgotPassword はパスワードリセットメールの送信を依頼する。
func (s *SessionController) ForgotPassword(ctx context.Context, email string) error {
	return s.client.doJSON(ctx, http.MethodPost, "/auth/forgot-password",
		map[string]string{"email": email}, nil)
}

// FetchUser はサーバーからプロフィールを取得し直し、キャッシュを更新する。
func (s *SessionController) FetchUser(ctx context.Context) (*User, error) {
	user, err := s.fetchUser(ctx)
	if err != nil {
		return nil, err
	}
	s.setUser(user)
	return user, nil
}

// UpgradePlan はプランを変更し、プロフィールを取得し直す。
func (s *SessionController) UpgradePlan(ctx context.Context, planID string) error {
	err := s.client.doJSON(ctx, http.MethodPost, "/user/upgrade-plan",
		map[string]string{"planId": planID}, nil)
	if err != nil {
		return err
	}

	// プラン変更後の属性を反映
	if _, err := s.FetchUser(ctx); err != nil {
		return err
	}
	return nil
}

func (s *SessionController) fetchUser(ctx context.Context) (*User, error) {
	var resp sessionResponse
	if err := s.client.doJSON(ctx, http.MethodGet, "/user/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (s *SessionController) setUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}
