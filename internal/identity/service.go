package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bonnex/bonnex/internal/model"
	"github.com/bonnex/bonnex/internal/repository"
)

// MetricsRecorder は認証まわりのメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordSignUp(success bool)
	RecordLogin(success bool)
	RecordProviderLatency(d time.Duration)
}

// nopMetrics は何も記録しないMetricsRecorder。テストおよび未設定時に使う。
type nopMetrics struct{}

func (nopMetrics) RecordSignUp(bool)                 {}
func (nopMetrics) RecordLogin(bool)                  {}
func (nopMetrics) RecordProviderLatency(time.Duration) {}

// ServiceConfig はIdentity Gatewayの設定。
type ServiceConfig struct {
	FrontendURL string // パスワードリセットのリダイレクト先フロントエンドURL
}

// Service は外部IdPへの委譲とローカルプロフィールの管理を行う。
// セッション状態は持たない。トークンの発行はhandler層がtoken.Serviceで行う。
type Service struct {
	provider    Provider
	profileRepo repository.ProfileRepository
	config      ServiceConfig
	metrics     MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilの場合無効化される。
func NewService(provider Provider, profileRepo repository.ProfileRepository, config ServiceConfig, metrics MetricsRecorder) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		provider:    provider,
		profileRepo: profileRepo,
		config:      config,
		metrics:     metrics,
	}
}

// SignUp はIdP側アイデンティティを作成し、ローカルプロフィール行を挿入する。
// IdP作成成功後にプロフィール挿入が失敗すると、IdP側にだけアイデンティティが
// 残る部分失敗状態になる。ロールバックは行わず、ログに記録して失敗を返す。
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*model.User, error) {
	start := time.Now()
	providerUser, err := s.provider.SignUp(ctx, email, password)
	s.metrics.RecordProviderLatency(time.Since(start))

	if err != nil {
		s.metrics.RecordSignUp(false)

		var authErr *AuthFailedError
		if errors.As(err, &authErr) {
			// IdPの生メッセージ（重複メール、弱いパスワード等）はログのみに残す
			slog.Warn("provider rejected signup",
				slog.Int("provider_status", authErr.StatusCode),
				slog.String("provider_message", authErr.Message),
			)
			return nil, model.NewSignUpFailedError()
		}
		slog.Error("provider signup failed", slog.String("error", err.Error()))
		return nil, model.NewProviderError()
	}

	now := time.Now()
	profile := &model.Profile{
		ID:        providerUser.ID,
		Email:     email,
		FullName:  fullName,
		JoinDate:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		s.metrics.RecordSignUp(false)
		// IdP側アイデンティティは作成済み。ローカルプロフィールのない孤児状態を記録する
		slog.Error("profile insert failed after provider signup",
			slog.String("identity_id", providerUser.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreError()
	}

	s.metrics.RecordSignUp(true)
	slog.Info("user signed up", slog.String("user_id", providerUser.ID))

	return &model.User{ID: providerUser.ID, Email: email, FullName: fullName}, nil
}

// LogIn は認証情報の検証をIdPに委譲する。
// プロフィールのfull_name読み取りに失敗してもログインは成功し、"User"で代替する。
func (s *Service) LogIn(ctx context.Context, email, password string) (*model.User, error) {
	start := time.Now()
	providerUser, err := s.provider.SignInWithPassword(ctx, email, password)
	s.metrics.RecordProviderLatency(time.Since(start))

	if err != nil {
		s.metrics.RecordLogin(false)

		var authErr *AuthFailedError
		if errors.As(err, &authErr) {
			slog.Warn("provider rejected login",
				slog.Int("provider_status", authErr.StatusCode),
				slog.String("provider_message", authErr.Message),
			)
			return nil, model.NewInvalidCredentialsError()
		}
		slog.Error("provider login failed", slog.String("error", err.Error()))
		return nil, model.NewProviderError()
	}

	fullName := "User"
	profile, err := s.profileRepo.FindByID(ctx, providerUser.ID)
	if err != nil {
		slog.Warn("profile fetch failed during login, using fallback name",
			slog.String("user_id", providerUser.ID),
			slog.String("error", err.Error()),
		)
	} else if profile != nil {
		fullName = profile.FullName
	}

	s.metrics.RecordLogin(true)
	slog.Info("user logged in", slog.String("user_id", providerUser.ID))

	return &model.User{ID: providerUser.ID, Email: providerUser.Email, FullName: fullName}, nil
}

// LogOut はIdP側のサインアウトをベストエフォートで行う。
// IdP呼び出しの失敗はログに残すだけで、呼び出し側には常に成功を返す。
func (s *Service) LogOut(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		slog.Warn("provider sign-out failed", slog.String("error", err.Error()))
	}
}

// ForgotPassword はIdPにパスワードリセットメールの送信を依頼する。
// 未知のメールアドレスでもIdPのenumeration防止に合わせて成功として扱う。
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	redirectTo := s.config.FrontendURL + "/reset-password"

	if err := s.provider.ResetPasswordForEmail(ctx, email, redirectTo); err != nil {
		var authErr *AuthFailedError
		if errors.As(err, &authErr) {
			slog.Warn("provider rejected password reset request",
				slog.Int("provider_status", authErr.StatusCode),
				slog.String("provider_message", authErr.Message),
			)
			return nil
		}
		slog.Error("password reset request failed", slog.String("error", err.Error()))
		return model.NewProviderError()
	}

	return nil
}

// FetchProfile はプロフィールの表示属性（full_name, email）を取得する。
func (s *Service) FetchProfile(ctx context.Context, userID string) (*model.User, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	return &model.User{ID: profile.ID, Email: profile.Email, FullName: profile.FullName}, nil
}

// UpgradePlan はプロフィールのplan_idを書き換える。
// 決済や台帳との整合チェックは行わない無条件の書き込みである。
func (s *Service) UpgradePlan(ctx context.Context, userID, planID string) error {
	if err := s.profileRepo.UpdatePlan(ctx, userID, planID); err != nil {
		slog.Error("plan upgrade failed",
			slog.String("user_id", userID),
			slog.String("plan_id", planID),
			slog.String("error", err.Error()),
		)
		return model.NewStoreError()
	}

	slog.Info("plan upgraded",
		slog.String("user_id", userID),
		slog.String("plan_id", planID),
	)
	return nil
}
