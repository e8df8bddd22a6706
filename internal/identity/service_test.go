package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/bonnex/bonnex/internal/model"
	"github.com/bonnex/bonnex/internal/repository"
)

// --- モック定義 ---

type mockProvider struct {
	signUpFn             func(ctx context.Context, email, password string) (*ProviderUser, error)
	signInWithPasswordFn func(ctx context.Context, email, password string) (*ProviderUser, error)
	signOutFn            func(ctx context.Context) error
	resetPasswordFn      func(ctx context.Context, email, redirectTo string) error
}

func (m *mockProvider) SignUp(ctx context.Context, email, password string) (*ProviderUser, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password)
	}
	return &ProviderUser{ID: "user-123", Email: email}, nil
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (*ProviderUser, error) {
	if m.signInWithPasswordFn != nil {
		return m.signInWithPasswordFn(ctx, email, password)
	}
	return &ProviderUser{ID: "user-123", Email: email}, nil
}

func (m *mockProvider) SignOut(ctx context.Context) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx)
	}
	return nil
}

func (m *mockProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(ctx, email, redirectTo)
	}
	return nil
}

var _ Provider = (*mockProvider)(nil)

type mockProfileRepo struct {
	createFn     func(ctx context.Context, profile *model.Profile) error
	findByIDFn   func(ctx context.Context, id string) (*model.Profile, error)
	updatePlanFn func(ctx context.Context, id, planID string) error
}

func (m *mockProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if m.createFn != nil {
		return m.createFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileRepo) UpdatePlan(ctx context.Context, id, planID string) error {
	if m.updatePlanFn != nil {
		return m.updatePlanFn(ctx, id, planID)
	}
	return nil
}

var _ repository.ProfileRepository = (*mockProfileRepo)(nil)

func newTestService(provider *mockProvider, repo *mockProfileRepo) *Service {
	return NewService(provider, repo, ServiceConfig{FrontendURL: "https://app.example.com"}, nil)
}

// --- SignUp ---

func TestSignUp_Success_CreatesProfileWithIdentityID(t *testing.T) {
	ctx := context.Background()

	var created *model.Profile
	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.Profile) error {
			created = profile
			return nil
		},
	}
	svc := newTestService(&mockProvider{}, repo)

	user, err := svc.SignUp(ctx, "alice@example.com", "secret123", "Alice Tanaka")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	if user.ID != "user-123" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-123")
	}
	if user.FullName != "Alice Tanaka" {
		t.Errorf("user.FullName = %q, want %q", user.FullName, "Alice Tanaka")
	}
	if created == nil {
		t.Fatal("expected profile insert")
	}
	// プロフィールIDはIdP側アイデンティティIDと一致する
	if created.ID != "user-123" {
		t.Errorf("profile.ID = %q, want %q", created.ID, "user-123")
	}
	if created.FullName != "Alice Tanaka" {
		t.Errorf("profile.FullName = %q, want %q", created.FullName, "Alice Tanaka")
	}
	if created.JoinDate.IsZero() {
		t.Error("expected join_date to be set")
	}
}

func TestSignUp_ProviderRejects_ReturnsSignUpFailed(t *testing.T) {
	ctx := context.Background()

	provider := &mockProvider{
		signUpFn: func(ctx context.Context, email, password string) (*ProviderUser, error) {
			return nil, &AuthFailedError{StatusCode: 422, Message: "User already registered"}
		},
	}
	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.Profile) error {
			t.Fatal("profile insert should not happen when provider rejects")
			return nil
		},
	}
	svc := newTestService(provider, repo)

	_, err := svc.SignUp(ctx, "alice@example.com", "secret123", "Alice")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("SignUp() error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeSignUpFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeSignUpFailed)
	}
	// IdPの生メッセージはクライアントに漏らさない
	if apiErr.Message == "User already registered" {
		t.Error("provider raw message must not surface to the client")
	}
}

func TestSignUp_ProviderTransportError_ReturnsProviderError(t *testing.T) {
	ctx := context.Background()

	provider := &mockProvider{
		signUpFn: func(ctx context.Context, email, password string) (*ProviderUser, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestService(provider, &mockProfileRepo{})

	_, err := svc.SignUp(ctx, "alice@example.com", "secret123", "Alice")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("SignUp() error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeProviderError {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeProviderError)
	}
}

func TestSignUp_ProfileInsertFails_ReturnsStoreError(t *testing.T) {
	ctx := context.Background()

	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.Profile) error {
			return errors.New("insert failed")
		},
	}
	svc := newTestService(&mockProvider{}, repo)

	// IdP側作成は成功済みの部分失敗ケース。全体としては失敗を返す
	_, err := svc.SignUp(ctx, "alice@example.com", "secret123", "Alice")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("SignUp() error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeStoreError {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeStoreError)
	}
}

// --- LogIn ---

func TestLogIn_Success_UsesProfileFullName(t *testing.T) {
	ctx := context.Background()

	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, Email: "alice@example.com", FullName: "Alice Tanaka"}, nil
		},
	}
	svc := newTestService(&mockProvider{}, repo)

	user, err := svc.LogIn(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("LogIn() error = %v", err)
	}
	if user.FullName != "Alice Tanaka" {
		t.Errorf("FullName = %q, want %q", user.FullName, "Alice Tanaka")
	}
}

func TestLogIn_ProfileFetchFails_FallsBackToDefaultName(t *testing.T) {
	ctx := context.Background()

	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return nil, errors.New("query failed")
		},
	}
	svc := newTestService(&mockProvider{}, repo)

	// プロフィール読み取り失敗はログインを妨げない
	user, err := svc.LogIn(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("LogIn() error = %v", err)
	}
	if user.FullName != "User" {
		t.Errorf("FullName = %q, want fallback %q", user.FullName, "User")
	}
}

func TestLogIn_ProfileMissing_FallsBackToDefaultName(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(&mockProvider{}, &mockProfileRepo{})

	user, err := svc.LogIn(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("LogIn() error = %v", err)
	}
	if user.FullName != "User" {
		t.Errorf("FullName = %q, want fallback %q", user.FullName, "User")
	}
}

func TestLogIn_ProviderRejects_ReturnsInvalidCredentials(t *testing.T) {
	ctx := context.Background()

	provider := &mockProvider{
		signInWithPasswordFn: func(ctx context.Context, email, password string) (*ProviderUser, error) {
			return nil, &AuthFailedError{StatusCode: 400, Message: "Invalid login credentials"}
		},
	}
	svc := newTestService(provider, &mockProfileRepo{})

	_, err := svc.LogIn(ctx, "alice@example.com", "wrongpass")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("LogIn() error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
}

// --- LogOut ---

func TestLogOut_ProviderFails_DoesNotPanic(t *testing.T) {
	ctx := context.Background()

	provider := &mockProvider{
		signOutFn: func(ctx context.Context) error {
			return errors.New("connection refused")
		},
	}
	svc := newTestService(provider, &mockProfileRepo{})

	// ベストエフォート。失敗しても呼び出し側には影響しない
	svc.LogOut(ctx)
}

// --- ForgotPassword ---

func TestForgotPassword_Success_PassesRedirectURL(t *testing.T) {
	ctx := context.Background()

	var gotRedirect string
	provider := &mockProvider{
		resetPasswordFn: func(ctx context.Context, email, redirectTo string) error {
			gotRedirect = redirectTo
			return nil
		},
	}
	svc := newTestService(provider, &mockProfileRepo{})

	if err := svc.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	if gotRedirect != "https://app.example.com/reset-password" {
		t.Errorf("redirectTo = %q, want %q", gotRedirect, "https://app.example.com/reset-password")
	}
}

func TestForgotPassword_ProviderRejects_SwallowedAsSuccess(t *testing.T) {
	ctx := context.Background()

	provider := &mockProvider{
		resetPasswordFn: func(ctx context.Context, email, redirectTo string) error {
			return &AuthFailedError{StatusCode: 429, Message: "rate limit exceeded"}
		},
	}
	svc := newTestService(provider, &mockProfileRepo{})

	// メールアドレスの存在を推測させないため4xxは成功として扱う
	if err := svc.ForgotPassword(ctx, "unknown@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v, want nil", err)
	}
}

func TestForgotPassword_TransportError_ReturnsProviderError(t *testing.T) {
	ctx := context.Background()

	provider := &mockProvider{
		resetPasswordFn: func(ctx context.Context, email, redirectTo string) error {
			return errors.New("connection refused")
		},
	}
	svc := newTestService(provider, &mockProfileRepo{})

	err := svc.ForgotPassword(ctx, "alice@example.com")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ForgotPassword() error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeProviderError {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeProviderError)
	}
}

// --- FetchProfile / UpgradePlan ---

func TestFetchProfile_NotFound_ReturnsProfileNotFound(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(&mockProvider{}, &mockProfileRepo{})

	_, err := svc.FetchProfile(ctx, "user-unknown")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("FetchProfile() error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeProfileNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeProfileNotFound)
	}
}

func TestFetchProfile_Found_ReturnsDisplayAttributes(t *testing.T) {
	ctx := context.Background()

	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, Email: "alice@example.com", FullName: "Alice Tanaka"}, nil
		},
	}
	svc := newTestService(&mockProvider{}, repo)

	user, err := svc.FetchProfile(ctx, "user-123")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if user.Email != "alice@example.com" || user.FullName != "Alice Tanaka" {
		t.Errorf("unexpected profile attributes: %+v", user)
	}
}

func TestUpgradePlan_RepoFails_ReturnsStoreError(t *testing.T) {
	ctx := context.Background()

	repo := &mockProfileRepo{
		updatePlanFn: func(ctx context.Context, id, planID string) error {
			return errors.New("update failed")
		},
	}
	svc := newTestService(&mockProvider{}, repo)

	err := svc.UpgradePlan(ctx, "user-123", "premium")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("UpgradePlan() error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeStoreError {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeStoreError)
	}
}

func TestUpgradePlan_Success_WritesPlanID(t *testing.T) {
	ctx := context.Background()

	var gotID, gotPlan string
	repo := &mockProfileRepo{
		updatePlanFn: func(ctx context.Context, id, planID string) error {
			gotID, gotPlan = id, planID
			return nil
		},
	}
	svc := newTestService(&mockProvider{}, repo)

	if err := svc.UpgradePlan(ctx, "user-123", "premium"); err != nil {
		t.Fatalf("UpgradePlan() error = %v", err)
	}
	if gotID != "user-123" || gotPlan != "premium" {
		t.Errorf("UpdatePlan called with (%q, %q), want (user-123, premium)", gotID, gotPlan)
	}
}
