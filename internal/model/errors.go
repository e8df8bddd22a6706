// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, ledger, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSignUpFailed       = "SIGNUP_FAILED"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidTxType      = "INVALID_TRANSACTION_TYPE"
	ErrCodeProfileNotFound    = "PROFILE_NOT_FOUND"
	ErrCodeProviderError      = "PROVIDER_ERROR"
	ErrCodeStoreError         = "STORE_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  reason,
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
// 署名不正とは区別されるコードを持つ。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインするか、トークンをリフレッシュしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewSignUpFailedError はサインアップ失敗エラーを生成する。
func NewSignUpFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSignUpFailed,
		Message:  "アカウントの作成に失敗しました。",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認して再度お試しください。",
	}
}

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError(fields string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("必須フィールドが不足しています: %s", fields),
		Category: "validation",
		Action:   "すべての必須フィールドを入力してください。",
	}
}

// NewInvalidTxTypeError は無効な取引種別エラーを生成する。
func NewInvalidTxTypeError(txType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTxType,
		Message:  fmt.Sprintf("無効な取引種別です: %s", txType),
		Category: "validation",
		Action:   "取引種別を確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProviderError はIdP呼び出し失敗エラーを生成する。
// IdPの生のエラーメッセージはログのみに記録し、ここには含めない。
func NewProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  "認証サービスとの通信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewStoreError はデータストア操作失敗エラーを生成する。
func NewStoreError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreError,
		Message:  "データの保存または取得に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
