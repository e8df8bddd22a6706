// Package model はドメインモデルを定義する。
package model

import "time"

// TransactionType は取引種別を表す。
type TransactionType string

const (
	// TransactionTypeDeposit は入金を表す。
	TransactionTypeDeposit TransactionType = "deposit"
	// TransactionTypeWithdrawal は出金を表す。
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	// TransactionTypeFundLog は資金ログを表す。
	TransactionTypeFundLog TransactionType = "fund_log"
	// TransactionTypeSignalPurchase はシグナル購入を表す。
	TransactionTypeSignalPurchase TransactionType = "signal_purchase"
)

// TransactionStatus は取引の処理状態を表す。
type TransactionStatus string

const (
	// TransactionStatusPending は処理待ちを表す。
	TransactionStatusPending TransactionStatus = "Pending"
	// TransactionStatusCompleted は完了を表す。
	TransactionStatusCompleted TransactionStatus = "Completed"
	// TransactionStatusFailed は失敗を表す。
	TransactionStatusFailed TransactionStatus = "Failed"
)

// Transaction は取引台帳の1レコードを表す。
// 作成後は不変であり、台帳は追記のみ（更新・削除エンドポイントは存在しない）。
type Transaction struct {
	ID        string
	UserID    string
	Type      TransactionType
	Method    string // 支払い/資産方式の自由記述（例: "bitcoin"）
	Amount    float64
	Status    TransactionStatus
	CreatedAt time.Time
}

// ValidAddType は追加エンドポイントで受け付ける取引種別かどうかを返す。
func ValidAddType(t TransactionType) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeFundLog, TransactionTypeSignalPurchase:
		return true
	}
	return false
}

// ValidFilterType は種別フィルタで受け付ける取引種別かどうかを返す。
// 追加エンドポイントの許容セットより狭い（signal_purchaseはフィルタ不可）。
func ValidFilterType(t TransactionType) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeFundLog:
		return true
	}
	return false
}
