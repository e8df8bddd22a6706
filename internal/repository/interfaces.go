// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/bonnex/bonnex/internal/model"
)

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// Create はプロフィール行を作成する。IDはIdP側のアイデンティティID。
	Create(ctx context.Context, profile *model.Profile) error

	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// UpdatePlan は指定プロフィールのplan_idを更新する。
	UpdatePlan(ctx context.Context, id, planID string) error
}

// TransactionRepository は取引台帳の永続化インターフェース。
// 台帳は追記のみであり、更新・削除操作は提供しない。
type TransactionRepository interface {
	// Create は取引レコードを作成する。
	Create(ctx context.Context, tx *model.Transaction) error

	// ListByUserID はユーザーの全取引をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Transaction, error)

	// ListByUserIDAndType はユーザーの指定種別の取引をcreated_at降順で返す。
	ListByUserIDAndType(ctx context.Context, userID string, txType model.TransactionType) ([]*model.Transaction, error)
}
