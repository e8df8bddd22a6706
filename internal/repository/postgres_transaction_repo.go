package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bonnex/bonnex/internal/model"
)

// PostgresTransactionRepo はPostgreSQLを使用した取引台帳リポジトリ。
type PostgresTransactionRepo struct {
	db *sql.DB
}

// NewPostgresTransactionRepo はPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db}
}

// Create は取引レコードを作成する。
func (r *PostgresTransactionRepo) Create(ctx context.Context, tx *model.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, type, method, amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.UserID, tx.Type, tx.Method, tx.Amount, tx.Status, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("取引レコードの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの全取引をcreated_at降順で返す。
// 同一タイムスタンプの行はid降順で安定化する。
func (r *PostgresTransactionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, method, amount, status, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("取引一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListByUserIDAndType はユーザーの指定種別の取引をcreated_at降順で返す。
func (r *PostgresTransactionRepo) ListByUserIDAndType(ctx context.Context, userID string, txType model.TransactionType) ([]*model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, method, amount, status, created_at
		 FROM transactions
		 WHERE user_id = $1 AND type = $2
		 ORDER BY created_at DESC, id DESC`,
		userID, txType,
	)
	if err != nil {
		return nil, fmt.Errorf("種別指定の取引一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// scanTransactions は取引行の結果セットをスキャンする。
func scanTransactions(rows *sql.Rows) ([]*model.Transaction, error) {
	transactions := []*model.Transaction{}
	for rows.Next() {
		tx := &model.Transaction{}
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Type, &tx.Method,
			&tx.Amount, &tx.Status, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("取引行のスキャンに失敗しました: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("取引行の走査に失敗しました: %w", err)
	}
	return transactions, nil
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
