package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bonnex/bonnex/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Create はプロフィール行を作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, full_name, plan_id, balance, total_investment,
		                       total_profit, join_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		profile.ID, profile.Email, profile.FullName, profile.PlanID,
		profile.Balance, profile.TotalInvestment, profile.TotalProfit,
		profile.JoinDate, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("プロフィール行の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	profile := &model.Profile{}
	var planID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, plan_id, balance, total_investment,
		        total_profit, join_date, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(
		&profile.ID, &profile.Email, &profile.FullName, &planID,
		&profile.Balance, &profile.TotalInvestment, &profile.TotalProfit,
		&profile.JoinDate, &profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}

	if planID.Valid {
		profile.PlanID = planID.String
	}

	return profile, nil
}

// UpdatePlan は指定プロフィールのplan_idを更新する。
// 対象行が存在しない場合はエラーを返す。
func (r *PostgresProfileRepo) UpdatePlan(ctx context.Context, id, planID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET plan_id = $1, updated_at = now() WHERE id = $2`,
		planID, id,
	)
	if err != nil {
		return fmt.Errorf("プランの更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("プロフィールが見つかりません: %s", id)
	}

	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
