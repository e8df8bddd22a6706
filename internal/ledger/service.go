// Package ledger は取引台帳のビジネスロジックを提供する。
// 台帳は追記のみで、すべての操作は認証済みユーザーのIDにスコープされる。
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bonnex/bonnex/internal/model"
	"github.com/bonnex/bonnex/internal/repository"
	"github.com/google/uuid"
)

// MetricsRecorder は台帳まわりのメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordTransactionCreated(txType string)
}

// nopMetrics は何も記録しないMetricsRecorder。
type nopMetrics struct{}

func (nopMetrics) RecordTransactionCreated(string) {}

// AddInput は取引追加の入力を表す。
type AddInput struct {
	Type   string
	Method string
	Amount float64
	Status string
}

// Service は取引台帳の操作を提供する。
type Service struct {
	repo    repository.TransactionRepository
	metrics MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilの場合無効化される。
func NewService(repo repository.TransactionRepository, metrics MetricsRecorder) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{repo: repo, metrics: metrics}
}

// Add は取引レコードを追記する。
// user_idは必ず認証済みユーザーのIDで上書きされ、クライアントが他ユーザーの
// 取引を作成することはできない。金額の符号や範囲の検証は行わない。
func (s *Service) Add(ctx context.Context, userID string, in AddInput) (*model.Transaction, error) {
	// 1. 必須フィールドの検証
	var missing []string
	if in.Type == "" {
		missing = append(missing, "type")
	}
	if in.Method == "" {
		missing = append(missing, "method")
	}
	if in.Amount == 0 {
		missing = append(missing, "amount")
	}
	if in.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(strings.Join(missing, ", "))
	}

	// 2. 取引種別の検証
	txType := model.TransactionType(in.Type)
	if !model.ValidAddType(txType) {
		return nil, model.NewInvalidTxTypeError(in.Type)
	}

	// 3. 追記
	tx := &model.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      txType,
		Method:    in.Method,
		Amount:    in.Amount,
		Status:    model.TransactionStatus(in.Status),
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		slog.Error("transaction insert failed",
			slog.String("user_id", userID),
			slog.String("type", in.Type),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreError()
	}

	s.metrics.RecordTransactionCreated(in.Type)
	slog.Info("transaction created",
		slog.String("transaction_id", tx.ID),
		slog.String("user_id", userID),
		slog.String("type", in.Type),
	)

	return tx, nil
}

// ListAll はユーザーの全取引をcreated_at降順（新しい順）で返す。
// この順序はクライアントの「最近のアクティビティ」表示の正しさに直結する。
func (s *Service) ListAll(ctx context.Context, userID string) ([]*model.Transaction, error) {
	transactions, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		slog.Error("transaction list failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreError()
	}
	return transactions, nil
}

// ListByType はユーザーの指定種別の取引をcreated_at降順で返す。
// フィルタの許容セットは追加時のセットより狭く、signal_purchaseは指定できない。
func (s *Service) ListByType(ctx context.Context, userID, typeStr string) ([]*model.Transaction, error) {
	txType := model.TransactionType(typeStr)
	if !model.ValidFilterType(txType) {
		return nil, model.NewInvalidTxTypeError(typeStr)
	}

	transactions, err := s.repo.ListByUserIDAndType(ctx, userID, txType)
	if err != nil {
		slog.Error("transaction list by type failed",
			slog.String("user_id", userID),
			slog.String("type", typeStr),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreError()
	}
	return transactions, nil
}
