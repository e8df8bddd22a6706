package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bonnex/bonnex/internal/ledger"
	"github.com/bonnex/bonnex/internal/middleware"
	"github.com/bonnex/bonnex/internal/model"
)

// LedgerServiceInterface は取引ハンドラーが必要とするサービスインターフェース。
type LedgerServiceInterface interface {
	Add(ctx context.Context, userID string, in ledger.AddInput) (*model.Transaction, error)
	ListAll(ctx context.Context, userID string) ([]*model.Transaction, error)
	ListByType(ctx context.Context, userID, typeStr string) ([]*model.Transaction, error)
}

// TransactionHandler は取引台帳のHTTPハンドラー。
type TransactionHandler struct {
	service LedgerServiceInterface
}

// NewTransactionHandler はTransactionHandlerを生成する。
func NewTransactionHandler(service LedgerServiceInterface) *TransactionHandler {
	return &TransactionHandler{
		service: service,
	}
}

// transactionResponse は取引レコードのAPIレスポンス。
type transactionResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Type      string  `json:"type"`
	Method    string  `json:"method"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type addTransactionRequest struct {
	Type   string  `json:"type"`
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

// Add は取引レコードを追記する。
// user_idはリクエストボディからではなく認証コンテキストから取得する。
// POST /transactions/add
func (h *TransactionHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("認証が必要です。"))
		return
	}

	var req addTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewMissingFieldsError("type, method, amount, status"))
		return
	}

	tx, err := h.service.Add(r.Context(), userID, ledger.AddInput{
		Type:   req.Type,
		Method: req.Method,
		Amount: req.Amount,
		Status: req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(tx),
	})
}

// ListAll は認証済みユーザーの全取引を新しい順で返す。
// GET /transactions/all
func (h *TransactionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("認証が必要です。"))
		return
	}

	transactions, err := h.service.ListAll(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"transactions": toTransactionResponses(transactions),
	})
}

// ListByType は認証済みユーザーの指定種別の取引を新しい順で返す。
// GET /transactions/type/{type}
func (h *TransactionHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("認証が必要です。"))
		return
	}

	typeStr := chi.URLParam(r, "type")

	transactions, err := h.service.ListByType(r.Context(), userID, typeStr)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"transactions": toTransactionResponses(transactions),
	})
}

// toTransactionResponse はmodel.TransactionからAPIレスポンスに変換する。
func toTransactionResponse(tx *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:        tx.ID,
		UserID:    tx.UserID,
		Type:      string(tx.Type),
		Method:    tx.Method,
		Amount:    tx.Amount,
		Status:    string(tx.Status),
		CreatedAt: tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toTransactionResponses は取引のスライスをAPIレスポンスに変換する。
// 0件の場合もnullではなく空配列を返す。
func toTransactionResponses(transactions []*model.Transaction) []transactionResponse {
	responses := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, toTransactionResponse(tx))
	}
	return responses
}
