package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bonnex/bonnex/internal/middleware"
	"github.com/bonnex/bonnex/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// FetchProfile はプロフィールの表示属性を取得する。
	FetchProfile(ctx context.Context, userID string) (*model.User, error)
	// UpgradePlan はプロフィールのplan_idを書き換える。
	UpgradePlan(ctx context.Context, userID, planID string) error
}

// UserHandler はユーザープロフィール管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// profileResponse はプロフィール取得のAPIレスポンス。
// 表示用の属性のみを返し、金額系フィールドは含めない。
type profileResponse struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// GetProfile は認証済みユーザーのプロフィール表示属性を返す。
// GET /user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("認証が必要です。"))
		return
	}

	user, err := h.service.FetchProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"user": profileResponse{
			FullName: user.FullName,
			Email:    user.Email,
		},
	})
}

type upgradePlanRequest struct {
	PlanID string `json:"planId"`
}

// UpgradePlan は認証済みユーザーのプランを変更する。
// POST /user/upgrade-plan
func (h *UserHandler) UpgradePlan(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("認証が必要です。"))
		return
	}

	var req upgradePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("planId"))
		return
	}

	if err := h.service.UpgradePlan(r.Context(), userID, req.PlanID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "プランを変更しました。",
	})
}
