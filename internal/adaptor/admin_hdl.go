package adaptor

import (
	"net/http"

	"artisan-marketplace/internal/dto/request"
	"artisan-marketplace/internal/usecase"
	"artisan-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves fee configuration and the operational batch jobs.
type AdminHandler struct {
	fees          usecase.FeeService
	subscriptions usecase.SubscriptionService
	payments      usecase.PaymentService
	log           *zap.Logger
}

func NewAdminHandler(fees usecase.FeeService, subscriptions usecase.SubscriptionService, payments usecase.PaymentService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		fees:          fees,
		subscriptions: subscriptions,
		payments:      payments,
		log:           log.With(zap.String("handler", "admin")),
	}
}

// ListPlatformFees handles GET /api/admin/platform-fees
func (h *AdminHandler) ListPlatformFees(w http.ResponseWriter, r *http.Request) {
	configs, err := h.fees.ListConfigs(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "list platform fees")
		return
	}

	utils.ResponseSuccess(w, "success", configs)
}

// UpsertPlatformFee handles PUT /api/admin/platform-fees/{tier}
func (h *AdminHandler) UpsertPlatformFee(w http.ResponseWriter, r *http.Request) {
	var req request.UpsertPlatformFeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	config, err := h.fees.UpsertConfig(r.Context(), chi.URLParam(r, "tier"), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "upsert platform fee")
		return
	}

	utils.ResponseSuccess(w, "Platform fee updated", config)
}

// SweepSubscriptions handles POST /api/admin/subscriptions/sweep
func (h *AdminHandler) SweepSubscriptions(w http.ResponseWriter, r *http.Request) {
	result, err := h.subscriptions.SweepExpirations(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "sweep subscriptions")
		return
	}

	utils.ResponseSuccess(w, "Subscription sweep finished", result)
}

// ReconcileRefunds handles POST /api/admin/refunds/reconcile?limit=
func (h *AdminHandler) ReconcileRefunds(w http.ResponseWriter, r *http.Request) {
	limit := utils.ParseInt(r.URL.Query().Get("limit"), 50)

	result, err := h.payments.ReconcileRefunds(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.log, err, "reconcile refunds")
		return
	}

	utils.ResponseSuccess(w, "Refund reconciliation finished", result)
}
