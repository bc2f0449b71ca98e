package adaptor

import (
	"io"
	"net/http"

	"artisan-marketplace/internal/dto/request"
	"artisan-marketplace/internal/usecase"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreateIntent handles POST /api/payments/intent (booking customer)
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreatePaymentIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	intent, err := h.service.CreatePaymentIntent(r.Context(), actor, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "create payment intent")
		return
	}

	utils.ResponseCreated(w, "Payment intent created", intent)
}

// ConfirmPayment handles POST /api/payments/confirm. Responds with
// {success, message, booking}.
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.ConfirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.ConfirmPayment(r.Context(), actor, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "confirm payment")
		return
	}

	utils.ResponseKeyed(w, http.StatusOK, "Payment confirmed", "booking", booking)
}

// CreateSubscriptionIntent handles POST /api/payments/subscription/intent (artisan)
func (h *PaymentHandler) CreateSubscriptionIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateSubscriptionIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	intent, err := h.service.CreateSubscriptionIntent(r.Context(), actor, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "create subscription intent")
		return
	}

	utils.ResponseCreated(w, "Subscription payment intent created", intent)
}

// ConfirmSubscription handles POST /api/payments/subscription/confirm (artisan)
func (h *PaymentHandler) ConfirmSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.ConfirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	subscription, err := h.service.ConfirmSubscription(r.Context(), actor, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "confirm subscription")
		return
	}

	utils.ResponseSuccess(w, "Subscription activated", subscription)
}

// ListTransactions handles GET /api/payments/transactions
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	req := paginationFrom(r)
	transactions, err := h.service.ListTransactions(r.Context(), actor, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "list transactions")
		return
	}

	utils.ResponseSuccess(w, "success", transactions)
}

// Webhook handles POST /api/payments/webhook (public, signed by the gateway).
// Only a bad signature is rejected; everything else is acknowledged with 200.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Warn("Failed to read webhook body", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	err = h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil && apperr.Is(err, apperr.ErrValidation) {
		h.log.Warn("Webhook rejected", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid webhook signature", nil)
		return
	}
	if err != nil {
		h.log.Error("Webhook processing failed", zap.Error(err))
	}

	utils.ResponseSuccess(w, "received", nil)
}
