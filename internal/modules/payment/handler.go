package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentals/internal/middleware"
	"rentals/internal/pkg/gateway"
	"rentals/internal/pkg/response"
	"rentals/internal/pkg/validator"
)

// maxWebhookBody matches the processor's documented maximum event size.
const maxWebhookBody = 65536

type Handler struct {
	service    *Service
	reconciler *Reconciler
	log        *zap.Logger
}

func NewHandler(service *Service, reconciler *Reconciler, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, reconciler: reconciler, log: log}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("/create-payment-intent", h.CreatePaymentIntent)
		payments.POST("/confirm-payment-intent", h.ConfirmPaymentIntent)
		payments.POST("/verify-stripe-payment", h.VerifyPayment)
		payments.GET("/confirmation/:payment_intent_id", h.GetConfirmation)
		payments.GET("/booking/:booking_id/status", h.GetBookingPaymentStatus)
	}
}

// RegisterWebhookRoutes mounts the webhook without auth. Trust comes from
// the signature only.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Fields(err))
		return
	}

	resp, err := h.service.CreatePaymentIntent(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) ConfirmPaymentIntent(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	var req ConfirmIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Fields(err))
		return
	}

	resp, err := h.service.ConfirmPaymentIntent(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Fields(err))
		return
	}

	resp, err := h.service.VerifyPayment(c.Request.Context(), userID, req.PaymentIntentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) GetConfirmation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	intentID := c.Param("payment_intent_id")

	view, err := h.service.GetConfirmation(c.Request.Context(), userID, intentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) GetBookingPaymentStatus(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	bookingID, err := strconv.ParseInt(c.Param("booking_id"), 10, 64)
	if err != nil || bookingID <= 0 {
		response.ValidationError(c, map[string]string{"booking_id": "invalid"})
		return
	}

	view, err := h.service.GetBookingPaymentStatus(c.Request.Context(), userID, bookingID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Webhook must see the body byte for byte; nothing upstream may parse it.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		h.log.Error("webhook body read failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookBody {
		response.Error(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Webhook payload too large")
		return
	}

	res, err := h.reconciler.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, ErrSignatureInvalid) {
			response.Error(c, http.StatusBadRequest, "SIGNATURE_INVALID", "Webhook signature verification failed")
			return
		}
		response.Internal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "action": res.Action})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		response.NotFound(c, "Booking not found")
	case errors.Is(err, gateway.ErrIntentNotFound):
		response.NotFound(c, "Payment intent not found")
	case errors.Is(err, ErrAmountExceedsTotal):
		response.ValidationError(c, map[string]string{"amount": "lte_total"})
	case errors.Is(err, gateway.ErrInvalidAmount):
		response.ValidationError(c, map[string]string{"amount": "gt"})
	case errors.Is(err, gateway.ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Payment request was rejected by the processor")
	case errors.Is(err, ErrPaymentNotAllowed):
		response.Error(c, http.StatusConflict, "PAYMENT_NOT_ALLOWED", "Payment is not allowed for this booking")
	case errors.Is(err, ErrPaymentConflict):
		response.Error(c, http.StatusConflict, "PAYMENT_CONFLICT", "Another payment attempt is already in progress")
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", "Payments are temporarily unavailable")
	default:
		h.log.Error("payment request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c)
	}
}
