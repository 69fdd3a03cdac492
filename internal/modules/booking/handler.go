package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentals/internal/domain"
	"rentals/internal/middleware"
	"rentals/internal/pkg/response"
	"rentals/internal/pkg/validator"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", middleware.RequireRole(domain.RoleRenter), h.Create)
		bookings.GET("/my", h.ListMine)
		bookings.GET("/incoming", middleware.RequireRole(domain.RoleOwner), h.ListIncoming)
		bookings.GET("/:id", h.Get)
		bookings.POST("/:id/approve", middleware.RequireRole(domain.RoleOwner), h.Approve)
		bookings.POST("/:id/reject", middleware.RequireRole(domain.RoleOwner), h.Reject)
		bookings.POST("/:id/cancel", h.Cancel)
	}
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Fields(err))
		return
	}
	b, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	limit, offset := limitOffset(c)
	res, err := h.service.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ListIncoming(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	limit, offset := limitOffset(c)
	res, err := h.service.ListIncoming(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Approve(c *gin.Context) {
	h.act(c, h.service.Approve)
}

func (h *Handler) Reject(c *gin.Context) {
	h.act(c, h.service.Reject)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.act(c, h.service.Cancel)
}

func (h *Handler) act(c *gin.Context, fn func(ctx context.Context, userID, id int64) (*domain.Booking, error)) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := fn(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.ValidationError(c, map[string]string{"dates": "invalid"})
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Booking not found")
	case errors.Is(err, ErrPropertyNotFound):
		response.NotFound(c, "Property not found")
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrOwnProperty):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, ErrNotAvailable):
		response.Error(c, http.StatusConflict, "NOT_AVAILABLE", "Property is already booked for these dates")
	case errors.Is(err, ErrInvalidStatus):
		response.Error(c, http.StatusConflict, "INVALID_STATUS", "Booking status does not allow this action")
	default:
		h.log.Error("booking request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c)
	}
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, map[string]string{"id": "invalid"})
		return 0, false
	}
	return id, true
}

func limitOffset(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
