package interaction

import (
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

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/properties/:id/ratings", h.ListRatings)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	favs := rg.Group("/favorites")
	{
		favs.GET("", h.ListFavorites)
		favs.GET("/:propertyId/check", h.CheckFavorite)
		favs.POST("/:propertyId", h.AddFavorite)
		favs.DELETE("/:propertyId", h.RemoveFavorite)
	}
	rg.PUT("/properties/:id/rating", h.Rate)
	rg.POST("/properties/:id/complaints", h.FileComplaint)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/admin/complaints", h.ListComplaints)
	rg.POST("/admin/complaints/:id/resolve", h.ResolveComplaint)
}

func (h *Handler) AddFavorite(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, "propertyId")
	if !ok {
		return
	}
	f, err := h.service.AddFavorite(c.Request.Context(), userID, propertyID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, f)
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, "propertyId")
	if !ok {
		return
	}
	if err := h.service.RemoveFavorite(c.Request.Context(), userID, propertyID); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

func (h *Handler) CheckFavorite(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, "propertyId")
	if !ok {
		return
	}
	fav, err := h.service.IsFavorite(c.Request.Context(), userID, propertyID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_favorite": fav})
}

func (h *Handler) ListFavorites(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	limit, offset := limitOffset(c)
	res, err := h.service.ListFavorites(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Rate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Fields(err))
		return
	}
	rt, err := h.service.Rate(c.Request.Context(), userID, propertyID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rt)
}

func (h *Handler) ListRatings(c *gin.Context) {
	propertyID, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, offset := limitOffset(c)
	res, err := h.service.ListRatings(c.Request.Context(), propertyID, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) FileComplaint(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Fields(err))
		return
	}
	cmp, err := h.service.FileComplaint(c.Request.Context(), userID, propertyID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, cmp)
}

func (h *Handler) ListComplaints(c *gin.Context) {
	status := domain.ComplaintStatus(c.DefaultQuery("status", string(domain.ComplaintOpen)))
	if status == "all" {
		status = ""
	}
	limit, offset := limitOffset(c)
	res, err := h.service.ListComplaints(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ResolveComplaint(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Fields(err))
		return
	}
	if err := h.service.ResolveComplaint(c.Request.Context(), adminID, id, req.Resolution); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resolved": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPropertyNotFound):
		response.NotFound(c, "Property not found")
	case errors.Is(err, ErrFavoriteNotFound):
		response.NotFound(c, "Favorite not found")
	case errors.Is(err, ErrComplaintNotFound):
		response.NotFound(c, "Open complaint not found")
	case errors.Is(err, ErrAlreadyFavorite):
		response.Error(c, http.StatusConflict, "ALREADY_FAVORITE", "Property is already in favorites")
	case errors.Is(err, ErrOwnProperty):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You cannot rate your own property")
	default:
		h.log.Error("interaction request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c)
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, map[string]string{name: "invalid"})
		return 0, false
	}
	return id, true
}

func limitOffset(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
