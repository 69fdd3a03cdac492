package property

import (
	"github.com/shopspring/decimal"

	"rentals/internal/domain"
)

type CreatePropertyRequest struct {
	Title         string          `json:"title" binding:"required,min=3,max=255"`
	Description   string          `json:"description" binding:"max=5000"`
	Address       string          `json:"address" binding:"required,max=500"`
	City          string          `json:"city" binding:"required,max=100"`
	PropertyType  string          `json:"property_type" binding:"required,oneof=apartment house room studio"`
	Bedrooms      int             `json:"bedrooms" binding:"gte=0,lte=50"`
	Bathrooms     int             `json:"bathrooms" binding:"gte=0,lte=50"`
	PricePerMonth decimal.Decimal `json:"price_per_month"`
	Images        []string        `json:"images" binding:"omitempty,max=20,dive,url"`
}

// UpdatePropertyRequest is a partial update; nil fields are left as they are.
type UpdatePropertyRequest struct {
	Title         *string          `json:"title" binding:"omitempty,min=3,max=255"`
	Description   *string          `json:"description" binding:"omitempty,max=5000"`
	Address       *string          `json:"address" binding:"omitempty,max=500"`
	City          *string          `json:"city" binding:"omitempty,max=100"`
	PropertyType  *string          `json:"property_type" binding:"omitempty,oneof=apartment house room studio"`
	Bedrooms      *int             `json:"bedrooms" binding:"omitempty,gte=0,lte=50"`
	Bathrooms     *int             `json:"bathrooms" binding:"omitempty,gte=0,lte=50"`
	PricePerMonth *decimal.Decimal `json:"price_per_month"`
	Images        []string         `json:"images" binding:"omitempty,max=20,dive,url"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=1000"`
}

type Page struct {
	Items []domain.Property `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
