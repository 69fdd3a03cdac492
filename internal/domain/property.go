package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PropertyStatus string

const (
	PropertyPending  PropertyStatus = "pending"
	PropertyApproved PropertyStatus = "approved"
	PropertyRejected PropertyStatus = "rejected"
)

type Property struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	OwnerID         int64           `json:"owner_id" gorm:"index;not null"`
	Title           string          `json:"title" gorm:"not null"`
	Description     string          `json:"description" gorm:"type:text"`
	Address         string          `json:"address"`
	City            string          `json:"city" gorm:"index"`
	PropertyType    string          `json:"property_type" gorm:"type:varchar(30)"`
	Bedrooms        int             `json:"bedrooms"`
	Bathrooms       int             `json:"bathrooms"`
	PricePerMonth   decimal.Decimal `json:"price_per_month" gorm:"type:numeric(12,2);not null"`
	Images          []string        `json:"images" gorm:"serializer:json"`
	Status          PropertyStatus  `json:"status" gorm:"type:varchar(20);index;default:'pending'"`
	RejectionReason string          `json:"rejection_reason,omitempty" gorm:"type:text"`
	ReviewedBy      *int64          `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"-" gorm:"index"`
}
