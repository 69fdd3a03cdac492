package booking

import (
	"time"

	"rentals/internal/domain"
)

type CreateBookingRequest struct {
	PropertyID int64     `json:"property_id" binding:"required,gt=0"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required,gtfield=StartDate"`
	Message    string    `json:"message" binding:"max=2000"`
}

type BookingsPage struct {
	Items []domain.Booking `json:"items"`
	Total int64            `json:"total"`
}
