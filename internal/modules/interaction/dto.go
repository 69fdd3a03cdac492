package interaction

import "rentals/internal/domain"

type RateRequest struct {
	Score   int    `json:"score" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

type ComplaintRequest struct {
	Reason string `json:"reason" binding:"required,min=5,max=2000"`
}

type ResolveRequest struct {
	Resolution string `json:"resolution" binding:"required,max=2000"`
}

type FavoritesPage struct {
	Items []domain.Favorite `json:"items"`
	Total int64             `json:"total"`
}

type RatingsPage struct {
	Items   []domain.Rating `json:"items"`
	Total   int64           `json:"total"`
	Average float64         `json:"average"`
}

type ComplaintsPage struct {
	Items []domain.Complaint `json:"items"`
	Total int64              `json:"total"`
}
