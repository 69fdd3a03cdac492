package domain

import "time"

type Favorite struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	UserID     int64     `json:"user_id" gorm:"not null;uniqueIndex:idx_favorite_user_property"`
	PropertyID int64     `json:"property_id" gorm:"not null;index;uniqueIndex:idx_favorite_user_property"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

// Rating is one score per user and property; re-rating overwrites it.
type Rating struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	UserID     int64     `json:"user_id" gorm:"not null;uniqueIndex:idx_rating_user_property"`
	PropertyID int64     `json:"property_id" gorm:"not null;index;uniqueIndex:idx_rating_user_property"`
	Score      int       `json:"score" gorm:"not null"`
	Comment    string    `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ComplaintStatus string

const (
	ComplaintOpen     ComplaintStatus = "open"
	ComplaintResolved ComplaintStatus = "resolved"
)

type Complaint struct {
	ID         int64           `json:"id" gorm:"primaryKey"`
	UserID     int64           `json:"user_id" gorm:"index;not null"`
	PropertyID int64           `json:"property_id" gorm:"index;not null"`
	Reason     string          `json:"reason" gorm:"type:text;not null"`
	Status     ComplaintStatus `json:"status" gorm:"type:varchar(20);index;default:'open'"`
	Resolution string          `json:"resolution,omitempty" gorm:"type:text"`
	ResolvedBy *int64          `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
