package property

import "errors"

var (
	ErrNotFound      = errors.New("property not found")
	ErrForbidden     = errors.New("not the owner of this property")
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrAlreadyReview = errors.New("property is not pending review")
)
