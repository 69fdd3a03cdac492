package interaction

import "errors"

var (
	ErrPropertyNotFound  = errors.New("property not found")
	ErrAlreadyFavorite   = errors.New("property already in favorites")
	ErrFavoriteNotFound  = errors.New("favorite not found")
	ErrOwnProperty       = errors.New("cannot rate own property")
	ErrComplaintNotFound = errors.New("open complaint not found")
)
