package booking

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("booking not found")
	ErrPropertyNotFound = errors.New("property not found")
	ErrOwnProperty      = errors.New("cannot book own property")
	ErrNotAvailable     = errors.New("property already booked for these dates")
	ErrForbidden        = errors.New("not a party of this booking")
	ErrInvalidStatus    = errors.New("booking status does not allow this action")
)
