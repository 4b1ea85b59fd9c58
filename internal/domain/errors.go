package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrIndexOutOfRange    = errors.New("price entry index out of range")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrUnknownDestination = errors.New("unknown destination")
)
