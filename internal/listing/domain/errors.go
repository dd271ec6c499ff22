package domain

import "errors"

var (
	ErrNotFound         = errors.New("listing not found")
	ErrValidation       = errors.New("invalid listing data")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrImageUpload      = errors.New("image upload failed")
	ErrStoreUnavailable = errors.New("listing store unavailable")
)
