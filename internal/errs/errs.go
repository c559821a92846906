package errs

import "errors"

// Sentinel domain errors, mapped to HTTP status codes in handlers.
var (
	// TV channel and command errors.
	ErrDeviceNotConnected = errors.New("tv not connected")
	ErrSendFailed         = errors.New("failed to send command to tv")
	ErrDeviceTimeout      = errors.New("no acknowledgment from tv")
	ErrDeviceFailed       = errors.New("tv reported command failure")

	// Rental precondition errors.
	ErrUnitNotFound      = errors.New("rental unit not found")
	ErrUnitBusy          = errors.New("rental unit already in an active rental")
	ErrMemberNotFound    = errors.New("member not found")
	ErrMemberInactive    = errors.New("member is not active")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient product stock")
	ErrPromoNotFound     = errors.New("promo not found")
)
