package capture

import "codeberg.org/mutker/capturectl/internal/errors"

const (
	// Device Errors
	ErrNoDisplay     = errors.ErrorCode("capture_no_display")
	ErrInvalidRegion = errors.ErrorCode("capture_invalid_region")
	ErrGrabFailed    = errors.ErrorCode("capture_grab_failed")

	// Persistence Errors
	ErrInvalidFormat = errors.ErrorCode("capture_invalid_format")
	ErrEncodeFailed  = errors.ErrorCode("capture_encode_failed")
	ErrPersistFailed = errors.ErrorCode("capture_persist_failed")

	// Pipeline Errors
	ErrQueueSaturated    = errors.ErrorCode("capture_queue_saturated")
	ErrProtocolViolation = errors.ErrorCode("capture_protocol_violation")
)
