package recorder

import "codeberg.org/mutker/capturectl/internal/errors"

const (
	ErrUnavailable      = errors.ErrorCode("recorder_unavailable")
	ErrStartFailed      = errors.ErrorCode("recorder_start_failed")
	ErrInvalidOperation = errors.ErrorCode("recorder_invalid_operation")
	ErrWriteArtifact    = errors.ErrorCode("recorder_write_artifact_failed")
)
