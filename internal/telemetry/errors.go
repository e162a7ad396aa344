package telemetry

import "codeberg.org/mutker/capturectl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Aggregation Errors
	ErrDuplicateGrab  = errors.ErrorCode("telemetry_duplicate_grab_record")
	ErrUnknownRecord  = errors.ErrorCode("telemetry_unknown_record")
	ErrCollectTimeout = errors.ErrorCode("telemetry_collect_timeout")
	ErrInvalidReport  = errors.ErrorCode("telemetry_invalid_report")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit   = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageClose  = errors.ErrorCode("telemetry_storage_close_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrorCode("telemetry_operation_timeout")
	ErrServiceShutdown  = errors.ErrorCode("telemetry_service_shutdown_failed")
)
