// Package errors gives every recollex subsystem a shared, structured error
// vocabulary instead of ad-hoc fmt.Errorf strings. An error is never just
// "something went wrong": it carries a stable code for programmatic handling,
// plus domain-specific context (which field, which segment, which lock, which
// manifest version) captured at the point of failure through a small fluent
// builder API.
//
// Five of the domain error types below map onto the error kinds recollex
// must distinguish (MetadataError additionally covers the SQLite store):
// validation failures surface to the caller with no state
// change; corruption is a structural integrity failure found on open or read;
// storage errors are raw I/O failures against segment/manifest/database
// files; lock errors are manifest-lock acquisition failures; concurrent
// modification is a writer finding a changed manifest under lock. "Not found"
// is deliberately not a struct here — it's treated as a silent no-op
// (unknown doc_id on remove, unknown tag on search), not a raised error.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsValidationError checks if the given error is a ValidationError or contains one in its error chain.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsStorageError determines if an error is a raw I/O failure against disk.
func IsStorageError(err error) bool {
	var se *StorageError
	return stdErrors.As(err, &se)
}

// IsCorruptionError determines if an error reports a structural integrity failure.
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return stdErrors.As(err, &ce)
}

// IsLockError determines if an error is a manifest lock acquisition failure.
func IsLockError(err error) bool {
	var le *LockError
	return stdErrors.As(err, &le)
}

// IsConcurrentModificationError determines if an error is a manifest-changed-under-lock failure.
func IsConcurrentModificationError(err error) bool {
	var cme *ConcurrentModificationError
	return stdErrors.As(err, &cme)
}

// IsMetadataError determines if an error occurred in the metadata store.
func IsMetadataError(err error) bool {
	var me *MetadataError
	return stdErrors.As(err, &me)
}

// AsValidationError safely extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsStorageError extracts StorageError context from an error chain.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsCorruptionError extracts CorruptionError context from an error chain.
func AsCorruptionError(err error) (*CorruptionError, bool) {
	var ce *CorruptionError
	if stdErrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AsLockError extracts LockError context from an error chain.
func AsLockError(err error) (*LockError, bool) {
	var le *LockError
	if stdErrors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// AsConcurrentModificationError extracts ConcurrentModificationError context from an error chain.
func AsConcurrentModificationError(err error) (*ConcurrentModificationError, bool) {
	var cme *ConcurrentModificationError
	if stdErrors.As(err, &cme) {
		return cme, true
	}
	return nil, false
}

// AsMetadataError extracts MetadataError context from an error chain.
func AsMetadataError(err error) (*MetadataError, bool) {
	var me *MetadataError
	if stdErrors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error that supports it, or
// returns ErrorCodeInternal for errors that don't have specific codes.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	if se, ok := AsStorageError(err); ok {
		return se.Code()
	}
	if ce, ok := AsCorruptionError(err); ok {
		return ce.Code()
	}
	if le, ok := AsLockError(err); ok {
		return le.Code()
	}
	if cme, ok := AsConcurrentModificationError(err); ok {
		return cme.Code()
	}
	if me, ok := AsMetadataError(err); ok {
		return me.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts structured details from any error that supports
// them, returning an empty map for errors without details.
func GetErrorDetails(err error) map[string]any {
	if ve, ok := AsValidationError(err); ok && ve.Details() != nil {
		return ve.Details()
	}
	if se, ok := AsStorageError(err); ok && se.Details() != nil {
		return se.Details()
	}
	if ce, ok := AsCorruptionError(err); ok && ce.Details() != nil {
		return ce.Details()
	}
	if le, ok := AsLockError(err); ok && le.Details() != nil {
		return le.Details()
	}
	if cme, ok := AsConcurrentModificationError(err); ok && cme.Details() != nil {
		return cme.Details()
	}
	if me, ok := AsMetadataError(err); ok && me.Details() != nil {
		return me.Details()
	}
	return make(map[string]any)
}

// ClassifyDirectoryCreationError analyzes directory creation failures and
// returns appropriate error codes based on the underlying system error.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied, "insufficient permissions to create directory",
		).WithPath(path).WithDetail("operation", "directory_creation")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull, "insufficient disk space to create directory",
				).WithPath(path).WithDetail("operation", "directory_creation")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly, "cannot create directory on read-only filesystem",
				).WithPath(path).WithDetail("operation", "directory_creation")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "failed to create directory",
	).WithPath(path).WithDetail("operation", "directory_creation")
}

// ClassifyFileOpenError analyzes file opening failures and returns appropriate
// error codes based on the underlying system error.
func ClassifyFileOpenError(err error, filePath, fileName string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied, "insufficient permissions to open file",
		).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull, "insufficient disk space to create file",
				).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly, "cannot create file on read-only filesystem",
				).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
			}
		}
	}

	return NewStorageError(err, ErrorCodeIO, "failed to open file").
		WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
}

// ClassifySyncError analyzes fsync failures and returns appropriate error codes.
func ClassifySyncError(err error, fileName, filePath string, offset int64) error {
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull, "cannot sync file: insufficient disk space",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).WithDetail("operation", "file_sync")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly, "cannot sync file: filesystem is read-only",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).WithDetail("operation", "file_sync")
			case syscall.EIO:
				return NewStorageError(
					err, ErrorCodeIO, "I/O error during file sync",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).
					WithDetail("operation", "file_sync").WithDetail("severity", "high")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "failed to sync file to disk",
	).WithFileName(fileName).WithPath(filePath).WithOffset(offset).WithDetail("operation", "file_sync")
}

// ClassifyRenameError analyzes atomic-rename failures during segment/manifest
// publication. A failed rename must leave the previous state intact, so
// callers treat any error here as "publish did not happen."
func ClassifyRenameError(err error, from, to string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied, "insufficient permissions to rename into place",
		).WithPath(to).WithDetail("operation", "rename").WithDetail("from", from)
	}
	return NewStorageError(
		err, ErrorCodeIO, "failed to atomically rename into place",
	).WithPath(to).WithDetail("operation", "rename").WithDetail("from", from)
}
