package errors

// StorageError is a specialized error type for raw I/O failures against
// segment array files, the manifest, or the metadata database file.
// It embeds baseError to inherit all the standard error functionality, then
// adds storage-specific fields that help pinpoint exactly where problems
// occurred.
type StorageError struct {
	*baseError
	segmentId string // Which segment directory was being accessed when the error occurred.
	offset    int64  // Byte offset within the file where the problem happened.
	fileName  string // Name of the file that caused the issue.
	path      string // Path of the file that caused the issue.
}

// NewStorageError creates a new storage-specific error.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the StorageError type.
func (se *StorageError) WithMessage(msg string) *StorageError {
	se.baseError.WithMessage(msg)
	return se
}

// WithDetail adds contextual information while maintaining the StorageError type.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// WithSegmentID sets which segment directory was involved in the error.
func (se *StorageError) WithSegmentID(id string) *StorageError {
	se.segmentId = id
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *StorageError) WithOffset(offset int64) *StorageError {
	se.offset = offset
	return se
}

// WithFileName captures which file was being processed when the error occurred.
func (se *StorageError) WithFileName(fileName string) *StorageError {
	se.fileName = fileName
	return se
}

// WithPath captures which path was being processed when the error occurred.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// SegmentId returns the segment identifier where the error occurred.
func (se *StorageError) SegmentId() string { return se.segmentId }

// Offset returns the byte offset within the file where the error happened.
func (se *StorageError) Offset() int64 { return se.offset }

// FileName returns the name of the file that was being processed.
func (se *StorageError) FileName() string { return se.fileName }

// Path returns the path of the file that was being processed.
func (se *StorageError) Path() string { return se.path }
