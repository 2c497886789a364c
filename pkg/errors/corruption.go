package errors

// CorruptionError reports a structural integrity failure discovered on open
// or during a read: a manifest that won't parse, an array header whose magic
// or dtype doesn't match, a bitmap blob that won't deserialize, or a docs row
// pointing at a (segment_id, row_offset) that doesn't exist. Unlike
// StorageError, the underlying syscalls all succeeded; the bytes read back
// just aren't what the format promises.
type CorruptionError struct {
	*baseError
	path   string // File or directory where the corruption was found.
	detail string // Human-readable specifics (e.g. "version 2, want 1").
}

// NewCorruptionError creates a new corruption-specific error.
func NewCorruptionError(err error, code ErrorCode, msg string) *CorruptionError {
	return &CorruptionError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the CorruptionError type.
func (ce *CorruptionError) WithMessage(msg string) *CorruptionError {
	ce.baseError.WithMessage(msg)
	return ce
}

// WithDetail adds contextual information while maintaining the CorruptionError type.
func (ce *CorruptionError) WithDetail(key string, value any) *CorruptionError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithPath records where the corrupted artifact lives.
func (ce *CorruptionError) WithPath(path string) *CorruptionError {
	ce.path = path
	return ce
}

// WithDetailText records a short human-readable explanation.
func (ce *CorruptionError) WithDetailText(detail string) *CorruptionError {
	ce.detail = detail
	return ce
}

// Path returns the file or directory where the corruption was found.
func (ce *CorruptionError) Path() string { return ce.path }

// DetailText returns the human-readable explanation of the corruption.
func (ce *CorruptionError) DetailText() string { return ce.detail }

// NewManifestCorruptionError wraps a manifest.json parse failure.
func NewManifestCorruptionError(err error, path string) *CorruptionError {
	return NewCorruptionError(err, ErrorCodeManifestCorrupted, "manifest.json failed to parse").
		WithPath(path)
}

// NewManifestVersionError flags a manifest whose version isn't supported.
func NewManifestVersionError(path string, got int) *CorruptionError {
	return NewCorruptionError(nil, ErrorCodeManifestVersion, "unsupported manifest version").
		WithPath(path).WithDetail("version", got).WithDetail("supported", 1)
}

// NewArrayHeaderError wraps a CSR array file whose header doesn't match its contract.
func NewArrayHeaderError(err error, path string, reason string) *CorruptionError {
	return NewCorruptionError(err, ErrorCodeArrayHeaderCorrupted, "array file header invalid").
		WithPath(path).WithDetailText(reason)
}

// NewBitmapCorruptionError wraps a roaring bitmap blob that failed to deserialize.
func NewBitmapCorruptionError(err error, name string) *CorruptionError {
	return NewCorruptionError(err, ErrorCodeBitmapCorrupted, "bitmap deserialization failed").
		WithDetail("bitmap", name)
}

// NewDocRowMismatchError flags a docs row whose (segment_id, row_offset) doesn't
// resolve to the doc_id recorded in the segment's row_ids array (invariant 1).
func NewDocRowMismatchError(docID uint64, segmentID string, rowOffset uint32, foundDocID uint64) *CorruptionError {
	return NewCorruptionError(nil, ErrorCodeDocRowMismatch, "docs row does not resolve back to its doc_id").
		WithDetail("doc_id", docID).
		WithDetail("segment_id", segmentID).
		WithDetail("row_offset", rowOffset).
		WithDetail("found_doc_id", foundDocID)
}
