package errors

// MetadataError provides specialized error handling for metadata-store
// operations: bitmap/docs/stats/kv reads and writes against meta.sqlite.
// This mirrors the teacher's IndexError shape (key/operation/size context)
// but reports on the SQL-backed store rather than an in-memory hash index.
type MetadataError struct {
	*baseError

	// Identifies which key (doc_id, bitmap name, or stat key) was being
	// processed when the error occurred.
	key string

	// Describes what store operation was being performed
	// (e.g. "get_bitmap", "put_docs", "next_seq").
	operation string

	// Captures the number of rows/entries involved, when known.
	rowCount int
}

// NewMetadataError creates a new metadata-store error with the provided context.
func NewMetadataError(err error, code ErrorCode, msg string) *MetadataError {
	return &MetadataError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the MetadataError type.
func (me *MetadataError) WithMessage(msg string) *MetadataError {
	me.baseError.WithMessage(msg)
	return me
}

// WithDetail adds contextual information while maintaining the MetadataError type.
func (me *MetadataError) WithDetail(key string, value any) *MetadataError {
	me.baseError.WithDetail(key, value)
	return me
}

// WithKey records which key was being processed when the error occurred.
func (me *MetadataError) WithKey(key string) *MetadataError {
	me.key = key
	return me
}

// WithOperation records what store operation was being performed.
func (me *MetadataError) WithOperation(operation string) *MetadataError {
	me.operation = operation
	return me
}

// WithRowCount captures how many rows/entries were involved.
func (me *MetadataError) WithRowCount(n int) *MetadataError {
	me.rowCount = n
	return me
}

// Key returns the key that was being processed when the error occurred.
func (me *MetadataError) Key() string { return me.key }

// Operation returns the name of the operation that was being performed.
func (me *MetadataError) Operation() string { return me.operation }

// RowCount returns the number of rows/entries involved in the error.
func (me *MetadataError) RowCount() int { return me.rowCount }

// NewTxFailedError wraps a failed metadata-store transaction.
func NewTxFailedError(err error, operation string) *MetadataError {
	return NewMetadataError(err, ErrorCodeMetadataTxFailed, "metadata transaction failed").
		WithOperation(operation)
}

// NewCounterExhaustedError flags a monotonic counter (doc_id/seq) that can no
// longer be advanced.
func NewCounterExhaustedError(counter string) *MetadataError {
	return NewMetadataError(nil, ErrorCodeCounterExhausted, "monotonic counter exhausted").
		WithKey(counter).WithOperation("advance_counter")
}
