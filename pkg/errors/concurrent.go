package errors

// ConcurrentModificationError reports that a writer found, under lock, a
// manifest whose segment count differs from the one it holds in memory. The
// flush is abandoned with this error rather than clobbering the manifest; it
// is not retried against the new manifest.
type ConcurrentModificationError struct {
	*baseError
	expectedVersion int
	observedVersion int
}

// NewConcurrentModificationError creates a new concurrent-modification error.
func NewConcurrentModificationError(expected, observed int) *ConcurrentModificationError {
	return &ConcurrentModificationError{
		baseError:       NewBaseError(nil, ErrorCodeManifestChanged, "manifest changed under lock"),
		expectedVersion: expected,
		observedVersion: observed,
	}
}

// WithDetail adds contextual information while maintaining the type.
func (cme *ConcurrentModificationError) WithDetail(key string, value any) *ConcurrentModificationError {
	cme.baseError.WithDetail(key, value)
	return cme
}

// ExpectedVersion returns the manifest segment count the writer held in memory.
func (cme *ConcurrentModificationError) ExpectedVersion() int { return cme.expectedVersion }

// ObservedVersion returns the manifest segment count actually found under lock.
func (cme *ConcurrentModificationError) ObservedVersion() int { return cme.observedVersion }
