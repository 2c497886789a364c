package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTermOutOfRangeError(t *testing.T) {
	err := NewTermOutOfRangeError(50, 10)
	require.Equal(t, "term id is outside the index's dims", err.Error())
	require.Equal(t, "term_id", err.Field())
	require.Equal(t, "less_than_dims", err.Rule())
	require.Equal(t, uint32(50), err.Provided())
	require.Equal(t, uint32(10), err.Expected())
}

func TestNonAscendingIndicesError(t *testing.T) {
	err := NewNonAscendingIndicesError(7, 3)
	require.Equal(t, "indices", err.Field())
	require.Equal(t, map[string]any{"row": uint64(7), "position": 3}, err.Details())
}

func TestBaseErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := NewStorageError(cause, ErrorCodeDiskFull, "write failed")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, "write failed", wrapped.Error())
}

func TestCounterExhaustedError(t *testing.T) {
	err := NewCounterExhaustedError("next_doc_id")
	require.Contains(t, err.Error(), "exhausted")
}

func TestConcurrentModificationError(t *testing.T) {
	err := NewConcurrentModificationError(2, 3)
	require.NotEmpty(t, err.Error())
}
