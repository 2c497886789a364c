package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsEverything(t *testing.T) {
	require.True(t, IsEverything([]string{"everything"}))
	require.True(t, IsEverything([]string{"everything", "extra"}))
	require.False(t, IsEverything([]string{"other"}))
	require.False(t, IsEverything(nil))
}
