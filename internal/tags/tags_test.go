package tags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatAndKVBitmapNames(t *testing.T) {
	require.Equal(t, Label("lang=en"), KV("lang", "en"))
	require.Equal(t, "tag:lang=en", KV("lang", "en").BitmapName())
	require.Equal(t, "tag:published", Flat("published").BitmapName())
}

func TestToJSONRoundTrip(t *testing.T) {
	labels := []Label{Flat("published"), KV("lang", "en")}
	text, err := ToJSON(labels)
	require.NoError(t, err)
	require.Equal(t, labels, FromJSON(text))
}

func TestToJSONEmpty(t *testing.T) {
	text, err := ToJSON(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", text)
	require.Empty(t, FromJSON(text))
}

func TestFromJSONMalformedIsEmpty(t *testing.T) {
	require.Nil(t, FromJSON(""))
	require.Empty(t, FromJSON("not json"))
}
