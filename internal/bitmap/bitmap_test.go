package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	b := OfMany([]uint32{1, 5, 9, 100})
	data, err := b.Serialize()
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, b.ToSlice(), got.ToSlice())
}

func TestDeserializeEmpty(t *testing.T) {
	got, err := Deserialize(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got.Cardinality())
}

func TestSetAlgebra(t *testing.T) {
	a := OfMany([]uint32{1, 2, 3})
	b := OfMany([]uint32{2, 3, 4})

	require.Equal(t, []uint32{1, 2, 3, 4}, Union(a, b).ToSlice())
	require.Equal(t, []uint32{2, 3}, Intersect(a, b).ToSlice())
	require.Equal(t, []uint32{1}, Difference(a, b).ToSlice())
}

func TestUnionNoArgsIsEmpty(t *testing.T) {
	require.Equal(t, uint64(0), Union().Cardinality())
}

func TestIntersectNoArgsIsEmpty(t *testing.T) {
	require.Equal(t, uint64(0), Intersect().Cardinality())
}

func TestAndNotIntoMutatesInPlace(t *testing.T) {
	a := OfMany([]uint32{1, 2, 3})
	delta := OfOne(2)
	a.AndNotInto(delta)
	require.Equal(t, []uint32{1, 3}, a.ToSlice())
}

func TestIterSortedStopsEarly(t *testing.T) {
	a := OfMany([]uint32{1, 2, 3, 4})
	var seen []uint32
	a.IterSorted(func(id uint32) bool {
		seen = append(seen, id)
		return id < 2
	})
	require.Equal(t, []uint32{1, 2}, seen)
}
