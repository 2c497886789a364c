package candidates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/filterpolicy"
)

type fakeSource struct {
	bitmaps map[string]*bitmap.Bitmap
}

func (f fakeSource) GetBitmap(_ context.Context, name string) (*bitmap.Bitmap, error) {
	if b, ok := f.bitmaps[name]; ok {
		return b, nil
	}
	return bitmap.Empty(), nil
}

func TestSupplyIntersectsMustUnionsShould(t *testing.T) {
	src := fakeSource{bitmaps: map[string]*bitmap.Bitmap{
		"term:1": bitmap.OfMany([]uint32{1, 2, 3, 4}),
		"term:2": bitmap.OfMany([]uint32{2, 3, 4}),
		"term:5": bitmap.OfMany([]uint32{3}),
		"term:6": bitmap.OfMany([]uint32{4}),
	}}
	result := filterpolicy.Result{
		Base:   bitmap.OfMany([]uint32{1, 2, 3, 4, 5}),
		Must:   []uint32{1, 2},
		Should: []uint32{5, 6},
	}

	got, err := Supply(context.Background(), src, result, 0)
	require.NoError(t, err)
	// base ∩ term1 ∩ term2 = {2,3,4}; ∩ (term5 ∪ term6) = {3,4}
	require.Equal(t, []uint32{3, 4}, got.ToSlice())
}

func TestSupplyNoMustOrShouldReturnsBase(t *testing.T) {
	result := filterpolicy.Result{Base: bitmap.OfMany([]uint32{1, 2, 3})}
	got, err := Supply(context.Background(), fakeSource{}, result, 0)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, got.ToSlice())
}

func TestSupplyTruncatesToBudget(t *testing.T) {
	result := filterpolicy.Result{Base: bitmap.OfMany([]uint32{5, 1, 3, 2, 4})}
	got, err := Supply(context.Background(), fakeSource{}, result, 3)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, got.ToSlice())
}

func TestSupplyRecentTruncates(t *testing.T) {
	base := bitmap.OfMany([]uint32{10, 20, 30})
	got := SupplyRecent(base, 2)
	require.Equal(t, []uint32{10, 20}, got.ToSlice())
}

func TestSupplyRecentNoBudgetReturnsAll(t *testing.T) {
	base := bitmap.OfMany([]uint32{10, 20, 30})
	got := SupplyRecent(base, 0)
	require.Equal(t, []uint32{10, 20, 30}, got.ToSlice())
}
