// Package candidates composes the filter policy's MUST/SHOULD term sets
// with the base bitmap into the final candidate set handed to the scorer:
// C = B ∩ AND(MUST) ∩ OR(SHOULD), capped to a budget in ascending doc_id
// order.
package candidates

import (
	"context"
	"strconv"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/filterpolicy"
)

// Supply computes the candidate bitmap from a filter policy result,
// truncating to budget doc_ids in ascending order if it overflows.
func Supply(ctx context.Context, src filterpolicy.BitmapSource, result filterpolicy.Result, budget int) (*bitmap.Bitmap, error) {
	c := result.Base.Clone()

	if len(result.Must) > 0 {
		mustBitmaps := make([]*bitmap.Bitmap, 0, len(result.Must)+1)
		mustBitmaps = append(mustBitmaps, c)
		for _, t := range result.Must {
			b, err := src.GetBitmap(ctx, termBitmapName(t))
			if err != nil {
				return nil, err
			}
			mustBitmaps = append(mustBitmaps, b)
		}
		c = bitmap.Intersect(mustBitmaps...)
	}

	if len(result.Should) > 0 {
		shouldBitmaps := make([]*bitmap.Bitmap, 0, len(result.Should))
		for _, t := range result.Should {
			b, err := src.GetBitmap(ctx, termBitmapName(t))
			if err != nil {
				return nil, err
			}
			shouldBitmaps = append(shouldBitmaps, b)
		}
		c = bitmap.Intersect(c, bitmap.Union(shouldBitmaps...))
	}

	return truncate(c, budget), nil
}

// SupplyRecent returns the base bitmap directly (already tombstone/exclusion
// subtracted), capped to budget — the recency profile skips term gating
// entirely.
func SupplyRecent(base *bitmap.Bitmap, budget int) *bitmap.Bitmap {
	return truncate(base, budget)
}

// truncate caps c to the first `budget` doc_ids in ascending order. budget
// <= 0 means no cap.
func truncate(c *bitmap.Bitmap, budget int) *bitmap.Bitmap {
	if budget <= 0 || int(c.Cardinality()) <= budget {
		return c
	}

	kept := make([]uint32, 0, budget)
	c.IterSorted(func(id uint32) bool {
		kept = append(kept, id)
		return len(kept) < budget
	})
	return bitmap.OfMany(kept)
}

func termBitmapName(id uint32) string {
	return "term:" + strconv.FormatUint(uint64(id), 10)
}
