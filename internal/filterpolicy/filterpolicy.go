// Package filterpolicy implements the adaptive MUST/SHOULD term gating that
// turns a scored query plus tag scope into a bounded candidate set: a base
// bitmap from tag scoping, then a greedy selection of which query terms
// must all match versus which may optionally match, sized to a budget.
package filterpolicy

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/query"
	"github.com/chrsbats/recollex/pkg/options"
)

// BitmapSource resolves a named bitmap (term:<t>, tag:<g>, tombstones).
type BitmapSource interface {
	GetBitmap(ctx context.Context, name string) (*bitmap.Bitmap, error)
}

// DFLookup resolves a term's document frequency, falling back to the
// posting bitmap's cardinality when no stats entry exists.
type DFLookup func(ctx context.Context, termID uint32) (uint32, error)

// Result is the filter policy's output: which terms must all hit, which
// terms may optionally hit, and the base set they're evaluated against.
type Result struct {
	Base      *bitmap.Bitmap
	Must      []uint32
	Should    []uint32
	TotalDocs uint32
}

// rankedTerm carries a term alongside the score used to order it for
// greedy MUST/SHOULD selection.
type rankedTerm struct {
	id     uint32
	df     uint32
	weight float32
	score  float64
}

// Select runs the full filter policy: builds the base bitmap from scope,
// ranks query terms by DF-discounted weight, and greedily assigns MUST vs
// SHOULD under the budget.
func Select(ctx context.Context, src BitmapSource, dfLookup DFLookup, terms []query.Term, scope query.Scope, excludeDocIDs *bitmap.Bitmap, totalDocs uint32, knobs options.GatingKnobs) (Result, error) {
	base, err := baseBitmap(ctx, src, scope, excludeDocIDs)
	if err != nil {
		return Result{}, err
	}

	ranked, err := rankTerms(ctx, dfLookup, terms, totalDocs, knobs.DFDropTopPercent)
	if err != nil {
		return Result{}, err
	}

	must, should, err := selectMustShould(ctx, src, base, ranked, knobs)
	if err != nil {
		return Result{}, err
	}

	return Result{Base: base, Must: must, Should: should, TotalDocs: totalDocs}, nil
}

// MatchScope resolves just the tag-scope portion of the base bitmap (scope
// AND/OR/NOT, minus tombstones), with no exclusion set and no term gating —
// used by remove_by, which deletes by tag scope rather than by query.
func MatchScope(ctx context.Context, src BitmapSource, scope query.Scope) (*bitmap.Bitmap, error) {
	return baseBitmap(ctx, src, scope, nil)
}

// baseBitmap computes B per the scoping rules: AND over all_of tags,
// intersected with OR over one_of tags (if any), minus none_of tags, minus
// tombstones, minus the caller's exclusion set. An "everything" entry
// disables its list.
func baseBitmap(ctx context.Context, src BitmapSource, scope query.Scope, excludeDocIDs *bitmap.Bitmap) (*bitmap.Bitmap, error) {
	var base *bitmap.Bitmap

	if len(scope.AllOf) > 0 && !query.IsEverything(scope.AllOf) {
		bmps := make([]*bitmap.Bitmap, 0, len(scope.AllOf))
		for _, g := range scope.AllOf {
			b, err := src.GetBitmap(ctx, "tag:"+g)
			if err != nil {
				return nil, err
			}
			bmps = append(bmps, b)
		}
		base = bitmap.Intersect(bmps...)
	}

	if len(scope.OneOf) > 0 && !query.IsEverything(scope.OneOf) {
		bmps := make([]*bitmap.Bitmap, 0, len(scope.OneOf))
		for _, g := range scope.OneOf {
			b, err := src.GetBitmap(ctx, "tag:"+g)
			if err != nil {
				return nil, err
			}
			bmps = append(bmps, b)
		}
		oneOf := bitmap.Union(bmps...)
		if base == nil {
			base = oneOf
		} else {
			base = bitmap.Intersect(base, oneOf)
		}
	}

	if base == nil {
		base, err := alive(ctx, src)
		if err != nil {
			return nil, err
		}
		return excludeScope(ctx, src, base, scope, excludeDocIDs)
	}
	return excludeScope(ctx, src, base, scope, excludeDocIDs)
}

func excludeScope(ctx context.Context, src BitmapSource, base *bitmap.Bitmap, scope query.Scope, excludeDocIDs *bitmap.Bitmap) (*bitmap.Bitmap, error) {
	if len(scope.NoneOf) > 0 && !query.IsEverything(scope.NoneOf) {
		for _, g := range scope.NoneOf {
			b, err := src.GetBitmap(ctx, "tag:"+g)
			if err != nil {
				return nil, err
			}
			base = bitmap.Difference(base, b)
		}
	}

	tombstones, err := src.GetBitmap(ctx, "tombstones")
	if err != nil {
		return nil, err
	}
	base = bitmap.Difference(base, tombstones)

	if excludeDocIDs != nil {
		base = bitmap.Difference(base, excludeDocIDs)
	}
	return base, nil
}

// alive returns every doc_id ever added, read from the persisted "universe"
// bitmap (maintained incrementally on each add); tombstones are applied by
// the caller, not here.
func alive(ctx context.Context, src BitmapSource) (*bitmap.Bitmap, error) {
	universe, err := src.GetBitmap(ctx, "universe")
	if err != nil {
		return nil, err
	}
	return universe.Clone(), nil
}

// rankTerms drops the top dfDropTopPercent of terms by DF, then sorts the
// remainder by weight*log((N+1)/(DF+1)) descending, ties broken by higher
// weight then lower term id.
func rankTerms(ctx context.Context, dfLookup DFLookup, terms []query.Term, totalDocs uint32, dfDropTopPercent float64) ([]rankedTerm, error) {
	ranked := make([]rankedTerm, 0, len(terms))
	for _, t := range terms {
		df, err := dfLookup(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		idf := math.Log((float64(totalDocs) + 1) / (float64(df) + 1))
		ranked = append(ranked, rankedTerm{id: t.ID, df: df, weight: t.Weight, score: float64(t.Weight) * idf})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].df > ranked[j].df })
	drop := int(float64(len(ranked)) * dfDropTopPercent / 100)
	if drop < 0 {
		drop = 0
	}
	if drop > len(ranked) {
		drop = len(ranked)
	}
	ranked = ranked[drop:]

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].id < ranked[j].id
	})
	return ranked, nil
}

// selectMustShould greedily grows MUST while the base-intersected-with-MUST
// set stays above budget or below min_must, then fills SHOULD from the
// next should_cap remaining terms.
func selectMustShould(ctx context.Context, src BitmapSource, base *bitmap.Bitmap, ranked []rankedTerm, knobs options.GatingKnobs) ([]uint32, []uint32, error) {
	var must []uint32
	current := base.Clone()
	i := 0

	for i < len(ranked) {
		needMore := int64(current.Cardinality()) > int64(knobs.Budget) || len(must) < knobs.MinMust
		if !needMore {
			break
		}

		t := ranked[i]
		termBitmap, err := src.GetBitmap(ctx, termBitmapName(t.id))
		if err != nil {
			return nil, nil, err
		}
		candidate := bitmap.Intersect(current, termBitmap)
		if candidate.Cardinality() == 0 && len(must) >= knobs.MinMust {
			i++
			continue
		}

		must = append(must, t.id)
		current = candidate
		i++
	}

	mustSet := make(map[uint32]bool, len(must))
	for _, id := range must {
		mustSet[id] = true
	}

	var should []uint32
	for ; i < len(ranked) && len(should) < knobs.ShouldCap; i++ {
		if !mustSet[ranked[i].id] {
			should = append(should, ranked[i].id)
		}
	}

	return must, should, nil
}

func termBitmapName(id uint32) string {
	return "term:" + strconv.FormatUint(uint64(id), 10)
}
