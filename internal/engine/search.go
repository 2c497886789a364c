package engine

import (
	"context"
	"sort"
	"strconv"

	"github.com/chrsbats/recollex/internal/bitmap"
	"github.com/chrsbats/recollex/internal/candidates"
	"github.com/chrsbats/recollex/internal/filterpolicy"
	"github.com/chrsbats/recollex/internal/merger"
	"github.com/chrsbats/recollex/internal/metadata"
	"github.com/chrsbats/recollex/internal/query"
	"github.com/chrsbats/recollex/internal/scorer"
	"github.com/chrsbats/recollex/internal/segment"
	"github.com/chrsbats/recollex/internal/tags"
	"github.com/chrsbats/recollex/pkg/options"
)

// SearchOptions carries a search call's tail of optional parameters —
// the part of the caller surface shared by search, search_terms, and last.
type SearchOptions struct {
	K             int
	Scope         query.Scope
	Profile       string
	ExcludeDocIDs []uint64
	OverrideKnobs options.GatingKnobs
	MinScore      *float32
}

// Result is one hydrated hit: doc placement, score, and the document's
// stored attributes.
type Result struct {
	DocID     uint64
	SegmentID string
	RowOffset uint32
	Score     float32
	Seq       int64
	Text      *string
	Tags      []tags.Label
}

// Search encodes text through the configured encoder and runs SearchTerms.
// Empty text with the recent profile is the caller surface's "last" call.
func (e *Engine) Search(ctx context.Context, text string, opts SearchOptions) ([]Result, error) {
	var terms []query.Term
	if text != "" {
		vectors, err := e.encoder.Encode(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		terms = vectors[0]
	}
	return e.SearchTerms(ctx, terms, opts)
}

// SearchTerms scores and ranks the index against an already-encoded query
// vector, applying tag scoping, term gating, exclusion, and profile knobs.
func (e *Engine) SearchTerms(ctx context.Context, terms []query.Term, opts SearchOptions) ([]Result, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	knobs := options.Merge(e.opts.Profile(opts.Profile), opts.OverrideKnobs)
	manifest := e.currentManifest()
	totalDocs := uint32(manifest.TotalRows())

	exclude := bitmap.Empty()
	if len(opts.ExcludeDocIDs) > 0 {
		ids := make([]uint32, len(opts.ExcludeDocIDs))
		for i, id := range opts.ExcludeDocIDs {
			ids[i] = uint32(id)
		}
		exclude = bitmap.OfMany(ids)
	}

	var candidateSet *bitmap.Bitmap
	var gateTerms []uint32 // must ∪ should, for per-segment scoring

	if knobs.Recency {
		base, err := filterpolicy.MatchScope(ctx, e.store, opts.Scope)
		if err != nil {
			return nil, err
		}
		base = bitmap.Difference(base, exclude)
		candidateSet = candidates.SupplyRecent(base, knobs.Budget)
	} else {
		result, err := filterpolicy.Select(ctx, e.store, e.dfLookup, terms, opts.Scope, exclude, totalDocs, knobs)
		if err != nil {
			return nil, err
		}
		gateTerms = append(append([]uint32{}, result.Must...), result.Should...)
		candidateSet, err = candidates.Supply(ctx, e.store, result, knobs.Budget)
		if err != nil {
			return nil, err
		}
	}

	needsScores := !knobs.Recency || (opts.MinScore != nil && len(terms) > 0)
	scoringTerms := terms
	if needsScores && !knobs.Recency && len(gateTerms) > 0 {
		scoringTerms = restrictTerms(terms, gateTerms)
	}

	docIDs := toUint64Slice(candidateSet.ToSlice())
	docRows, err := e.store.GetDocsByIDs(ctx, docIDs)
	if err != nil {
		return nil, err
	}

	offsetsBySegment := make(map[string][]uint32)
	docIDBySegmentRow := make(map[string]map[uint32]uint64)
	for _, id := range docIDs {
		dr, ok := docRows[id]
		if !ok {
			continue
		}
		offsetsBySegment[dr.SegmentID] = append(offsetsBySegment[dr.SegmentID], dr.RowOffset)
		m := docIDBySegmentRow[dr.SegmentID]
		if m == nil {
			m = make(map[uint32]uint64)
			docIDBySegmentRow[dr.SegmentID] = m
		}
		m[dr.RowOffset] = id
	}

	var records []merger.Record
	var acquired []*segment.Reader
	defer func() {
		for _, r := range acquired {
			r.Release()
		}
	}()
	for segName, offsets := range offsetsBySegment {
		reader, err := e.getReader(segName)
		if err != nil {
			return nil, err
		}
		acquired = append(acquired, reader)

		segDocIDs := make([]uint32, len(offsets))
		for i, off := range offsets {
			segDocIDs[i] = uint32(docIDBySegmentRow[segName][off])
		}
		segCandidates := bitmap.OfMany(segDocIDs)

		var scored []scorer.ScoredRow
		if needsScores {
			scored, err = scorer.Score(ctx, reader, e.store, segCandidates, offsets, scoringTerms, e.opts.ScorerKernelThreshold)
			if err != nil {
				return nil, err
			}
		} else {
			scored = make([]scorer.ScoredRow, len(offsets))
			for i, off := range offsets {
				scored[i] = scorer.ScoredRow{RowOffset: off, Score: 0}
			}
		}

		for _, sr := range scored {
			docID := docIDBySegmentRow[segName][sr.RowOffset]
			dr := docRows[docID]
			records = append(records, merger.Record{
				DocID:     docID,
				SegmentID: segName,
				RowOffset: sr.RowOffset,
				Score:     sr.Score,
				Seq:       dr.Seq,
			})
		}
	}

	if opts.MinScore != nil && needsScores {
		filtered := records[:0]
		for _, r := range records {
			if r.Score >= *opts.MinScore {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	var top []merger.Record
	if knobs.Recency {
		top = merger.TopKByRecency(records, opts.K)
	} else {
		tk := merger.NewTopKByScore(opts.K)
		for _, r := range records {
			tk.Add(r)
		}
		top = tk.Results()
	}

	return e.hydrate(top, docRows), nil
}

// Last returns the k most recently added documents, optionally scoped by
// tags — equivalent to Search("", SearchOptions{Profile: "recent", ...}).
func (e *Engine) Last(ctx context.Context, k int, scope query.Scope) ([]Result, error) {
	return e.Search(ctx, "", SearchOptions{K: k, Scope: scope, Profile: "recent"})
}

func (e *Engine) dfLookup(ctx context.Context, termID uint32) (uint32, error) {
	key := "term_df:" + strconv.FormatUint(uint64(termID), 10)
	v, err := e.store.GetStat(ctx, key)
	if err != nil {
		return 0, err
	}
	if v > 0 {
		return uint32(v), nil
	}
	postings, err := e.store.GetBitmap(ctx, "term:"+strconv.FormatUint(uint64(termID), 10))
	if err != nil {
		return 0, err
	}
	return uint32(postings.Cardinality()), nil
}

func (e *Engine) hydrate(records []merger.Record, docRows map[uint64]*metadata.DocRow) []Result {
	out := make([]Result, len(records))
	for i, r := range records {
		dr := docRows[r.DocID]
		out[i] = Result{
			DocID:     r.DocID,
			SegmentID: r.SegmentID,
			RowOffset: r.RowOffset,
			Score:     r.Score,
			Seq:       r.Seq,
			Text:      dr.Text,
			Tags:      tags.FromJSON(dr.Tags),
		}
	}
	return out
}

// restrictTerms filters a query vector down to the term ids the filter
// policy actually gated on (must ∪ should) — scoring only needs those.
func restrictTerms(terms []query.Term, ids []uint32) []query.Term {
	keep := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := make([]query.Term, 0, len(ids))
	for _, t := range terms {
		if keep[t.ID] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func toUint64Slice(ids []uint32) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}
