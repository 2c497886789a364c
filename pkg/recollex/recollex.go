// Package recollex is the embeddable local search index for SPLADE-style
// sparse learned vectors: segmented CSR storage, a Roaring-bitmap metadata
// store, adaptive term-gating, exact sparse scoring, and a k-way rank
// merger, behind a small add/search/remove surface.
package recollex

import (
	"context"

	"go.uber.org/zap"

	"github.com/chrsbats/recollex/internal/compaction"
	"github.com/chrsbats/recollex/internal/engine"
	"github.com/chrsbats/recollex/internal/query"
	"github.com/chrsbats/recollex/internal/tags"
	"github.com/chrsbats/recollex/pkg/logger"
	"github.com/chrsbats/recollex/pkg/options"
)

// Encoder is the external SPLADE collaborator: a pure function mapping
// texts to sparse (indices, weights) term vectors. Term ids must be
// strictly ascending and below Dims(); weights non-negative.
type Encoder = engine.Encoder

// Tag is one canonicalized document label.
type Tag = tags.Label

// Flat builds a flat "tag:<string>" label.
func Flat(s string) Tag { return tags.Flat(s) }

// KV builds a structured "tag:<k>=<v>" label.
func KV(k, v string) Tag { return tags.KV(k, v) }

// Scope is the tag filtering a search applies before term gating: AllOf is
// an AND match, OneOf an OR match, NoneOf an exclusion. The literal
// "everything" in any list disables that list.
type Scope = query.Scope

// Term is one query-side SPLADE dimension, for SearchTerms callers that
// already have an encoded vector.
type Term = query.Term

// SearchOptions is the tail of parameters shared by Search, SearchTerms, and Last.
type SearchOptions = engine.SearchOptions

// Result is one hydrated search hit.
type Result = engine.Result

// Index is an open recollex index.
type Index struct {
	eng *engine.Engine
}

// Option configures Open; it's options.OptionFunc re-exported under the
// facade's name so callers never need to import pkg/options directly.
type Option = options.OptionFunc

// WithSegmentSize, WithBitmapCacheSize, etc. are re-exported unchanged.
var (
	WithDataDir                = options.WithDataDir
	WithSegmentDir             = options.WithSegmentDir
	WithSegmentPrefix          = options.WithSegmentPrefix
	WithSegmentSize            = options.WithSegmentSize
	WithManifestLockTimeout    = options.WithManifestLockTimeout
	WithBitmapCacheSize        = options.WithBitmapCacheSize
	WithSegmentReaderCacheSize = options.WithSegmentReaderCacheSize
	WithCSRCache               = options.WithCSRCache
	WithScorerKernelThreshold  = options.WithScorerKernelThreshold
	WithProfile                = options.WithProfile
)

// Open creates the index directory (and SQL file) if missing, or loads an
// existing one. encoder supplies the SPLADE vectors for add/search calls
// that take raw text; service names the logger's "service" field.
func Open(ctx context.Context, path string, encoder Encoder, service string, opts ...Option) (*Index, error) {
	o := options.NewDefaultOptions()
	o.DataDir = path
	for _, opt := range opts {
		opt(&o)
	}

	eng, err := engine.Open(ctx, &engine.Config{
		DataDir: path,
		Encoder: encoder,
		Logger:  logger.New(service),
		Options: &o,
	})
	if err != nil {
		return nil, err
	}
	return &Index{eng: eng}, nil
}

// Close releases every cached resource (segment readers, the metadata
// database handle). Safe to call once.
func (idx *Index) Close() error {
	return idx.eng.Close()
}

// Add encodes text and appends it as a new document, returning its doc_id.
func (idx *Index) Add(ctx context.Context, text string, labels ...Tag) (uint64, error) {
	return idx.eng.Add(ctx, text, labels)
}

// AddMany encodes a batch of texts, each with its own tag set, returning
// their doc_ids in order.
func (idx *Index) AddMany(ctx context.Context, texts []string, labelSets [][]Tag) ([]uint64, error) {
	return idx.eng.AddMany(ctx, texts, labelSets)
}

// Row is one pre-encoded document for AddEncoded.
type Row = engine.Row

// AddEncoded appends already-encoded SPLADE vectors directly, skipping the
// configured encoder.
func (idx *Index) AddEncoded(ctx context.Context, rows []Row) ([]uint64, error) {
	return idx.eng.AddEncoded(ctx, rows)
}

// Flush forces durability of any buffered, unflushed writes.
func (idx *Index) Flush(ctx context.Context) error {
	return idx.eng.Flush(ctx)
}

// Remove tombstones the given doc_ids. Unknown ids are a silent no-op.
func (idx *Index) Remove(ctx context.Context, docIDs ...uint64) error {
	return idx.eng.Remove(ctx, docIDs...)
}

// CompactResult summarizes one Compact call.
type CompactResult = compaction.Result

// Compact physically drops every tombstoned row by rewriting the segments
// that hold them, reconciling postings, DF stats, and the docs table to
// match. Call periodically; Remove/RemoveBy only ever add to the tombstone
// set, so DF and postings drift from the true alive set until this runs.
func (idx *Index) Compact(ctx context.Context) (CompactResult, error) {
	return idx.eng.Compact(ctx)
}

// RemoveBy tombstones every document matching scope, returning the count
// affected (or, if dryRun, the count that would be affected).
func (idx *Index) RemoveBy(ctx context.Context, scope Scope, dryRun bool) (int, error) {
	return idx.eng.RemoveBy(ctx, scope, dryRun)
}

// Search encodes text and ranks the index against it.
func (idx *Index) Search(ctx context.Context, text string, opts SearchOptions) ([]Result, error) {
	return idx.eng.Search(ctx, text, opts)
}

// SearchTerms ranks the index against an already-encoded query vector.
func (idx *Index) SearchTerms(ctx context.Context, terms []Term, opts SearchOptions) ([]Result, error) {
	return idx.eng.SearchTerms(ctx, terms, opts)
}

// Last returns the k most recently added documents, optionally scoped by tags.
func (idx *Index) Last(ctx context.Context, k int, scope Scope) ([]Result, error) {
	return idx.eng.Last(ctx, k, scope)
}

// NopLogger is a convenience for embedders that want recollex silent.
func NopLogger() *zap.SugaredLogger { return logger.NewNop() }
