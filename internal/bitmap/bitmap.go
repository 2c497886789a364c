// Package bitmap wraps github.com/RoaringBitmap/roaring with the small,
// closed vocabulary recollex's metadata store and filter policy need: empty,
// singleton, union, intersect, difference, and-not-into, cardinality,
// membership, sorted iteration, and a portable serialize/deserialize
// round-trip. Every recollex bitmap — term postings, tag sets, tombstones —
// is one of these.
package bitmap

import (
	"bytes"

	"github.com/RoaringBitmap/roaring"
)

// Bitmap is a set of doc_ids.
type Bitmap struct {
	rb *roaring.Bitmap
}

// Empty returns a new, empty bitmap.
func Empty() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// OfOne returns a bitmap containing exactly one doc_id.
func OfOne(id uint32) *Bitmap {
	b := roaring.New()
	b.Add(id)
	return &Bitmap{rb: b}
}

// OfMany returns a bitmap containing every given doc_id.
func OfMany(ids []uint32) *Bitmap {
	b := roaring.New()
	b.AddMany(ids)
	return &Bitmap{rb: b}
}

// Clone returns an independent copy of b.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// Add inserts a single doc_id.
func (b *Bitmap) Add(id uint32) {
	b.rb.Add(id)
}

// Remove deletes a single doc_id, if present.
func (b *Bitmap) Remove(id uint32) {
	b.rb.Remove(id)
}

// Union returns the union of all the given bitmaps. An empty argument list
// returns an empty bitmap.
func Union(bitmaps ...*Bitmap) *Bitmap {
	if len(bitmaps) == 0 {
		return Empty()
	}
	raw := make([]*roaring.Bitmap, len(bitmaps))
	for i, b := range bitmaps {
		raw[i] = b.rb
	}
	return &Bitmap{rb: roaring.FastOr(raw...)}
}

// Intersect returns the intersection of all the given bitmaps. An empty
// argument list returns an empty bitmap (there is no universal set to
// intersect against).
func Intersect(bitmaps ...*Bitmap) *Bitmap {
	if len(bitmaps) == 0 {
		return Empty()
	}
	result := bitmaps[0].rb.Clone()
	for _, b := range bitmaps[1:] {
		result.And(b.rb)
	}
	return &Bitmap{rb: result}
}

// Difference returns a minus every doc_id present in any of the others.
func Difference(a *Bitmap, others ...*Bitmap) *Bitmap {
	result := a.rb.Clone()
	for _, b := range others {
		result.AndNot(b.rb)
	}
	return &Bitmap{rb: result}
}

// AndNotInto subtracts delta from b in place, returning b for chaining.
func (b *Bitmap) AndNotInto(delta *Bitmap) *Bitmap {
	b.rb.AndNot(delta.rb)
	return b
}

// UnionInto adds every doc_id in delta to b in place, returning b for chaining.
func (b *Bitmap) UnionInto(delta *Bitmap) *Bitmap {
	b.rb.Or(delta.rb)
	return b
}

// Cardinality returns the number of doc_ids in the bitmap.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// Contains reports whether id is a member of the bitmap.
func (b *Bitmap) Contains(id uint32) bool {
	return b.rb.Contains(id)
}

// IterSorted calls fn for every doc_id in ascending order, stopping early if
// fn returns false.
func (b *Bitmap) IterSorted(fn func(id uint32) bool) {
	it := b.rb.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			return
		}
	}
}

// ToSlice materializes every doc_id in ascending order. Prefer IterSorted for
// large bitmaps; this is a convenience for candidate sets already capped by
// a search budget.
func (b *Bitmap) ToSlice() []uint32 {
	return b.rb.ToArray()
}

// Serialize writes the bitmap's standard Roaring portable format.
func (b *Bitmap) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.rb.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize parses the standard Roaring portable format produced by Serialize.
func Deserialize(data []byte) (*Bitmap, error) {
	rb := roaring.New()
	if len(data) == 0 {
		return &Bitmap{rb: rb}, nil
	}
	if _, err := rb.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &Bitmap{rb: rb}, nil
}
