package deadcode

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// SymbolSet is a compressed set of node ids backed by a Roaring bitmap.
// It is not safe for concurrent mutation.
type SymbolSet struct {
	bitmap *roaring.Bitmap
}

// NewSymbolSet creates an empty set.
func NewSymbolSet() *SymbolSet {
	return &SymbolSet{bitmap: roaring.New()}
}

// Add inserts id and reports whether it was absent.
func (s *SymbolSet) Add(id uint32) bool {
	return s.bitmap.CheckedAdd(id)
}

// AddMany inserts every id.
func (s *SymbolSet) AddMany(ids []uint32) {
	s.bitmap.AddMany(ids)
}

// Contains reports whether id is in the set.
func (s *SymbolSet) Contains(id uint32) bool {
	return s.bitmap.Contains(id)
}

// Len returns the number of ids in the set.
func (s *SymbolSet) Len() int {
	return int(s.bitmap.GetCardinality())
}

// ToSlice returns the ids in ascending order.
func (s *SymbolSet) ToSlice() []uint32 {
	return s.bitmap.ToArray()
}

// Clone returns an independent copy.
func (s *SymbolSet) Clone() *SymbolSet {
	return &SymbolSet{bitmap: s.bitmap.Clone()}
}
