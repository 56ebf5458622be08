// Package interval implements a predecessor/successor index over
// (start, length) intervals, used to map suffix-array ranges back to the
// genome/contig they fall in (spec.md §4.9). Ported from the original
// IntervalIndex<Annotation> template (IntervalIndex.hpp), using two
// bitvector.BitVector rank structures in place of hand-rolled ones.
package interval

import (
	"errors"
	"fmt"
	"sort"

	"gofmd/bitvector"
)

// ErrEmpty is returned by any query on an Index with no intervals.
var ErrEmpty = errors.New("interval: index is empty")

// ErrNotFound is returned when no interval satisfies a predecessor or
// successor query.
var ErrNotFound = errors.New("interval: no matching interval")

// Record pairs an (start, length) interval with an arbitrary annotation.
type Record[A any] struct {
	Start  uint64
	Length uint64
	Value  A
}

func (r Record[A]) end() uint64 {
	return r.Start + r.Length - 1
}

// Index answers predecessor/successor queries over a fixed set of
// intervals: the latest-starting (or ending) interval at or before a
// position, and the earliest-starting (or ending) interval at or after one.
// All queries are inclusive of the boundary position itself.
type Index[A any] struct {
	records      []Record[A]
	startBits    *bitvector.BitVector
	startRecords []int
	endBits      *bitvector.BitVector
	endRecords   []int
	totalLength  uint64
}

// New builds an Index over the given records, which need not be
// pre-sorted. Passing zero records yields a valid, permanently-empty Index.
func New[A any](records []Record[A]) *Index[A] {
	idx := &Index[A]{records: records}
	if len(records) == 0 {
		return idx
	}

	sort.Slice(idx.records, func(i, j int) bool {
		if idx.records[i].Start != idx.records[j].Start {
			return idx.records[i].Start < idx.records[j].Start
		}
		return idx.records[i].Length < idx.records[j].Length
	})

	last := idx.records[len(idx.records)-1]
	idx.totalLength = last.Start + last.Length

	idx.startBits = bitvector.NewBitVector(idx.totalLength)
	for i, rec := range idx.records {
		if i > 0 && rec.Start == idx.records[i-1].Start {
			continue
		}
		idx.startBits.Set(rec.Start)
		idx.startRecords = append(idx.startRecords, i)
	}
	idx.startBits.Finish(idx.totalLength)

	type endPos struct {
		end   uint64
		index int
	}
	ends := make([]endPos, len(idx.records))
	for i, rec := range idx.records {
		ends[i] = endPos{end: rec.end(), index: i}
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i].end < ends[j].end })

	idx.endBits = bitvector.NewBitVector(idx.totalLength)
	for i, e := range ends {
		if i > 0 && e.end == ends[i-1].end {
			continue
		}
		idx.endBits.Set(e.end)
		idx.endRecords = append(idx.endRecords, e.index)
	}
	idx.endBits.Finish(idx.totalLength)

	return idx
}

// Len returns the number of intervals held by the index.
func (idx *Index[A]) Len() int {
	return len(idx.records)
}

func (idx *Index[A]) clampIndex(position uint64) uint64 {
	if position >= idx.totalLength {
		return idx.totalLength - 1
	}
	return position
}

// HasStartingBefore reports whether some interval starts at or before
// position.
func (idx *Index[A]) HasStartingBefore(position uint64) bool {
	if idx.startBits == nil {
		return false
	}
	return idx.startBits.Rank(int64(idx.clampIndex(position)), true) > 0
}

// StartingBefore returns the latest-starting interval that starts at or
// before position.
func (idx *Index[A]) StartingBefore(position uint64) (Record[A], error) {
	if idx.startBits == nil {
		return Record[A]{}, ErrEmpty
	}
	rank := idx.startBits.Rank(int64(idx.clampIndex(position)), true)
	if rank == 0 {
		return Record[A]{}, fmt.Errorf("%w: starting at or before %d", ErrNotFound, position)
	}
	return idx.records[idx.startRecords[rank-1]], nil
}

// HasEndingBefore reports whether some interval ends at or before position.
func (idx *Index[A]) HasEndingBefore(position uint64) bool {
	if idx.endBits == nil {
		return false
	}
	return idx.endBits.Rank(int64(idx.clampIndex(position)), true) > 0
}

// EndingBefore returns the latest-ending interval that ends at or before
// position.
func (idx *Index[A]) EndingBefore(position uint64) (Record[A], error) {
	if idx.endBits == nil {
		return Record[A]{}, ErrEmpty
	}
	rank := idx.endBits.Rank(int64(idx.clampIndex(position)), true)
	if rank == 0 {
		return Record[A]{}, fmt.Errorf("%w: ending at or before %d", ErrNotFound, position)
	}
	return idx.records[idx.endRecords[rank-1]], nil
}

// HasEndingAfter reports whether some interval ends at or after position.
func (idx *Index[A]) HasEndingAfter(position uint64) bool {
	if idx.endBits == nil || position >= idx.totalLength {
		return false
	}
	rank := idx.endBits.Rank(int64(position)-1, true)
	return rank < uint64(len(idx.endRecords))
}

// EndingAfter returns the earliest-ending interval that ends at or after
// position.
func (idx *Index[A]) EndingAfter(position uint64) (Record[A], error) {
	if !idx.HasEndingAfter(position) {
		return Record[A]{}, fmt.Errorf("%w: ending at or after %d", ErrNotFound, position)
	}
	rank := idx.endBits.Rank(int64(position)-1, true)
	return idx.records[idx.endRecords[rank]], nil
}

// HasStartingAfter reports whether some interval starts at or after
// position.
func (idx *Index[A]) HasStartingAfter(position uint64) bool {
	if idx.startBits == nil || position >= idx.totalLength {
		return false
	}
	rank := idx.startBits.Rank(int64(position)-1, true)
	return rank < uint64(len(idx.startRecords))
}

// StartingAfter returns the earliest-starting interval that starts at or
// after position.
func (idx *Index[A]) StartingAfter(position uint64) (Record[A], error) {
	if !idx.HasStartingAfter(position) {
		return Record[A]{}, fmt.Errorf("%w: starting at or after %d", ErrNotFound, position)
	}
	rank := idx.startBits.Rank(int64(position)-1, true)
	return idx.records[idx.startRecords[rank]], nil
}
