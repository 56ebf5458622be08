// Package bitvector implements rank/select bit vectors used throughout the
// FMD-index: genome masks, range-partition vectors, and the start/end
// indicator vectors behind IntervalIndex.
package bitvector

import (
	"encoding/binary"
	"fmt"
	"io"

	bitarray "github.com/Workiva/go-datastructures/bitarray"
)

// BitVector is a fixed-length bitstring supporting rank and nearest-set-bit
// queries. It is built in two phases: Set bits in ascending or arbitrary
// order, then Finish to fix the final length and freeze the rank structure.
type BitVector struct {
	bits     bitarray.BitArray
	size     uint64
	finished bool

	// onesUpTo[i] caches the number of set bits in [0, i), rebuilt by Finish.
	onesUpTo []uint64
}

// NewBitVector creates an empty BitVector of the given length. size is a
// hint; Finish fixes the final length explicitly.
func NewBitVector(size uint64) *BitVector {
	return &BitVector{
		bits: bitarray.NewBitArray(size + 1),
		size: size,
	}
}

// Set marks position i as a 1 bit. Must be called before Finish.
func (bv *BitVector) Set(i uint64) {
	if bv.finished {
		panic("bitvector: Set after Finish")
	}
	if err := bv.bits.SetBit(i); err != nil {
		panic(fmt.Sprintf("bitvector: SetBit(%d): %v", i, err))
	}
}

// Finish fixes the bit vector's length at size and builds the rank cache.
// No further Set calls are permitted afterward.
func (bv *BitVector) Finish(size uint64) {
	bv.size = size
	bv.finished = true

	bv.onesUpTo = make([]uint64, size+1)
	var running uint64
	for i := uint64(0); i < size; i++ {
		bv.onesUpTo[i] = running
		if bv.isSetRaw(i) {
			running++
		}
	}
	bv.onesUpTo[size] = running
}

func (bv *BitVector) isSetRaw(i uint64) bool {
	set, err := bv.bits.GetBit(i)
	if err != nil {
		return false
	}
	return set
}

// Size returns the number of addressable bit positions.
func (bv *BitVector) Size() uint64 {
	return bv.size
}

// Get reports whether bit i is set.
func (bv *BitVector) Get(i uint64) bool {
	if i >= bv.size {
		return false
	}
	return bv.isSetRaw(i)
}

// Rank returns the number of positions in [0, i] (inclusive) whose bit value
// equals value. i may run one past the end of the vector, in which case the
// total count of matching bits is returned, matching the original
// GenericBitVector::rank semantics used for mask membership tests.
func (bv *BitVector) Rank(i int64, value bool) uint64 {
	if !bv.finished {
		panic("bitvector: Rank before Finish")
	}
	if i < 0 {
		return 0
	}
	idx := uint64(i) + 1
	if idx > bv.size {
		idx = bv.size
	}
	ones := bv.onesUpTo[idx]
	if value {
		return ones
	}
	return idx - ones
}

// ValueAfter returns the position of the first set bit at or after start,
// and whether one was found. Used to skip masked-out rows at the front of an
// FMD interval (spec.md §4.2 step 4).
func (bv *BitVector) ValueAfter(start uint64) (uint64, bool) {
	for i := start; i < bv.size; i++ {
		if bv.isSetRaw(i) {
			return i, true
		}
	}
	return 0, false
}

// ValueBefore returns the position of the last set bit at or before start,
// and whether one was found.
func (bv *BitVector) ValueBefore(start uint64) (uint64, bool) {
	if start >= bv.size {
		start = bv.size - 1
	}
	for i := int64(start); i >= 0; i-- {
		if bv.isSetRaw(uint64(i)) {
			return uint64(i), true
		}
	}
	return 0, false
}

// WriteTo serializes the BitVector as a little-endian u64 length followed by
// the packed bits (one bit per position, LSB-first within each byte). Used
// to write the per-genome masks concatenated into the .msk sidecar
// (spec.md §6).
func (bv *BitVector) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, bv.size); err != nil {
		return 0, fmt.Errorf("bitvector: write size: %w", err)
	}
	n := int64(8)

	packed := make([]byte, (bv.size+7)/8)
	for i := uint64(0); i < bv.size; i++ {
		if bv.isSetRaw(i) {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	written, err := w.Write(packed)
	n += int64(written)
	if err != nil {
		return n, fmt.Errorf("bitvector: write bits: %w", err)
	}
	return n, nil
}

// ReadBitVector deserializes one BitVector written by WriteTo. Returns
// io.EOF (unwrapped, so callers can check with errors.Is) when r is already
// at end of stream, letting a caller read a concatenated sequence of masks
// until exhausted.
func ReadBitVector(r io.Reader) (*BitVector, error) {
	var size uint64
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("bitvector: read size: %w", err)
	}

	packed := make([]byte, (size+7)/8)
	if _, err := io.ReadFull(r, packed); err != nil {
		return nil, fmt.Errorf("bitvector: read bits: %w", err)
	}

	bv := NewBitVector(size)
	for i := uint64(0); i < size; i++ {
		if packed[i/8]&(1<<(i%8)) != 0 {
			bv.Set(i)
		}
	}
	bv.Finish(size)
	return bv, nil
}

// SparseBitVector is a BitVector built directly from a sorted, small list of
// set positions. It shares BitVector's rank/select interface but skips the
// dense bitarray allocation for masks over a handful of genomes, where a
// full-length dense mask per genome would otherwise dominate memory.
type SparseBitVector struct {
	ones []uint64
	size uint64
}

// NewSparseBitVector builds a SparseBitVector of length size from the sorted
// set of one-bit positions.
func NewSparseBitVector(size uint64, ones []uint64) *SparseBitVector {
	return &SparseBitVector{ones: ones, size: size}
}

func (sbv *SparseBitVector) Size() uint64 { return sbv.size }

func (sbv *SparseBitVector) Get(i uint64) bool {
	_, found := search(sbv.ones, i)
	return found
}

// Rank mirrors BitVector.Rank.
func (sbv *SparseBitVector) Rank(i int64, value bool) uint64 {
	if i < 0 {
		return 0
	}
	idx := uint64(i) + 1
	if idx > sbv.size {
		idx = sbv.size
	}
	lo, _ := search(sbv.ones, idx)
	ones := uint64(lo)
	if value {
		return ones
	}
	return idx - ones
}

func (sbv *SparseBitVector) ValueAfter(start uint64) (uint64, bool) {
	lo, _ := search(sbv.ones, start)
	if lo >= len(sbv.ones) {
		return 0, false
	}
	return sbv.ones[lo], true
}

func (sbv *SparseBitVector) ValueBefore(start uint64) (uint64, bool) {
	lo, found := search(sbv.ones, start)
	if found {
		return sbv.ones[lo], true
	}
	if lo == 0 {
		return 0, false
	}
	return sbv.ones[lo-1], true
}

// search returns the smallest index idx such that ones[idx] >= target, and
// whether ones[idx] == target exactly.
func search(ones []uint64, target uint64) (int, bool) {
	lo, hi := 0, len(ones)
	for lo < hi {
		mid := (lo + hi) / 2
		if ones[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(ones) && ones[lo] == target
}
