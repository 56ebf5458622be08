package fmd

import (
	"errors"
	"fmt"
	"sync"

	"gofmd/bitvector"
	"gofmd/lcp"
	"gofmd/rankbwt"
	"gofmd/salocate"
)

// ErrMissingAlphabet is returned when a retraction during mapping runs the
// pattern length down to zero: the index does not contain some base
// present in the query (spec.md §7).
var ErrMissingAlphabet = errors.New("fmd: retraction exhausted the pattern without finding a base")

// Logger receives low-volume diagnostic events from the index and mapper.
// The zero value of NopLogger satisfies it silently; callers wire in
// whatever structured sink they like at construction (spec.md's
// non-singleton logging note).
type Logger interface {
	Debugf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
}

// NopLogger discards every message. It is the default when no Logger is
// supplied to New.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Tracef(string, ...interface{}) {}

// FmdIndex owns the BWT, suffix-array locator, LCP array and contig/genome
// metadata that back every search and mapping operation. It is immutable
// once constructed and safe for concurrent read-only use (spec.md §5).
type FmdIndex struct {
	bwt     *rankbwt.BWT
	lcp     *lcp.Array
	locator *salocate.Locator
	contigs *ContigTable
	log     Logger

	// inverseLocate maps a raw text offset back to the BWT row that locates
	// to it, built lazily on first use by Display/DisplayContig. The
	// suffix-array locator only runs row -> offset; un-locating efficiently
	// needs this table built once rather than a per-call scan.
	inverseOnce   sync.Once
	inverseLocate map[uint64]int64
}

// New assembles an FmdIndex from its already-loaded primitives. Loading
// those primitives from the five on-disk files (spec.md §6) is the
// responsibility of the caller (typically fmdbuild or a small loader in
// cmd/fmdmap); New just wires them together and validates nothing further.
func New(bwt *rankbwt.BWT, lcpArray *lcp.Array, locator *salocate.Locator, contigs *ContigTable, log Logger) *FmdIndex {
	if log == nil {
		log = NopLogger{}
	}
	return &FmdIndex{bwt: bwt, lcp: lcpArray, locator: locator, contigs: contigs, log: log}
}

// BWTLength returns the number of rows in the underlying BWT.
func (idx *FmdIndex) BWTLength() int64 {
	return idx.bwt.Len()
}

// Covering returns the FmdPosition spanning the whole index, the starting
// point for every search.
func (idx *FmdIndex) Covering() FmdPosition {
	return Covering(idx.bwt.Len())
}

// CharPosition returns the FmdPosition for the single-character pattern c.
func (idx *FmdIndex) CharPosition(c byte) (FmdPosition, error) {
	if !isBase(c) {
		return FmdPosition{}, fmt.Errorf("%w: %q", ErrInvalidBase, c)
	}
	forwardStart := idx.bwt.PC(c)
	reverseStart := idx.bwt.PC(complement(c))
	offset := idx.bwt.Occ(c, idx.bwt.Len()-1) - 1
	return FmdPosition{ForwardStart: forwardStart, ReverseStart: reverseStart, EndOffset: offset}, nil
}

// Extend produces the FmdPosition for pattern c·p (backward) or p·c
// (forward).
func (idx *FmdIndex) Extend(p FmdPosition, c byte, backward bool) (FmdPosition, error) {
	idx.log.Tracef("extending %+v with %q backward=%v", p, c, backward)
	return Extend(idx.bwt, p, c, backward)
}

// ExtendFast is the optimized single-character form of Extend.
func (idx *FmdIndex) ExtendFast(p FmdPosition, c byte, backward bool) (FmdPosition, error) {
	return ExtendFast(idx.bwt, p, c, backward)
}

// ExtendLeftOnly updates only the forward interval of p.
func (idx *FmdIndex) ExtendLeftOnly(p FmdPosition, c byte) (FmdPosition, error) {
	return ExtendLeftOnly(idx.bwt, p, c)
}

func (idx *FmdIndex) lcpAt(i int64) uint64 {
	if i < 0 || i >= idx.bwt.Len() {
		return 0
	}
	v, err := idx.lcp.Value(i)
	if err != nil {
		return 0
	}
	return v
}

// RetractRightOnly performs exactly one suffix-tree parent jump on the
// forward interval of p and returns the new position along with the
// resulting pattern length (the parent's string depth). Can only be
// followed by left extension, since the reverse interval is left
// meaningless (spec.md §4.1).
func (idx *FmdIndex) RetractRightOnly(p FmdPosition) (FmdPosition, int64) {
	rangeStart := p.ForwardStart
	rangeEnd := p.ForwardStart + p.EndOffset + 1

	startLCP := idx.lcpAt(rangeStart)
	var endLCP uint64
	if rangeEnd < idx.bwt.Len() {
		endLCP = idx.lcpAt(rangeEnd)
	}

	useStart := startLCP >= endLCP
	value := startLCP
	lcpIndex := rangeStart
	if !useStart {
		value = endLCP
		lcpIndex = rangeEnd
	}

	psv, _ := idx.lcp.PSV(lcpIndex)
	nsv, _ := idx.lcp.NSV(lcpIndex)

	newPos := FmdPosition{
		ForwardStart: int64(psv),
		ReverseStart: p.ReverseStart,
		EndOffset:    int64(nsv) - int64(psv) - 1,
	}
	return newPos, int64(value)
}

// RetractRightOnlyTo repeatedly jumps to parent suffix-tree nodes while the
// parent's string depth is at least newLength, so the result is the
// shallowest of p and its ancestors whose string depth is still at least
// newLength. Implemented iteratively per spec.md §9's redesign note (the
// original recurses tail-recursively on the same target).
func (idx *FmdIndex) RetractRightOnlyTo(p FmdPosition, newLength int64) FmdPosition {
	for {
		rangeStart := p.ForwardStart
		rangeEnd := p.ForwardStart + p.EndOffset + 1

		startLCP := idx.lcpAt(rangeStart)
		var endLCP uint64
		if rangeEnd < idx.bwt.Len() {
			endLCP = idx.lcpAt(rangeEnd)
		}

		useStart := startLCP >= endLCP
		value := startLCP
		lcpIndex := rangeStart
		if !useStart {
			value = endLCP
			lcpIndex = rangeEnd
		}

		if int64(value) < newLength {
			return p
		}

		psv, _ := idx.lcp.PSV(lcpIndex)
		nsv, _ := idx.lcp.NSV(lcpIndex)

		p = FmdPosition{
			ForwardStart: int64(psv),
			ReverseStart: p.ReverseStart,
			EndOffset:    int64(nsv) - int64(psv) - 1,
		}

		if int64(value) == newLength {
			return p
		}
	}
}

// GetLF returns the LF-mapping of BWT row i: the row, one column to the
// left, of the suffix that i's suffix follows. Used both to walk unsampled
// suffix-array rows to their nearest sample, and as the salocate.LFStepper
// FmdIndex itself implements.
func (idx *FmdIndex) GetLF(i int64) int64 {
	c := idx.bwt.Char(i)
	return idx.bwt.PC(c) + idx.bwt.Occ(c, i) - 1
}

// LF satisfies salocate.LFStepper.
func (idx *FmdIndex) LF(row int64) int64 {
	return idx.GetLF(row)
}

// Locate maps a BWT row to the TextPosition that produced it.
func (idx *FmdIndex) Locate(row int64) (TextPosition, error) {
	raw := idx.locator.Locate(row)
	pos, err := idx.contigs.DecodeRawOffset(uint64(raw))
	if err != nil {
		return TextPosition{}, fmt.Errorf("fmd: locate row %d: %w", row, err)
	}
	return pos, nil
}

// buildInverseLocate scans every row once to invert the suffix-array
// locator, so Display can find the BWT row for a raw text offset without
// an O(BWTLength) scan per call.
func (idx *FmdIndex) buildInverseLocate() {
	idx.inverseOnce.Do(func() {
		n := idx.bwt.Len()
		idx.inverseLocate = make(map[uint64]int64, n)
		for row := int64(0); row < n; row++ {
			idx.inverseLocate[uint64(idx.locator.Locate(row))] = row
		}
	})
}

// Display returns the base at the given TextPosition. The BWT stores, at
// the row whose suffix starts one position later, the character
// immediately preceding that suffix — which is the base this position
// names.
func (idx *FmdIndex) Display(pos TextPosition) (byte, error) {
	raw, err := idx.contigs.EncodeTextPosition(pos)
	if err != nil {
		return 0, err
	}
	row, err := idx.rowForRawOffset(raw + 1)
	if err != nil {
		return 0, err
	}
	return idx.bwt.Char(row), nil
}

// rowForRawOffset finds the BWT row whose suffix array value is raw.
func (idx *FmdIndex) rowForRawOffset(raw uint64) (int64, error) {
	idx.buildInverseLocate()
	row, ok := idx.inverseLocate[raw]
	if !ok {
		return 0, fmt.Errorf("fmd: no BWT row locates to raw offset %d", raw)
	}
	return row, nil
}

// DisplayContig returns length bases of contig starting at offset.
func (idx *FmdIndex) DisplayContig(contigIndex int, offset, length uint64) ([]byte, error) {
	c := idx.contigs.Contig(contigIndex)
	if offset+length > c.Length {
		return nil, fmt.Errorf("fmd: range [%d,%d) exceeds contig %q length %d", offset, offset+length, c.Name, c.Length)
	}
	out := make([]byte, length)
	for i := uint64(0); i < length; i++ {
		b, err := idx.Display(TextPosition{Text: uint64(2 * contigIndex), Offset: offset + i})
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Count returns the FmdPosition matching pattern exactly, with an empty
// position if pattern does not occur.
func (idx *FmdIndex) Count(pattern string) (FmdPosition, error) {
	if len(pattern) == 0 {
		return idx.Covering(), nil
	}

	pos, err := idx.CharPosition(pattern[len(pattern)-1])
	if err != nil {
		return FmdPosition{}, err
	}

	for i := len(pattern) - 2; i >= 0 && !pos.IsEmpty(); i-- {
		pos, err = idx.ExtendFast(pos, pattern[i], true)
		if err != nil {
			return FmdPosition{}, err
		}
	}
	return pos, nil
}

// Contigs returns the index's contig/genome metadata table.
func (idx *FmdIndex) Contigs() *ContigTable {
	return idx.contigs
}

// GenomeMask returns the mask for the given genome id.
func (idx *FmdIndex) GenomeMask(genomeID int) (*bitvector.BitVector, error) {
	return idx.contigs.GenomeMask(genomeID)
}
