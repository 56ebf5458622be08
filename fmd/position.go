package fmd

import (
	"errors"
	"fmt"

	"gofmd/bitvector"
	"gofmd/rankbwt"
)

// ErrInvalidBase is returned when an extension is requested with a
// character outside {A, C, G, T} or the NUL byte (spec.md §7).
var ErrInvalidBase = errors.New("fmd: character is not a DNA base")

// bases lists the DNA alphabet in the order extend's dynamic program walks
// it; reverse intervals are assigned in alphabetical order by the reverse
// complement of each base, matching FMDIndex::extend.
var bases = []byte{'A', 'C', 'G', 'T'}

func complement(c byte) byte {
	switch c {
	case 'A':
		return 'T'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	case 'T':
		return 'A'
	default:
		return c
	}
}

func isBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T':
		return true
	default:
		return false
	}
}

// FmdPosition is a pair of BWT intervals of equal length: the forward
// interval over rows whose prefix equals the current pattern, and the
// reverse interval over rows whose prefix equals the pattern's reverse
// complement.
type FmdPosition struct {
	ForwardStart int64
	ReverseStart int64
	EndOffset    int64
}

// Covering returns the FmdPosition spanning the entire BWT: the starting
// point for every search.
func Covering(bwtLength int64) FmdPosition {
	return FmdPosition{ForwardStart: 0, ReverseStart: 0, EndOffset: bwtLength - 1}
}

// Length returns the number of rows in either interval (they are always
// equal in length).
func (p FmdPosition) Length() int64 {
	if p.EndOffset < 0 {
		return 0
	}
	return p.EndOffset + 1
}

// IsEmpty reports whether the interval contains no rows.
func (p FmdPosition) IsEmpty() bool {
	return p.EndOffset < 0
}

// Flip swaps the forward and reverse intervals, corresponding to taking the
// reverse complement of the pattern this position represents.
func (p FmdPosition) Flip() FmdPosition {
	return FmdPosition{ForwardStart: p.ReverseStart, ReverseStart: p.ForwardStart, EndOffset: p.EndOffset}
}

// MaskedLength returns the number of forward-interval rows that pass mask.
// A nil mask passes every row.
func (p FmdPosition) MaskedLength(mask *bitvector.BitVector) int64 {
	if p.IsEmpty() {
		return 0
	}
	if mask == nil {
		return p.Length()
	}
	hi := mask.Rank(p.ForwardStart+p.EndOffset, true)
	lo := mask.Rank(p.ForwardStart-1, true)
	return int64(hi - lo)
}

// IsEmptyMasked reports whether no row of the forward interval passes mask.
func (p FmdPosition) IsEmptyMasked(mask *bitvector.BitVector) bool {
	return p.MaskedLength(mask) == 0
}

// FirstMaskedRow returns the lowest-numbered forward-interval row passing
// mask, skipping masked-out rows at the front of the interval (spec.md
// §4.2 step 4).
func (p FmdPosition) FirstMaskedRow(mask *bitvector.BitVector) (int64, bool) {
	if p.IsEmpty() {
		return 0, false
	}
	if mask == nil {
		return p.ForwardStart, true
	}
	row, ok := mask.ValueAfter(uint64(p.ForwardStart))
	if !ok || int64(row) > p.ForwardStart+p.EndOffset {
		return 0, false
	}
	return int64(row), true
}

// Range reports the equivalence class (as the position of the terminating
// 1 bit in ranges) that the entire masked forward interval falls within, if
// any single range subsumes it (spec.md §4.4).
func (p FmdPosition) Range(ranges, mask *bitvector.BitVector) (int64, bool) {
	if p.IsEmpty() {
		return 0, false
	}
	start, ok := p.FirstMaskedRow(mask)
	if !ok {
		return 0, false
	}
	end := p.ForwardStart + p.EndOffset
	if mask != nil {
		last, ok := mask.ValueBefore(uint64(end))
		if !ok || int64(last) < start {
			return 0, false
		}
		end = int64(last)
	}

	startTerm, ok := ranges.ValueAfter(uint64(start))
	if !ok {
		return 0, false
	}
	endTerm, ok := ranges.ValueAfter(uint64(end))
	if !ok || startTerm != endTerm {
		return 0, false
	}
	return int64(startTerm), true
}

// ExtendLeftOnly updates only the forward interval (backward search),
// leaving the reverse interval untouched. The resulting position can only
// be extended leftward or retracted on the right (spec.md §4.1).
func ExtendLeftOnly(bwt *rankbwt.BWT, p FmdPosition, c byte) (FmdPosition, error) {
	if c == 0 {
		return FmdPosition{}, fmt.Errorf("%w: NUL byte", ErrInvalidBase)
	}
	if !isBase(c) {
		return FmdPosition{}, fmt.Errorf("%w: %q", ErrInvalidBase, c)
	}

	start := bwt.PC(c)
	forwardStartRank := bwt.Occ(c, p.ForwardStart-1)
	forwardEndRank := bwt.Occ(c, p.ForwardStart+p.EndOffset) - 1

	return FmdPosition{
		ForwardStart: start + forwardStartRank,
		ReverseStart: p.ReverseStart,
		EndOffset:    forwardEndRank - forwardStartRank,
	}, nil
}

// Extend produces the FmdPosition for pattern c·P (backward) or P·c
// (forward), where p represents P. Forward extension is defined as the
// reverse complement of a backward extension on the flipped position
// (spec.md §4.1).
func Extend(bwt *rankbwt.BWT, p FmdPosition, c byte, backward bool) (FmdPosition, error) {
	if !backward {
		extended, err := Extend(bwt, p.Flip(), complement(c), true)
		if err != nil {
			return FmdPosition{}, err
		}
		return extended.Flip(), nil
	}

	if c == 0 {
		return FmdPosition{}, fmt.Errorf("%w: NUL byte", ErrInvalidBase)
	}
	if !isBase(c) {
		return FmdPosition{}, fmt.Errorf("%w: %q", ErrInvalidBase, c)
	}

	var answers [4]FmdPosition
	for i, b := range bases {
		start := bwt.PC(b)
		forwardStartRank := bwt.Occ(b, p.ForwardStart-1)
		forwardEndRank := bwt.Occ(b, p.ForwardStart+p.EndOffset) - 1
		answers[i] = FmdPosition{
			ForwardStart: start + forwardStartRank,
			EndOffset:    forwardEndRank - forwardStartRank,
		}
	}

	endOfTextLength := p.Length()
	for _, a := range answers {
		endOfTextLength -= a.Length()
	}

	// Reverse sub-intervals are laid out in alphabetical order of the
	// *reverse complement* of each base so they partition the old reverse
	// interval contiguously; for {A,C,G,T} that order is T,G,C,A, the
	// reverse of the forward loop above (spec.md §4.1).
	answers[3].ReverseStart = p.ReverseStart + endOfTextLength
	for i := 2; i >= 0; i-- {
		answers[i].ReverseStart = answers[i+1].ReverseStart + answers[i+1].Length()
	}

	for i, b := range bases {
		if b == c {
			return answers[i], nil
		}
	}
	return FmdPosition{}, fmt.Errorf("%w: %q", ErrInvalidBase, c)
}

// ExtendFast is equivalent to Extend but uses a single FullOcc call at each
// endpoint rather than one Occ call per base, avoiding materializing the
// other three candidate intervals (spec.md §4.1).
func ExtendFast(bwt *rankbwt.BWT, p FmdPosition, c byte, backward bool) (FmdPosition, error) {
	if !backward {
		extended, err := ExtendFast(bwt, p.Flip(), complement(c), true)
		if err != nil {
			return FmdPosition{}, err
		}
		return extended.Flip(), nil
	}
	if c == 0 {
		return FmdPosition{}, fmt.Errorf("%w: NUL byte", ErrInvalidBase)
	}
	if !isBase(c) {
		return FmdPosition{}, fmt.Errorf("%w: %q", ErrInvalidBase, c)
	}

	startRanks := bwt.FullOcc(p.ForwardStart - 1)
	endRanks := bwt.FullOcc(p.ForwardStart + p.EndOffset)

	reverseStart := p.ReverseStart + (endRanks[rankbwt.EndOfText] - startRanks[rankbwt.EndOfText])

	result := FmdPosition{}
	// Walk bases in reverse-complement alphabetical order (T,G,C,A) to
	// match the reverse-interval layout Extend produces.
	for i := len(bases) - 1; i >= 0; i-- {
		b := bases[i]
		length := endRanks[b] - startRanks[b]
		if b == c {
			result.ReverseStart = reverseStart
			result.ForwardStart = bwt.PC(c) + startRanks[c]
			result.EndOffset = length - 1
			return result, nil
		}
		reverseStart += length
	}
	return FmdPosition{}, fmt.Errorf("%w: %q", ErrInvalidBase, c)
}
