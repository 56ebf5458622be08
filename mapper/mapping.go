// Package mapper implements the mapping state machines that drive an
// FmdIndex to find unique contexts for each query base: one-sided
// left/right search, bidirectional agreement, range mapping, two-sided
// credit search, and k-mismatch extension (spec.md §4.2-§4.6).
package mapper

import "gofmd/fmd"

// Mapping records where a single query base was found to map to, or that
// it could not be mapped. Location is nil for an unmapped result (spec.md
// §9's redesign note: replace the out-parameter/is_mapped-flag pattern with
// an explicit optional field).
type Mapping struct {
	Location *fmd.TextPosition

	// Range is the equivalence-class id this base mapped to, for the
	// range-based mapping entry points (§4.4/§4.5/§4.6). -1 when not
	// mapped to a range.
	Range int64

	LeftContextMax  uint64
	RightContextMax uint64
	LeftMinUnique   uint64
	RightMinUnique  uint64
}

// Unmapped builds a Mapping recording only how much context was attempted.
func Unmapped(leftMax, rightMax uint64) Mapping {
	return Mapping{Range: -1, LeftContextMax: leftMax, RightContextMax: rightMax}
}

// Mapped builds a Mapping to a definite TextPosition, recording equal
// min-unique and maximal contexts on both sides.
func Mapped(loc fmd.TextPosition, leftContext, rightContext uint64) Mapping {
	return Mapping{
		Location:        &loc,
		Range:           -1,
		LeftContextMax:  leftContext,
		RightContextMax: rightContext,
		LeftMinUnique:   leftContext,
		RightMinUnique:  rightContext,
	}
}

// IsMapped reports whether this Mapping names a definite location.
func (m Mapping) IsMapped() bool {
	return m.Location != nil
}

// IsRangeMapped reports whether this Mapping names an equivalence-class
// range, for the range-based entry points (MapRanges, CMap, MisMatchMap)
// that report a Range id rather than a definite Location.
func (m Mapping) IsRangeMapped() bool {
	return m.Range != -1
}

// Flip produces the Mapping for the opposite strand: the location is
// flipped within a contig of the given length and left/right context
// bookkeeping is exchanged.
func (m Mapping) Flip(contigLength uint64) Mapping {
	if !m.IsMapped() {
		return Mapping{
			Range:           m.Range,
			LeftContextMax:  m.RightContextMax,
			RightContextMax: m.LeftContextMax,
			LeftMinUnique:   m.RightMinUnique,
			RightMinUnique:  m.LeftMinUnique,
		}
	}
	flipped := m.Location.Flip(contigLength)
	return Mapping{
		Location:        &flipped,
		Range:           m.Range,
		LeftContextMax:  m.RightContextMax,
		RightContextMax: m.LeftContextMax,
		LeftMinUnique:   m.RightMinUnique,
		RightMinUnique:  m.LeftMinUnique,
	}
}

// Disambiguate combines independent left- and right-mapped results for the
// same query position (spec.md §4.3): if they agree, or one is unmapped,
// use the other; if both are mapped and disagree, the result is unmapped.
// Idempotent. Whether the result is mapped, and to which location, does not
// depend on argument order; the context fields do: when both are unmapped
// or agree the result is left itself, and on disagreement it carries left's
// LeftContextMax and right's RightContextMax, so swapping the arguments can
// change those fields.
func Disambiguate(left, right Mapping) Mapping {
	switch {
	case !left.IsMapped() && !right.IsMapped():
		return left
	case !left.IsMapped():
		return right
	case !right.IsMapped():
		return left
	case *left.Location == *right.Location:
		return left
	default:
		return Unmapped(left.LeftContextMax, right.RightContextMax)
	}
}
