// Package credit implements the post-mapping disambiguation and
// credit-propagation filter: it reconciles independently produced
// left-mapped and right-mapped results for a query, then fills interior
// positions between a left and right sentinel from neighboring bases whose
// own contexts reach across the gap (spec.md §4.7). Grounded on the
// original CreditFilter2.cpp.
package credit

import (
	"gofmd/bitvector"
	"gofmd/fmd"
	"gofmd/mapper"
)

// Filter holds the index and equivalence-class/mask state the sentinel
// search needs to re-run mismatch-tolerant uniqueness checks.
type Filter struct {
	Index  *fmd.FmdIndex
	Ranges *bitvector.BitVector
	Mask   *bitvector.BitVector
	ZMax   int
}

// Run reconciles left and right (produced by mapper.MapLeft/mapper.MapRight
// over the same query) and returns the rewritten mapping vector: positions
// where left and right agree or only one is mapped keep that answer;
// disagreements are unmapped unless credit propagation can resolve them
// from confident neighbors (spec.md §4.7).
func (f *Filter) Run(left, right []mapper.Mapping, query string) []mapper.Mapping {
	n := len(query)
	disambiguated := make([]mapper.Mapping, n)
	for i := range disambiguated {
		disambiguated[i] = mapper.Disambiguate(left[i], right[i])
	}

	leftSentinel, ok := f.findLeftSentinel(left, disambiguated, query)
	if !ok {
		return disambiguated
	}
	rightSentinel, ok := f.findRightSentinel(right, disambiguated, query)
	if !ok {
		return disambiguated
	}
	if rightSentinel <= leftSentinel {
		return disambiguated
	}

	maxLeft, maxRight := contextMaxima(disambiguated)

	for i := leftSentinel + 1; i < rightSentinel; i++ {
		if disambiguated[i].IsMapped() {
			continue
		}
		if loc, ok := implyPosition(disambiguated, i, maxLeft, maxRight); ok {
			credited := disambiguated[i]
			credited.Location = &loc
			disambiguated[i] = credited
		}
	}

	return disambiguated
}

// findLeftSentinel finds the smallest i such that left[i] and
// disambiguated[i] are both mapped and query[i-L+1..i] (L =
// disambiguated[i].LeftMinUnique) is itself found uniquely within ZMax
// mismatches.
func (f *Filter) findLeftSentinel(left, disambiguated []mapper.Mapping, query string) (int, bool) {
	for i := 0; i < len(query); i++ {
		if !left[i].IsMapped() || !disambiguated[i].IsMapped() {
			continue
		}
		l := int(disambiguated[i].LeftMinUnique)
		if l == 0 || i+1 < l {
			continue
		}
		substr := query[i+1-l : i+1]
		if mapper.UniqueRangeWithMismatches(f.Index, f.Ranges, f.Mask, substr, f.ZMax) {
			return i, true
		}
	}
	return 0, false
}

// findRightSentinel is findLeftSentinel's mirror: the largest i such that
// right[i]/disambiguated[i] are mapped and query[i..i+R-1] (R =
// disambiguated[i].RightMinUnique) is found uniquely within ZMax
// mismatches.
func (f *Filter) findRightSentinel(right, disambiguated []mapper.Mapping, query string) (int, bool) {
	for i := len(query) - 1; i >= 0; i-- {
		if !right[i].IsMapped() || !disambiguated[i].IsMapped() {
			continue
		}
		r := int(disambiguated[i].RightMinUnique)
		if r == 0 || i+r > len(query) {
			continue
		}
		substr := query[i : i+r]
		if mapper.UniqueRangeWithMismatchesRight(f.Index, f.Ranges, f.Mask, substr, f.ZMax) {
			return i, true
		}
	}
	return 0, false
}

func contextMaxima(m []mapper.Mapping) (maxLeft, maxRight uint64) {
	for _, x := range m {
		if x.LeftContextMax > maxLeft {
			maxLeft = x.LeftContextMax
		}
		if x.RightContextMax > maxRight {
			maxRight = x.RightContextMax
		}
	}
	return
}

// implyPosition looks for mapped neighbors of i whose recorded max context
// reaches across to i, and derives the TextPosition their context implies
// for i by adding the signed base offset. Neighbors to the left whose
// right-extending context reaches i, and neighbors to the right whose
// left-extending context reaches i, are collected as two independent sets;
// each set must be internally consistent, and if both sets are nonempty
// they must agree, for i to be credited (spec.md §4.7 step 5).
//
// A context of length RightContextMax anchored at j only reaches as far as
// j+RightContextMax-1, so the neighbor is skipped when RightContextMax-1 is
// less than the distance to i, not RightContextMax itself
// (CreditFilter2.cpp's getRightMaxContext()-1 < i-j check).
func implyPosition(m []mapper.Mapping, i int, maxLeft, maxRight uint64) (fmd.TextPosition, bool) {
	var fromLeft, fromRight []fmd.TextPosition

	lo := i - int(maxRight)
	if lo < 0 {
		lo = 0
	}
	for j := i - 1; j >= lo; j-- {
		distance := uint64(i - j)
		if !m[j].IsMapped() || m[j].RightContextMax == 0 || m[j].RightContextMax-1 < distance {
			continue
		}
		loc := *m[j].Location
		loc.Offset += distance
		fromLeft = append(fromLeft, loc)
	}

	hi := i + int(maxLeft)
	if hi >= len(m) {
		hi = len(m) - 1
	}
	for j := i + 1; j <= hi; j++ {
		distance := uint64(j - i)
		if !m[j].IsMapped() || m[j].LeftContextMax == 0 || m[j].LeftContextMax-1 < distance {
			continue
		}
		loc := *m[j].Location
		loc.Offset -= distance
		fromRight = append(fromRight, loc)
	}

	leftPos, leftOK := consensus(fromLeft)
	rightPos, rightOK := consensus(fromRight)

	switch {
	case leftOK && rightOK:
		if leftPos == rightPos {
			return leftPos, true
		}
		return fmd.TextPosition{}, false
	case leftOK:
		return leftPos, true
	case rightOK:
		return rightPos, true
	default:
		return fmd.TextPosition{}, false
	}
}

func consensus(positions []fmd.TextPosition) (fmd.TextPosition, bool) {
	if len(positions) == 0 {
		return fmd.TextPosition{}, false
	}
	first := positions[0]
	for _, p := range positions[1:] {
		if p != first {
			return fmd.TextPosition{}, false
		}
	}
	return first, true
}
