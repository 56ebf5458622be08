package mapper

import (
	"gofmd/bitvector"
	"gofmd/fmd"
)

var dnaBases = []byte{'A', 'C', 'G', 'T'}

// mismatchState is one surviving search branch: a position and its
// accumulated mismatch count against the query, 0 <= mismatches <= zMax
// (spec.md §4.6).
type mismatchState struct {
	pos        fmd.FmdPosition
	mismatches int
}

// misMatchExtend extends every state by c (same mismatch count) and, for
// states under the mismatch budget, by every other base (one more
// mismatch). Empty resulting intervals are dropped.
func misMatchExtend(idx *fmd.FmdIndex, states []mismatchState, c byte, backward bool, zMax int, mask *bitvector.BitVector) ([]mismatchState, error) {
	var out []mismatchState
	for _, s := range states {
		next, err := idx.Extend(s.pos, c, backward)
		if err != nil {
			return nil, err
		}
		if !next.IsEmptyMasked(mask) {
			out = append(out, mismatchState{pos: next, mismatches: s.mismatches})
		}

		if s.mismatches >= zMax {
			continue
		}
		for _, b := range dnaBases {
			if b == c {
				continue
			}
			next, err := idx.Extend(s.pos, b, backward)
			if err != nil {
				return nil, err
			}
			if !next.IsEmptyMasked(mask) {
				out = append(out, mismatchState{pos: next, mismatches: s.mismatches + 1})
			}
		}
	}
	return out, nil
}

// misMatchProbe extends every state only via its mismatch branches (not the
// exact-match branch), used by split mode to check whether a competing
// mismatched explanation exists before committing to the current context.
func misMatchProbe(idx *fmd.FmdIndex, states []mismatchState, c byte, backward bool, zMax int, mask *bitvector.BitVector) ([]mismatchState, error) {
	var out []mismatchState
	for _, s := range states {
		if s.mismatches >= zMax {
			continue
		}
		for _, b := range dnaBases {
			if b == c {
				continue
			}
			next, err := idx.Extend(s.pos, b, backward)
			if err != nil {
				return nil, err
			}
			if !next.IsEmptyMasked(mask) {
				out = append(out, mismatchState{pos: next, mismatches: s.mismatches + 1})
			}
		}
	}
	return out, nil
}

func rangeUniqueAmong(states []mismatchState, ranges, mask *bitvector.BitVector) (int64, bool) {
	if len(states) != 1 {
		return 0, false
	}
	return states[0].pos.Range(ranges, mask)
}

// UniqueRangeWithMismatches reports whether substring, searched right-to-left
// (a left context, as MapRight consumes it) with up to zMax mismatches,
// survives to a single range-unique hit. Used by the credit filter's
// sentinel search (spec.md §4.7 step 2).
func UniqueRangeWithMismatches(idx *fmd.FmdIndex, ranges, mask *bitvector.BitVector, substring string, zMax int) bool {
	if len(substring) == 0 {
		return false
	}
	states := []mismatchState{{pos: idx.Covering()}}
	for i := len(substring) - 1; i >= 0; i-- {
		var err error
		states, err = misMatchExtend(idx, states, substring[i], true, zMax, mask)
		if err != nil || len(states) == 0 {
			return false
		}
	}
	_, ok := rangeUniqueAmong(states, ranges, mask)
	return ok
}

// UniqueRangeWithMismatchesRight is UniqueRangeWithMismatches for a right
// context: it searches the reverse complement of substring, mirroring how
// MapLeft is built from MapRight over the reverse complement of the query.
func UniqueRangeWithMismatchesRight(idx *fmd.FmdIndex, ranges, mask *bitvector.BitVector, substring string, zMax int) bool {
	return UniqueRangeWithMismatches(idx, ranges, mask, ReverseComplement(substring), zMax)
}

// MisMatchMap mirrors MapRanges but swaps the extension primitive for one
// tolerating up to zMax mismatches per branch (spec.md §4.6). When split is
// true, each step first probes for competing mismatched explanations and
// restarts the search at the current position if any survive; in bulk mode
// exact and mismatch extensions are combined in a single step.
//
// The uniqueness check is performed only after states has been freshly
// recomputed for the current position on every path — deferring it this
// way avoids the "starting over" branch using a range value computed
// before reassignment on a prior iteration.
func MisMatchMap(idx *fmd.FmdIndex, ranges, mask *bitvector.BitVector, query string, minContext, zMax int, split bool) ([]Mapping, error) {
	mappings := make([]Mapping, len(query))
	if len(query) == 0 {
		return mappings, nil
	}

	var states []mismatchState
	patternLength := int64(0)

	restart := func(c byte) error {
		fresh, err := misMatchExtend(idx, []mismatchState{{pos: idx.Covering(), mismatches: 0}}, c, true, zMax, mask)
		if err != nil {
			return err
		}
		states = fresh
		patternLength = 1
		return nil
	}

	for i := len(query) - 1; i >= 0; i-- {
		c := query[i]

		switch {
		case len(states) == 0:
			if err := restart(c); err != nil {
				return nil, err
			}

		case split:
			probe, err := misMatchProbe(idx, states, c, true, zMax, mask)
			if err != nil {
				return nil, err
			}
			if len(probe) > 0 {
				if err := restart(c); err != nil {
					return nil, err
				}
			} else {
				extended, err := misMatchExtend(idx, states, c, true, zMax, mask)
				if err != nil {
					return nil, err
				}
				states = extended
				patternLength++
			}

		default:
			extended, err := misMatchExtend(idx, states, c, true, zMax, mask)
			if err != nil {
				return nil, err
			}
			states = extended
			patternLength++
		}

		if len(states) == 0 {
			mappings[i] = Unmapped(uint64(patternLength), uint64(patternLength))
			patternLength = 0
			continue
		}

		if r, ok := rangeUniqueAmong(states, ranges, mask); ok && patternLength >= int64(minContext) {
			mappings[i] = Mapping{
				Range:           r,
				LeftContextMax:  uint64(patternLength),
				RightContextMax: uint64(patternLength),
				LeftMinUnique:   uint64(patternLength),
				RightMinUnique:  uint64(patternLength),
			}
		} else {
			mappings[i] = Unmapped(uint64(patternLength), uint64(patternLength))
		}
	}

	return mappings, nil
}
