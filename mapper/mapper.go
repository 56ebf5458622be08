package mapper

import (
	"fmt"

	"gofmd/bitvector"
	"gofmd/fmd"
)

func isBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T':
		return true
	default:
		return false
	}
}

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

// ReverseComplement returns the reverse complement of a DNA sequence.
func ReverseComplement(query string) string {
	out := make([]byte, len(query))
	for i := 0; i < len(query); i++ {
		out[len(query)-1-i] = complement(query[i])
	}
	return string(out)
}

// MapRight greedily searches for, at every query position, the shortest
// leftward context that uniquely identifies a reference location, using
// backward extension with right-retraction on failure (spec.md §4.2).
func MapRight(idx *fmd.FmdIndex, query string, mask *bitvector.BitVector, minContext int) ([]Mapping, error) {
	mappings := make([]Mapping, len(query))
	if len(query) == 0 {
		return mappings, nil
	}

	search := idx.Covering()
	patternLength := int64(0)

	for i := len(query) - 1; i >= 0; i-- {
		c := query[i]

		extended, err := idx.ExtendLeftOnly(search, c)
		if err != nil {
			return nil, err
		}

		for extended.IsEmptyMasked(mask) {
			if patternLength == 0 {
				return nil, fmt.Errorf("%w: character %q not present under the active mask", fmd.ErrMissingAlphabet, c)
			}
			var newLength int64
			search, newLength = idx.RetractRightOnly(search)
			patternLength = newLength

			extended, err = idx.ExtendLeftOnly(search, c)
			if err != nil {
				return nil, err
			}
		}

		search = extended
		patternLength++

		if search.MaskedLength(mask) == 1 && patternLength >= int64(minContext) {
			row, ok := search.FirstMaskedRow(mask)
			if !ok {
				return nil, fmt.Errorf("fmd: masked length 1 but no row found")
			}
			loc, err := idx.Locate(row)
			if err != nil {
				return nil, err
			}
			mappings[i] = Mapped(loc, uint64(patternLength), uint64(patternLength))
		} else {
			mappings[i] = Unmapped(uint64(patternLength), uint64(patternLength))
		}
	}

	return mappings, nil
}

// MapLeft maps the reverse complement of query on the right, then flips
// each mapped location back onto the original strand (spec.md §4.2).
func MapLeft(idx *fmd.FmdIndex, query string, mask *bitvector.BitVector, minContext int) ([]Mapping, error) {
	rc := ReverseComplement(query)
	mappings, err := MapRight(idx, rc, mask, minContext)
	if err != nil {
		return nil, err
	}

	reverseMappings(mappings)

	for i := range mappings {
		if !mappings[i].IsMapped() {
			continue
		}
		contigIndex := int(mappings[i].Location.Text / 2)
		contigLength := idx.Contigs().Contig(contigIndex).Length
		flipped := *mappings[i].Location
		flipped = flipped.Flip(contigLength)
		mappings[i].Location = &flipped
	}

	return mappings, nil
}

func reverseMappings(m []Mapping) {
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
}

// MapBoth runs MapRight and MapLeft over the same query and disambiguates
// their results position by position (spec.md §4.3).
func MapBoth(idx *fmd.FmdIndex, query string, mask *bitvector.BitVector, minContext int) ([]Mapping, error) {
	right, err := MapRight(idx, query, mask, minContext)
	if err != nil {
		return nil, err
	}
	left, err := MapLeft(idx, query, mask, minContext)
	if err != nil {
		return nil, err
	}
	if len(left) != len(right) {
		return nil, fmt.Errorf("mapper: left/right mapping length mismatch (%d vs %d)", len(left), len(right))
	}

	combined := make([]Mapping, len(left))
	for i := range combined {
		combined[i] = Disambiguate(left[i], right[i])
	}
	return combined, nil
}

// MapRanges is analogous to MapRight, but the uniqueness predicate is
// membership in a single entry of a ranges equivalence-class bit vector
// rather than an exact singleton TextPosition (spec.md §4.4). addCtx
// requires that many further characters of context after the interval
// first becomes range-unique before accepting the mapping, guarding
// against spurious uniqueness from short contexts.
func MapRanges(idx *fmd.FmdIndex, ranges, mask *bitvector.BitVector, query string, minContext, addCtx int) ([]Mapping, error) {
	mappings := make([]Mapping, len(query))
	if len(query) == 0 {
		return mappings, nil
	}

	search := idx.Covering()
	patternLength := int64(0)
	uniqueSince := int64(-1)

	for i := len(query) - 1; i >= 0; i-- {
		c := query[i]

		extended, err := idx.ExtendLeftOnly(search, c)
		if err != nil {
			return nil, err
		}

		for extended.IsEmptyMasked(mask) {
			if patternLength == 0 {
				return nil, fmt.Errorf("%w: character %q not present under the active mask", fmd.ErrMissingAlphabet, c)
			}
			search, patternLength = idx.RetractRightOnly(search)
			uniqueSince = -1

			extended, err = idx.ExtendLeftOnly(search, c)
			if err != nil {
				return nil, err
			}
		}

		search = extended
		patternLength++

		rangeID, ok := search.Range(ranges, mask)
		if !ok {
			uniqueSince = -1
			mappings[i] = Unmapped(uint64(patternLength), uint64(patternLength))
			continue
		}

		if uniqueSince == -1 {
			uniqueSince = patternLength
		}
		extraContext := patternLength - uniqueSince

		if patternLength >= int64(minContext) && extraContext >= int64(addCtx) {
			mappings[i] = Mapping{
				Range:           rangeID,
				LeftContextMax:  uint64(patternLength),
				RightContextMax: uint64(patternLength),
				LeftMinUnique:   uint64(uniqueSince),
				RightMinUnique:  uint64(uniqueSince),
			}
		} else {
			mappings[i] = Unmapped(uint64(patternLength), uint64(patternLength))
		}
	}

	return mappings, nil
}

// CMap maps every query position independently using a two-sided
// ("credit") greedy search: starting from the single-character interval at
// that position, alternately extending right and left until the
// accumulated context uniquely identifies a range or the whole query has
// been consumed (spec.md §4.5).
func CMap(idx *fmd.FmdIndex, ranges, mask *bitvector.BitVector, query string, minContext int) ([]Mapping, error) {
	mappings := make([]Mapping, len(query))
	for i := range query {
		m, err := cMapPosition(idx, ranges, mask, query, i, minContext)
		if err != nil {
			return nil, err
		}
		mappings[i] = m
	}
	return mappings, nil
}

func cMapPosition(idx *fmd.FmdIndex, ranges, mask *bitvector.BitVector, query string, i, minContext int) (Mapping, error) {
	if !isBase(query[i]) {
		return Unmapped(0, 0), nil
	}

	pos, err := idx.CharPosition(query[i])
	if err != nil {
		return Unmapped(0, 0), err
	}
	if pos.IsEmptyMasked(mask) {
		return Unmapped(1, 1), nil
	}

	characters := int64(1)
	maxCharacters := int64(1)

	if r, ok := pos.Range(ranges, mask); ok && characters >= int64(minContext) {
		return rangeMapping(r, maxCharacters), nil
	}

	left, right := i, i
	canLeft := left > 0
	canRight := right < len(query)-1
	extendRight := true

	for canLeft || canRight {
		var c byte
		var backward bool
		switch {
		case extendRight && canRight:
			right++
			c, backward = query[right], false
		case canLeft:
			left--
			c, backward = query[left], true
		case canRight:
			right++
			c, backward = query[right], false
		default:
			return Unmapped(uint64(maxCharacters), uint64(maxCharacters)), nil
		}

		extended, err := idx.Extend(pos, c, backward)
		maxCharacters++
		if err != nil || extended.IsEmptyMasked(mask) {
			if backward {
				canLeft = false
			} else {
				canRight = false
			}
		} else {
			pos = extended
			characters++
			// Per spec.md §9's open question on characters vs.
			// maxCharacters precedence: once a side is exhausted,
			// further probes past it don't extend context, so we report
			// maxCharacters (total bases examined) consistently as both
			// bookkeeping fields here.
			if r, ok := pos.Range(ranges, mask); ok && characters >= int64(minContext) {
				return rangeMapping(r, maxCharacters), nil
			}
		}

		canLeft = canLeft && left > 0
		canRight = canRight && right < len(query)-1
		extendRight = !extendRight
	}

	return Unmapped(uint64(maxCharacters), uint64(maxCharacters)), nil
}

func rangeMapping(r int64, context int64) Mapping {
	return Mapping{
		Range:           r,
		LeftContextMax:  uint64(context),
		RightContextMax: uint64(context),
		LeftMinUnique:   uint64(context),
		RightMinUnique:  uint64(context),
	}
}
