package mapper

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gofmd/bitvector"
	"gofmd/fmd"
	"gofmd/lcp"
	"gofmd/rankbwt"
	"gofmd/salocate"
)

// testContig is one sequence to build a tiny FmdIndex over, for exercising
// the mapping state machines against hand-checkable examples.
type testContig struct {
	name string
	seq  string
}

// buildTestFmdIndex assembles a full FmdIndex (BWT, LCP, suffix-array
// locator and contig table) from a handful of short sequences, laid out
// exactly as the real on-disk builder would: forward strand, NUL, reverse
// complement, NUL, per contig (spec.md §6). The suffix array is computed by
// brute-force circular rotation sort, adequate at the sizes exercised here.
func buildTestFmdIndex(t *testing.T, contigs []testContig) *fmd.FmdIndex {
	t.Helper()

	var buf []byte
	var records []fmd.Contig
	scaffoldStart := uint64(0)
	for _, c := range contigs {
		records = append(records, fmd.Contig{
			Name:          c.name,
			ScaffoldStart: scaffoldStart,
			Length:        uint64(len(c.seq)),
			GenomeID:      0,
		})
		scaffoldStart += uint64(len(c.seq))

		buf = append(buf, []byte(c.seq)...)
		buf = append(buf, 0)
		buf = append(buf, []byte(ReverseComplement(c.seq))...)
		buf = append(buf, 0)
	}

	n := len(buf)
	sa := make([]int, n)
	for i := range sa {
		sa[i] = i
	}
	rotationLess := func(a, b int) bool {
		for k := 0; k < n; k++ {
			ca := buf[(a+k)%n]
			cb := buf[(b+k)%n]
			if ca != cb {
				return ca < cb
			}
		}
		return false
	}
	sort.Slice(sa, func(i, j int) bool { return rotationLess(sa[i], sa[j]) })

	bwtBytes := make([]byte, n)
	sa64 := make([]int64, n)
	for i, s := range sa {
		bwtBytes[i] = buf[(s-1+n)%n]
		sa64[i] = int64(s)
	}

	bwt := rankbwt.Build(bwtBytes)
	lcpArray := lcp.Build(sa64, buf)
	locator := salocate.New(salocate.NewMemBacking(sa64), 1, nil)

	mask := bitvector.NewBitVector(uint64(n))
	for i := uint64(0); i < uint64(n); i++ {
		mask.Set(i)
	}
	mask.Finish(uint64(n))

	table, err := fmd.NewContigTable(records, []*bitvector.BitVector{mask})
	require.NoError(t, err)

	return fmd.New(bwt, lcpArray, locator, table, nil)
}

// identityRanges builds a ranges bit vector with every row its own
// equivalence class (a 1 bit at every position), so Range-based uniqueness
// checks behave like the exact-location singleton-interval check.
func identityRanges(idx *fmd.FmdIndex) *bitvector.BitVector {
	n := uint64(idx.BWTLength())
	rv := bitvector.NewBitVector(n)
	for i := uint64(0); i < n; i++ {
		rv.Set(i)
	}
	rv.Finish(n)
	return rv
}

// Scenario 1 (spec.md §8): a single contig equal to the query maps each base
// whose right context becomes unique to its own offset. The reference is
// chosen so it is not its own reverse complement ("AAAGGGCC" -> "GGCCCTTT");
// a self-RC reference would occur identically on both strands of the built
// text, so no context would ever become forward-unique. Its suffix "GGCC" is
// its own reverse complement, though, so the right contexts of positions
// 4..7 ("GGCC", "GCC", "CC", "C") occur on both strands and those positions
// stay unmapped; positions 0..3 map to their own offsets.
func TestMapRightSingleContigIdentity(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "AAAGGGCC"}})

	mappings, err := MapRight(idx, "AAAGGGCC", nil, 1)
	require.NoError(t, err)
	require.Len(t, mappings, 8)

	for i, m := range mappings {
		if i >= 4 {
			assert.Falsef(t, m.IsMapped(), "position %d should stay unmapped", i)
			continue
		}
		require.Truef(t, m.IsMapped(), "position %d should be mapped", i)
		assert.Equal(t, fmd.TextPosition{Text: 0, Offset: uint64(i)}, *m.Location)
	}
}

// Scenario 2 (spec.md §8): against a reference of only "AAAA", no
// length-2 context of "AAAT" is unique (every 2-mer straddling the A-run
// recurs), so every position stays unmapped.
func TestMapRightPalindromicRestart(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "AAAA"}})

	mappings, err := MapRight(idx, "AAAT", nil, 2)
	require.NoError(t, err)
	for i, m := range mappings {
		assert.Falsef(t, m.IsMapped(), "position %d should stay unmapped", i)
	}
}

// Scenario 3 (spec.md §8): against a reference that is not its own reverse
// complement, MapRight maps positions 0..3 and MapLeft maps positions 2..7,
// agreeing on the overlap, so MapBoth's disambiguation takes each position
// from whichever side mapped it and matches the plain identity mapping.
func TestMapBothBidirectionalAgreement(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "AAAGGGCC"}})

	mappings, err := MapBoth(idx, "AAAGGGCC", nil, 1)
	require.NoError(t, err)
	require.Len(t, mappings, 8)

	for i, m := range mappings {
		require.Truef(t, m.IsMapped(), "position %d should be mapped", i)
		assert.Equal(t, fmd.TextPosition{Text: 0, Offset: uint64(i)}, *m.Location)
	}
}

// The left contexts of positions 0 and 1 ("A", "AA") recur inside the
// leading "AAA", so those positions stay unmapped; positions 2..7 map to
// their own offsets on the forward strand.
func TestMapLeftIsMapRightOnReverseComplement(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "AAAGGGCC"}})

	left, err := MapLeft(idx, "AAAGGGCC", nil, 1)
	require.NoError(t, err)
	require.Len(t, left, 8)
	for i, m := range left {
		if i < 2 {
			assert.Falsef(t, m.IsMapped(), "position %d should stay unmapped", i)
			continue
		}
		require.Truef(t, m.IsMapped(), "position %d should be mapped", i)
		assert.Equal(t, fmd.TextPosition{Text: 0, Offset: uint64(i)}, *m.Location)
	}
}

func TestMapEmptyQueryReturnsEmptyVector(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "ACGT"}})

	mappings, err := MapRight(idx, "", nil, 1)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

// Scenario 5 (spec.md §8): a single mismatch against an otherwise-unique
// 8bp reference is tolerated under zMax=1 and every position still range-maps.
func TestMisMatchMapToleratesOneMismatch(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "AAAGGGCC"}})
	ranges := identityRanges(idx)

	mappings, err := MisMatchMap(idx, ranges, nil, "AAAGTGCC", 4, 1, false)
	require.NoError(t, err)
	require.Len(t, mappings, 8)
	for i, m := range mappings {
		assert.Truef(t, m.IsRangeMapped(), "position %d should range-map despite the mismatch", i)
	}
}

func TestMisMatchMapSplitModeAgreesWithBulkWhenExact(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "AAAGGGCC"}})
	ranges := identityRanges(idx)

	bulk, err := MisMatchMap(idx, ranges, nil, "AAAGGGCC", 4, 1, false)
	require.NoError(t, err)
	split, err := MisMatchMap(idx, ranges, nil, "AAAGGGCC", 4, 1, true)
	require.NoError(t, err)

	require.Len(t, bulk, len(split))
	for i := range bulk {
		assert.Equal(t, bulk[i].IsRangeMapped(), split[i].IsRangeMapped(), "position %d", i)
	}
}

func TestCMapRangeMapsUniqueCenters(t *testing.T) {
	idx := buildTestFmdIndex(t, []testContig{{name: "c1", seq: "AAAGGGCC"}})
	ranges := identityRanges(idx)

	mappings, err := CMap(idx, ranges, nil, "AAAGGGCC", 1)
	require.NoError(t, err)
	require.Len(t, mappings, 8)
}

func TestDisambiguateIsIdempotentAndCommutative(t *testing.T) {
	loc := fmd.TextPosition{Text: 0, Offset: 3}
	mapped := Mapped(loc, 4, 4)
	unmapped := Unmapped(2, 2)

	assert.Equal(t, mapped, Disambiguate(mapped, mapped))
	assert.Equal(t, unmapped, Disambiguate(unmapped, unmapped))
	assert.Equal(t, Disambiguate(mapped, unmapped), Disambiguate(unmapped, mapped))

	other := Mapped(fmd.TextPosition{Text: 0, Offset: 9}, 4, 4)
	assert.Equal(t, Disambiguate(mapped, other), Disambiguate(other, mapped))
	assert.False(t, Disambiguate(mapped, other).IsMapped())
}

func TestReverseComplementInvolution(t *testing.T) {
	seq := "ACGTTGCA"
	assert.Equal(t, seq, ReverseComplement(ReverseComplement(seq)))
}
