package rankbwt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPCOrdersEndOfTextBeforeBases(t *testing.T) {
	// Two end-of-text rows, one A, three C, one G, two T.
	bwt := Build([]byte{EndOfText, EndOfText, 'A', 'C', 'C', 'C', 'G', 'T', 'T'})

	assert.Equal(t, int64(9), bwt.Len())
	assert.Equal(t, int64(0), bwt.PC(EndOfText))
	assert.Equal(t, int64(2), bwt.PC('A'))
	assert.Equal(t, int64(3), bwt.PC('C'))
	assert.Equal(t, int64(6), bwt.PC('G'))
	assert.Equal(t, int64(7), bwt.PC('T'))
}

func TestOccCountsOccurrencesUpToAndIncluding(t *testing.T) {
	bwt := Build([]byte{'A', 'C', 'A', 'G', 'A', 'T'})

	assert.Equal(t, int64(0), bwt.Occ('A', -1))
	assert.Equal(t, int64(1), bwt.Occ('A', 0))
	assert.Equal(t, int64(1), bwt.Occ('A', 1))
	assert.Equal(t, int64(3), bwt.Occ('A', 5))
	assert.Equal(t, int64(0), bwt.Occ('T', 4))
	assert.Equal(t, int64(1), bwt.Occ('T', 5))
}

func TestFullOccMatchesIndividualOcc(t *testing.T) {
	bwt := Build([]byte{'A', 'C', 'G', 'T', EndOfText, 'A'})

	full := bwt.FullOcc(3)
	assert.Equal(t, bwt.Occ(EndOfText, 3), full[EndOfText])
	assert.Equal(t, bwt.Occ('A', 3), full['A'])
	assert.Equal(t, bwt.Occ('C', 3), full['C'])
	assert.Equal(t, bwt.Occ('G', 3), full['G'])
	assert.Equal(t, bwt.Occ('T', 3), full['T'])
}

func TestCharRecoversEachRowsSymbol(t *testing.T) {
	bytes := []byte{'G', 'A', EndOfText, 'T', 'C', 'A'}
	bwt := Build(bytes)

	for i, want := range bytes {
		assert.Equal(t, want, bwt.Char(int64(i)), "row %d", i)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	bwt := Build([]byte{'A', 'C', 'G', 'T', EndOfText, 'A', 'C', EndOfText, 'T'})

	basename := filepath.Join(t.TempDir(), "index")
	require.NoError(t, bwt.Save(basename))

	loaded, err := Load(basename)
	require.NoError(t, err)

	assert.Equal(t, bwt.Len(), loaded.Len())
	for _, c := range []byte{EndOfText, 'A', 'C', 'G', 'T'} {
		assert.Equal(t, bwt.PC(c), loaded.PC(c), "PC(%c)", c)
	}
	for i := int64(0); i < bwt.Len(); i++ {
		assert.Equal(t, bwt.Char(i), loaded.Char(i), "row %d", i)
	}
}
