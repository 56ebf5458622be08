package fmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gofmd/bitvector"
)

func writeContigsFile(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.contigs")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadContigsParsesFields(t *testing.T) {
	path := writeContigsFile(t, []string{
		"chr1\t0\t100\t0",
		"chr2\t100\t50\t0",
	})
	contigs, err := LoadContigs(path)
	require.NoError(t, err)
	require.Len(t, contigs, 2)
	assert.Equal(t, Contig{Name: "chr1", ScaffoldStart: 0, Length: 100, GenomeID: 0}, contigs[0])
	assert.Equal(t, Contig{Name: "chr2", ScaffoldStart: 100, Length: 50, GenomeID: 0}, contigs[1])
}

func TestLoadContigsRejectsMalformedLine(t *testing.T) {
	path := writeContigsFile(t, []string{"chr1\t0\t100"})
	_, err := LoadContigs(path)
	assert.ErrorIs(t, err, ErrIO)
}

func TestRawOffsetEncodeDecodeRoundTrip(t *testing.T) {
	contigs := []Contig{
		{Name: "chr1", ScaffoldStart: 0, Length: 4, GenomeID: 0},
		{Name: "chr2", ScaffoldStart: 4, Length: 3, GenomeID: 0},
	}
	mask := bitvector.NewBitVector(1)
	mask.Finish(1)
	table, err := NewContigTable(contigs, []*bitvector.BitVector{mask})
	require.NoError(t, err)

	for text := uint64(0); text < 4; text++ {
		contigLen := contigs[text/2].Length
		for off := uint64(0); off < contigLen; off++ {
			pos := TextPosition{Text: text, Offset: off}
			raw, err := table.EncodeTextPosition(pos)
			require.NoError(t, err)
			decoded, err := table.DecodeRawOffset(raw)
			require.NoError(t, err)
			assert.Equal(t, pos, decoded)
		}
	}
}

func TestDecodeRawOffsetOnSeparatorFails(t *testing.T) {
	contigs := []Contig{{Name: "chr1", ScaffoldStart: 0, Length: 4, GenomeID: 0}}
	mask := bitvector.NewBitVector(1)
	mask.Finish(1)
	table, err := NewContigTable(contigs, []*bitvector.BitVector{mask})
	require.NoError(t, err)

	_, err = table.DecodeRawOffset(4) // the NUL after the forward strand
	assert.ErrorIs(t, err, ErrEndOfTextRow)
}

func TestGenomeOverflowAtLoad(t *testing.T) {
	contigs := []Contig{{Name: "chr1", ScaffoldStart: 0, Length: 4, GenomeID: 5}}
	_, err := NewContigTable(contigs, nil)
	assert.ErrorIs(t, err, ErrGenomeOverflow)
}

func TestTextPositionFlip(t *testing.T) {
	p := TextPosition{Text: 0, Offset: 2}
	flipped := p.Flip(8)
	assert.Equal(t, TextPosition{Text: 1, Offset: 5}, flipped)
	assert.Equal(t, p, flipped.Flip(8))
}
