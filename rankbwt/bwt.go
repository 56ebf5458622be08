// Package rankbwt implements the rank-queryable BWT primitive the FMD-index
// is built on: per-character prefix counts (the F-column "C-table") and rank
// over the L-column, backed by a wavelet tree.
package rankbwt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	wavelettree "github.com/sekineh/go-watrix"
)

// EndOfText is the sentinel byte used for the implicit end-of-text symbol
// that terminates every text in the BWT's source collection. It sorts before
// every DNA base.
const EndOfText byte = 0

// bases lists the DNA alphabet in the sorted order the F-column is built
// over. EndOfText always sorts first and is handled separately from this
// slice.
var bases = []byte{'A', 'C', 'G', 'T'}

// BWT is a rank-queryable Burrows-Wheeler transform of an FMD-index's text
// collection. It owns a wavelet tree over the BWT bytes (L-column rank) and
// a C-table of cumulative counts (F-column prefix sums).
type BWT struct {
	tree   wavelettree.WaveletTree
	counts map[byte]int64 // per-symbol occurrence count, including EndOfText
	pc     map[byte]int64 // PC[c] = count of symbols strictly less than c
	length int64
}

// Build constructs a BWT from the L-column bytes (the BWT string itself,
// using EndOfText for the implicit text terminators).
func Build(bwtBytes []byte) *BWT {
	builder := wavelettree.NewBuilder()
	counts := make(map[byte]int64)
	for _, b := range bwtBytes {
		builder.PushBack(uint64(b))
		counts[b]++
	}

	return &BWT{
		tree:   builder.Build(),
		counts: counts,
		pc:     computePC(counts),
		length: int64(len(bwtBytes)),
	}
}

func computePC(counts map[byte]int64) map[byte]int64 {
	pc := make(map[byte]int64, len(bases)+1)
	pc[EndOfText] = 0
	running := counts[EndOfText]
	for _, b := range bases {
		pc[b] = running
		running += counts[b]
	}
	return pc
}

// Len returns the number of rows in the BWT (the length of the text
// collection, including one end-of-text symbol per text).
func (b *BWT) Len() int64 {
	return b.length
}

// PC returns the number of BWT positions whose character sorts strictly
// before c (the F-column prefix count).
func (b *BWT) PC(c byte) int64 {
	return b.pc[c]
}

// Occ returns the number of occurrences of c in BWT positions [0, i]
// (inclusive). Occ(c, -1) is defined to be 0.
func (b *BWT) Occ(c byte, i int64) int64 {
	if i < 0 {
		return 0
	}
	if i >= b.length {
		i = b.length - 1
	}
	return int64(b.tree.Rank(uint64(i+1), uint64(c)))
}

// FullOcc returns the rank of every alphabet symbol (including EndOfText) at
// position i in one call, mirroring the original FMDIndex::extendFast's use
// of AlphaCount64 to avoid four separate wavelet-tree descents.
func (b *BWT) FullOcc(i int64) map[byte]int64 {
	out := make(map[byte]int64, len(bases)+1)
	out[EndOfText] = b.Occ(EndOfText, i)
	for _, c := range bases {
		out[c] = b.Occ(c, i)
	}
	return out
}

// Char returns the BWT character at row i.
func (b *BWT) Char(i int64) byte {
	// The wavelet tree doesn't expose direct access, so recover it from the
	// rank delta between i and i-1: exactly one symbol's rank increases.
	before := b.FullOcc(i - 1)
	after := b.FullOcc(i)
	for c, n := range after {
		if n != before[c] {
			return c
		}
	}
	panic(fmt.Sprintf("rankbwt: row %d has no associated character", i))
}

// Save persists the BWT to two files under the given basename: the wavelet
// tree's own binary marshal form, and a small header of per-symbol counts.
func (b *BWT) Save(basename string) error {
	treeBytes, err := b.tree.MarshalBinary()
	if err != nil {
		return fmt.Errorf("rankbwt: marshal wavelet tree: %w", err)
	}
	if err := os.WriteFile(basename+".wt", treeBytes, 0o644); err != nil {
		return fmt.Errorf("rankbwt: write wavelet tree: %w", err)
	}

	f, err := os.Create(basename + ".counts")
	if err != nil {
		return fmt.Errorf("rankbwt: create counts file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	symbols := append([]byte{EndOfText}, bases...)
	for _, c := range symbols {
		if err := binary.Write(w, binary.LittleEndian, b.counts[c]); err != nil {
			return fmt.Errorf("rankbwt: write counts: %w", err)
		}
	}
	return w.Flush()
}

// Load reconstructs a BWT previously written with Save.
func Load(basename string) (*BWT, error) {
	treeBytes, err := os.ReadFile(basename + ".wt")
	if err != nil {
		return nil, fmt.Errorf("rankbwt: read wavelet tree: %w", err)
	}

	tree := wavelettree.New()
	if err := tree.UnmarshalBinary(treeBytes); err != nil {
		return nil, fmt.Errorf("rankbwt: unmarshal wavelet tree: %w", err)
	}

	f, err := os.Open(basename + ".counts")
	if err != nil {
		return nil, fmt.Errorf("rankbwt: open counts file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	counts := make(map[byte]int64)
	symbols := append([]byte{EndOfText}, bases...)
	var length int64
	for _, c := range symbols {
		var n int64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("rankbwt: read counts: %w", err)
		}
		counts[c] = n
		length += n
	}

	return &BWT{
		tree:   tree,
		counts: counts,
		pc:     computePC(counts),
		length: length,
	}, nil
}
