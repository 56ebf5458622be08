// Package lcp implements the longest-common-prefix array used to jump to
// suffix-tree parent intervals during right-retraction (spec.md §4.1).
package lcp

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Array holds, for every BWT row, the length of the longest common prefix
// shared with the previous row in sorted order, plus precomputed
// previous/next-smaller-value indices.
type Array struct {
	values []uint64
	psvs   []uint64
	nsvs   []uint64
}

// New builds an Array directly from precomputed values, psvs and nsvs (all
// must be the same length). Use Build to compute an LCP array from a suffix
// array and text instead.
func New(values, psvs, nsvs []uint64) *Array {
	return &Array{values: values, psvs: psvs, nsvs: nsvs}
}

// Build computes an LCP array (and its PSV/NSV indices) from a suffix array
// over text. This follows the original LCPArray.cpp's pairwise-comparison
// approach: adequate for the small collections exercised directly by tests.
// fmdbuild does not call Build; production scale index files are expected
// to already carry a prebuilt .lcp (spec.md §6) and are simply Loaded.
func Build(suffixArray []int64, text []byte) *Array {
	n := int64(len(suffixArray))
	values := make([]uint64, n)

	// text is treated as circular (a multi-text collection's BWT is the BWT
	// of the rotations of the whole concatenated buffer, each per-text NUL
	// acting as a local separator rather than a single linear terminator),
	// so comparisons wrap via modulo rather than stopping at len(text).
	for i := int64(1); i < n; i++ {
		a, b := suffixArray[i-1], suffixArray[i]
		var l int64
		for l = 0; l < n; l++ {
			if text[(a+l)%n] != text[(b+l)%n] {
				break
			}
		}
		values[i] = uint64(l)
	}

	psvs := make([]uint64, n)
	nsvs := make([]uint64, n)
	for i := int64(0); i < n; i++ {
		psv := uint64(0)
		for j := i - 1; j >= 0; j-- {
			if values[j] < values[i] {
				psv = uint64(j)
				break
			}
		}
		psvs[i] = psv

		nsv := uint64(n)
		for j := i + 1; j < n; j++ {
			if values[j] < values[i] {
				nsv = uint64(j)
				break
			}
		}
		nsvs[i] = nsv
	}

	return &Array{values: values, psvs: psvs, nsvs: nsvs}
}

// Len returns the number of rows this LCP array covers.
func (a *Array) Len() int64 {
	return int64(len(a.values))
}

// ErrOutOfRange is returned when an LCP/PSV/NSV index is at or beyond the
// BWT length (spec.md §7's OutOfRange fatal condition).
var ErrOutOfRange = fmt.Errorf("lcp: index out of range")

// Value returns LCP[index], the shared prefix length with the previous
// suffix in sorted order.
func (a *Array) Value(index int64) (uint64, error) {
	if index < 0 || index >= a.Len() {
		return 0, ErrOutOfRange
	}
	return a.values[index], nil
}

// PSV returns the greatest j < index with LCP[j] < LCP[index], or 0 if none
// exists.
func (a *Array) PSV(index int64) (uint64, error) {
	if index < 0 || index >= a.Len() {
		return 0, ErrOutOfRange
	}
	return a.psvs[index], nil
}

// NSV returns the least j > index with LCP[j] < LCP[index], or Len() if none
// exists.
func (a *Array) NSV(index int64) (uint64, error) {
	if index < 0 || index >= a.Len() {
		return 0, ErrOutOfRange
	}
	return a.nsvs[index], nil
}

// Save writes the .lcp on-disk format from spec.md §6: a little-endian u64
// count N, then three arrays of N u64s (values, psvs, nsvs).
func (a *Array) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lcp: create %s: %w", path, err)
	}
	defer f.Close()

	n := uint64(len(a.values))
	if err := binary.Write(f, binary.LittleEndian, n); err != nil {
		return fmt.Errorf("lcp: write count: %w", err)
	}
	for _, arr := range [][]uint64{a.values, a.psvs, a.nsvs} {
		if err := binary.Write(f, binary.LittleEndian, arr); err != nil {
			return fmt.Errorf("lcp: write array: %w", err)
		}
	}
	return nil
}

// Load reads the .lcp on-disk format written by Save.
func Load(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lcp: open %s: %w", path, err)
	}
	defer f.Close()

	var n uint64
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("lcp: read count: %w", err)
	}

	read := func() ([]uint64, error) {
		arr := make([]uint64, n)
		if err := binary.Read(f, binary.LittleEndian, arr); err != nil {
			return nil, fmt.Errorf("lcp: read array: %w", err)
		}
		return arr, nil
	}

	values, err := read()
	if err != nil {
		return nil, err
	}
	psvs, err := read()
	if err != nil {
		return nil, err
	}
	nsvs, err := read()
	if err != nil {
		return nil, err
	}

	return &Array{values: values, psvs: psvs, nsvs: nsvs}, nil
}
