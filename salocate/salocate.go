// Package salocate implements the sampled-suffix-array locate primitive:
// given a BWT row, recover the row's position in the concatenated text
// collection (spec.md §3's SuffixArrayLocator). Mirrors the teacher's own
// MemSA/MMappedSA split in sa_map.go, generalized with a not-fully-sampled
// mode that walks LF-steps to the nearest sampled row.
package salocate

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/mmap"
)

const sampleWidth = 8 // bytes per stored int64 sample

// Backing is the underlying storage for sampled suffix-array values, either
// fully resident in memory or memory-mapped from disk. This mirrors the
// teacher's SuffixArrayData interface (sa_map.go) exactly.
type Backing interface {
	Get(idx int64) int64
	Len() int64
	Close() error
}

// MemBacking holds every sample resident in a Go slice.
type MemBacking struct {
	data []int64
}

// NewMemBacking wraps an in-memory sample slice, indexed by BWT row / sample
// rate.
func NewMemBacking(data []int64) *MemBacking {
	return &MemBacking{data: data}
}

func (m *MemBacking) Get(idx int64) int64 { return m.data[idx] }
func (m *MemBacking) Len() int64          { return int64(len(m.data)) }
func (m *MemBacking) Close() error        { return nil }

// MMapBacking reads samples from a memory-mapped .ssa file, avoiding a full
// resident copy for indexes too large to load whole. Grounded directly on
// the teacher's MMappedSA (sa_map.go), which reads little-endian int64
// samples out of a golang.org/x/exp/mmap.ReaderAt.
type MMapBacking struct {
	reader *mmap.ReaderAt
}

// OpenMMapBacking memory-maps path, treating it as a flat array of
// little-endian int64 samples.
func OpenMMapBacking(path string) (*MMapBacking, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("salocate: mmap open %s: %w", path, err)
	}
	return &MMapBacking{reader: r}, nil
}

func (m *MMapBacking) Get(idx int64) int64 {
	dest := make([]byte, sampleWidth)
	if _, err := m.reader.ReadAt(dest, idx*sampleWidth); err != nil {
		panic(fmt.Sprintf("salocate: read sample %d: %v", idx, err))
	}
	return int64(binary.LittleEndian.Uint64(dest))
}

func (m *MMapBacking) Len() int64 {
	n := int64(m.reader.Len())
	if n%sampleWidth != 0 {
		panic(fmt.Sprintf("salocate: sample file length %d not a multiple of %d", n, sampleWidth))
	}
	return n / sampleWidth
}

func (m *MMapBacking) Close() error { return m.reader.Close() }

// LFStepper walks one row backward through the same text via LF-mapping,
// the primitive used to resolve an unsampled row to its nearest sampled
// neighbor.
type LFStepper interface {
	LF(row int64) int64
}

// Locator resolves BWT rows to their raw offset in the concatenated text
// collection.
type Locator struct {
	backing    Backing
	sampleRate int64
	stepper    LFStepper
}

// New builds a Locator over backing, sampled every sampleRate rows (1 means
// every row is sampled, matching the SAMPLE_RATE=1 the builder in spec.md §6
// requests by default). stepper resolves unsampled rows.
func New(backing Backing, sampleRate int64, stepper LFStepper) *Locator {
	if sampleRate < 1 {
		sampleRate = 1
	}
	return &Locator{backing: backing, sampleRate: sampleRate, stepper: stepper}
}

// Locate returns the raw offset in the concatenated text collection that
// BWT row corresponds to.
func (l *Locator) Locate(row int64) int64 {
	if l.sampleRate == 1 {
		return l.backing.Get(row)
	}

	steps := int64(0)
	for row%l.sampleRate != 0 {
		row = l.stepper.LF(row)
		steps++
	}
	return l.backing.Get(row/l.sampleRate) + steps
}

// Close releases any resources (e.g. the mmap handle) held by the backing
// store.
func (l *Locator) Close() error {
	return l.backing.Close()
}
