package salocate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemBackingFullySampled(t *testing.T) {
	loc := New(NewMemBacking([]int64{6, 5, 3, 1, 0, 4, 2}), 1, nil)
	for row, want := range []int64{6, 5, 3, 1, 0, 4, 2} {
		assert.Equal(t, want, loc.Locate(int64(row)))
	}
}

// ringStepper walks backward through a fixed cyclic BWT row permutation,
// standing in for a real LF-mapping table.
type ringStepper struct {
	lf []int64
}

func (r ringStepper) LF(row int64) int64 { return r.lf[row] }

func TestSparseLocatorWalksToSample(t *testing.T) {
	// Suffix array for "banana\x00" in sorted-rotation order, sampled every
	// other row; unsampled odd rows are resolved by LF-steps through the
	// stand-in table lf.
	full := []int64{6, 5, 3, 1, 0, 4, 2}
	lf := []int64{1, 0, 6, 3, 5, 2, 4}

	sampled := make([]int64, 0)
	for i := 0; i < len(full); i += 2 {
		sampled = append(sampled, full[i])
	}

	loc := New(NewMemBacking(sampled), 2, ringStepper{lf: lf})

	for row := 0; row < len(full); row += 2 {
		require.Equal(t, full[row], loc.Locate(int64(row)))
	}

	// Unsampled row 1 walks one LF-step to sampled row lf[1] = 0, returning
	// that row's sample plus the one step taken, and must terminate rather
	// than loop forever.
	got := loc.Locate(1)
	assert.Equal(t, loc.backing.Get(lf[1]/2)+1, got)
}
