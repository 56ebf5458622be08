package bitvector

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitVectorRankAndValueAfter(t *testing.T) {
	bv := NewBitVector(10)
	for _, i := range []uint64{1, 3, 4, 7} {
		bv.Set(i)
	}
	bv.Finish(10)

	assert.True(t, bv.Get(1))
	assert.False(t, bv.Get(2))

	assert.Equal(t, uint64(0), bv.Rank(0, true))
	assert.Equal(t, uint64(1), bv.Rank(1, true))
	assert.Equal(t, uint64(3), bv.Rank(4, true))
	assert.Equal(t, uint64(4), bv.Rank(9, true))

	pos, ok := bv.ValueAfter(2)
	require.True(t, ok)
	assert.Equal(t, uint64(3), pos)

	pos, ok = bv.ValueAfter(8)
	assert.False(t, ok)
	_ = pos

	pos, ok = bv.ValueBefore(6)
	require.True(t, ok)
	assert.Equal(t, uint64(4), pos)
}

func TestSparseBitVectorMatchesDense(t *testing.T) {
	ones := []uint64{1, 3, 4, 7}
	dense := NewBitVector(10)
	for _, i := range ones {
		dense.Set(i)
	}
	dense.Finish(10)

	sparse := NewSparseBitVector(10, ones)

	for i := int64(0); i < 10; i++ {
		assert.Equal(t, dense.Rank(i, true), sparse.Rank(i, true), "rank mismatch at %d", i)
		assert.Equal(t, dense.Get(uint64(i)), sparse.Get(uint64(i)), "get mismatch at %d", i)
	}

	for _, start := range []uint64{0, 2, 5, 8} {
		dp, dok := dense.ValueAfter(start)
		sp, sok := sparse.ValueAfter(start)
		assert.Equal(t, dok, sok)
		if dok {
			assert.Equal(t, dp, sp)
		}
	}
}

func TestWriteToReadBitVectorRoundTrip(t *testing.T) {
	bv := NewBitVector(13)
	for _, i := range []uint64{0, 5, 6, 12} {
		bv.Set(i)
	}
	bv.Finish(13)

	var buf bytes.Buffer
	_, err := bv.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := ReadBitVector(&buf)
	require.NoError(t, err)
	assert.Equal(t, bv.Size(), loaded.Size())
	for i := uint64(0); i < bv.Size(); i++ {
		assert.Equal(t, bv.Get(i), loaded.Get(i))
	}

	_, err = ReadBitVector(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadBitVectorConcatenatedSequence(t *testing.T) {
	a := NewBitVector(4)
	a.Set(1)
	a.Finish(4)

	b := NewBitVector(6)
	b.Set(0)
	b.Set(5)
	b.Finish(6)

	var buf bytes.Buffer
	_, err := a.WriteTo(&buf)
	require.NoError(t, err)
	_, err = b.WriteTo(&buf)
	require.NoError(t, err)

	first, err := ReadBitVector(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), first.Size())

	second, err := ReadBitVector(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), second.Size())

	_, err = ReadBitVector(&buf)
	assert.Equal(t, io.EOF, err)
}
