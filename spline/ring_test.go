package spline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(v float64) []float64 { return []float64{v} }

func TestRing_PushBack_FillsInOrder(t *testing.T) {
	r := NewRing(1)
	for i := 1; i <= 3; i++ {
		require.NoError(t, r.PushBack(float64(i), pt(float64(i*10))))
	}

	assert.Equal(t, 3, r.Filled())
	assert.Equal(t, 0, r.Head())
	assert.False(t, r.Full())

	for i := 0; i < 3; i++ {
		vp, ok := r.At(i)
		require.True(t, ok)
		assert.Equal(t, float64(i+1), vp.DurationS)
		assert.Equal(t, float64((i+1)*10), vp.Positions[0])
	}

	_, ok := r.At(3)
	assert.False(t, ok, "index past filled must not resolve")
}

func TestRing_PushBack_OverflowDropsOldest(t *testing.T) {
	r := NewRing(1)
	for i := 1; i <= 5; i++ {
		require.NoError(t, r.PushBack(float64(i), pt(float64(i))))
	}

	require.Equal(t, 4, r.Filled())
	assert.Equal(t, 1, r.Head())
	for i := 0; i < 4; i++ {
		vp, ok := r.At(i)
		require.True(t, ok)
		assert.Equal(t, float64(i+2), vp.Positions[0], "logical %d", i)
	}
}

func TestRing_PushBack_HeadWrapsAround(t *testing.T) {
	r := NewRing(1)
	seen := map[int]int{}
	for i := 0; i < 4+2*BufferSize; i++ {
		require.NoError(t, r.PushBack(1, pt(float64(i))))
		if r.Full() {
			seen[r.Head()]++
		}
	}
	for slot := 0; slot < BufferSize; slot++ {
		assert.GreaterOrEqual(t, seen[slot], 2, "slot %d", slot)
	}

	vp, ok := r.At(3)
	require.True(t, ok)
	assert.Equal(t, float64(4+2*BufferSize-1), vp.Positions[0])
}

func TestRing_PushBack_CopiesPositions(t *testing.T) {
	r := NewRing(2)
	in := []float64{1, 2}
	require.NoError(t, r.PushBack(1, in))
	in[0] = 99

	vp, _ := r.At(0)
	assert.Equal(t, []float64{1, 2}, vp.Positions)
}

func TestRing_DimensionMismatch(t *testing.T) {
	r := NewRing(2)
	require.NoError(t, r.PushBack(1, []float64{0, 0}))

	assert.ErrorIs(t, r.PushBack(1, []float64{1}), ErrDimensionMismatch)
	assert.ErrorIs(t, r.PushFront(1, []float64{1, 2, 3}), ErrDimensionMismatch)
	assert.ErrorIs(t, r.OverrideAt(0, 1, []float64{1}), ErrDimensionMismatch)
	assert.Equal(t, 1, r.Filled())
}

func TestRing_PushFront(t *testing.T) {
	t.Run("empty behaves as push back with clamped duration", func(t *testing.T) {
		r := NewRing(1)
		require.NoError(t, r.PushFront(0, pt(7)))
		assert.Equal(t, 1, r.Filled())
		vp, ok := r.At(0)
		require.True(t, ok)
		assert.Equal(t, Epsilon, vp.DurationS)
		assert.Equal(t, 7.0, vp.Positions[0])
	})

	t.Run("prepends and moves head back", func(t *testing.T) {
		r := NewRing(1)
		require.NoError(t, r.PushBack(1, pt(1)))
		require.NoError(t, r.PushBack(1, pt(2)))
		require.NoError(t, r.PushFront(2, pt(0)))

		assert.Equal(t, 3, r.Filled())
		assert.Equal(t, 3, r.Head())
		for i, want := range []float64{0, 1, 2} {
			vp, ok := r.At(i)
			require.True(t, ok)
			assert.Equal(t, want, vp.Positions[0])
		}
	})

	t.Run("full ring drops newest", func(t *testing.T) {
		r := NewRing(1)
		for i := 1; i <= 4; i++ {
			require.NoError(t, r.PushBack(1, pt(float64(i))))
		}
		require.NoError(t, r.PushFront(1, pt(0)))

		assert.Equal(t, 4, r.Filled())
		for i, want := range []float64{0, 1, 2, 3} {
			vp, ok := r.At(i)
			require.True(t, ok)
			assert.Equal(t, want, vp.Positions[0])
		}
	})
}

func TestRing_OverrideAt(t *testing.T) {
	r := NewRing(1)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.PushBack(1, pt(float64(i))))
	}

	require.NoError(t, r.OverrideAt(1, -5, pt(42)))
	vp, _ := r.At(1)
	assert.Equal(t, 42.0, vp.Positions[0])
	assert.Equal(t, Epsilon, vp.DurationS)

	before := r.String()
	assert.ErrorIs(t, r.OverrideAt(3, 1, pt(1)), ErrInvalidIndex)
	assert.ErrorIs(t, r.OverrideAt(-1, 1, pt(1)), ErrInvalidIndex)
	assert.Equal(t, before, r.String(), "failed override must not mutate")
}

func TestRing_SetMinMiddleDuration(t *testing.T) {
	r := NewRing(1)
	require.NoError(t, r.PushBack(0, pt(0)))
	require.NoError(t, r.PushBack(0, pt(0)))
	assert.ErrorIs(t, r.SetMinMiddleDuration(1), ErrInsufficientPoints)

	require.NoError(t, r.PushBack(0.5, pt(1)))
	require.NoError(t, r.SetMinMiddleDuration(2))
	vp, _ := r.At(2)
	assert.Equal(t, 2.0, vp.DurationS)

	require.NoError(t, r.SetMinMiddleDuration(1))
	vp, _ = r.At(2)
	assert.Equal(t, 2.0, vp.DurationS, "never lowers")
}

func TestRing_Reset(t *testing.T) {
	r := NewRing(1)
	for i := 0; i < 6; i++ {
		require.NoError(t, r.PushBack(1, pt(float64(i))))
	}
	r.Reset()

	assert.Equal(t, 0, r.Filled())
	assert.Equal(t, 0, r.Head())
	_, ok := r.At(0)
	assert.False(t, ok)
	assert.Contains(t, r.String(), "[0] invalid")
}

func TestRing_NoAllocationAfterConstruction(t *testing.T) {
	r := NewRing(3)
	p := []float64{1, 2, 3}
	allocs := testing.AllocsPerRun(100, func() {
		_ = r.PushBack(1, p)
		_ = r.PushFront(1, p)
		_ = r.OverrideAt(0, 1, p)
	})
	assert.Zero(t, allocs)
}
