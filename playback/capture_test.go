package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_AddRemoveClear(t *testing.T) {
	c := NewCapture()
	assert.ErrorIs(t, c.RemoveLast(), ErrCaptureEmpty)

	in := []float64{math.Pi, 0}
	c.Add(in)
	in[0] = 0
	c.Add([]float64{0, math.Pi / 6})

	assert.Equal(t, [][]float64{{180, 0}, {0, 30}}, c.Degrees())

	require.NoError(t, c.RemoveLast())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, [][]float64{{180, 0}}, c.Degrees())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Rows(1))
}

func TestCapture_RowsDuration(t *testing.T) {
	c := NewCapture()
	c.Add([]float64{0})

	assert.Equal(t, 1.5, c.Rows(1.5)[0].DurationS)
	assert.Equal(t, DefaultCaptureDuration, c.Rows(-1)[0].DurationS)
}

func TestNewTrajectory(t *testing.T) {
	_, err := NewTrajectory(nil)
	assert.ErrorIs(t, err, ErrTrajectoryEmpty)

	_, err = NewTrajectory([]Row{{DurationS: 1, AnglesDeg: []float64{1, 2}}, {DurationS: 1, AnglesDeg: []float64{1}}})
	assert.ErrorIs(t, err, ErrRaggedRow)

	_, err = NewTrajectory([]Row{{DurationS: 1}})
	assert.ErrorIs(t, err, ErrRaggedRow)

	traj, err := NewTrajectory([]Row{
		{DurationS: 2, AnglesDeg: []float64{180, -90}},
		{DurationS: 0.5, AnglesDeg: []float64{0, 45}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, traj.Len())
	assert.Equal(t, 2, traj.Dim())
	assert.InDelta(t, 2.5, traj.TotalDuration(), 1e-12)
	assert.InDelta(t, math.Pi, traj.At(0).Positions[0], 1e-12)
	assert.InDelta(t, -math.Pi/2, traj.At(0).Positions[1], 1e-12)
	assert.InDelta(t, math.Pi/4, traj.At(1).Positions[1], 1e-12)
}
