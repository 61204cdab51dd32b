package playback

import (
	"errors"
	"math"
)

// DefaultCaptureDuration is the arrival duration given to exported captured
// via-points.
const DefaultCaptureDuration = 3.0

// ErrCaptureEmpty is returned by RemoveLast when nothing has been captured.
var ErrCaptureEmpty = errors.New("playback: no captured via-points")

// Capture accumulates via-points taken from the live joint state.
// Positions are stored in radians.
type Capture struct {
	points [][]float64
}

// NewCapture returns an empty capture cache.
func NewCapture() *Capture {
	return &Capture{}
}

// Add appends a copy of positionsRad.
func (c *Capture) Add(positionsRad []float64) {
	p := make([]float64, len(positionsRad))
	copy(p, positionsRad)
	c.points = append(c.points, p)
}

// RemoveLast drops the most recently captured point.
func (c *Capture) RemoveLast() error {
	if len(c.points) == 0 {
		return ErrCaptureEmpty
	}
	c.points[len(c.points)-1] = nil
	c.points = c.points[:len(c.points)-1]
	return nil
}

// Clear drops all captured points.
func (c *Capture) Clear() {
	c.points = nil
}

// Len returns the number of captured points.
func (c *Capture) Len() int { return len(c.points) }

// Degrees returns the captured points in degrees rounded to three decimals.
func (c *Capture) Degrees() [][]float64 {
	out := make([][]float64, len(c.points))
	for i, p := range c.points {
		out[i] = toDegrees(p)
	}
	return out
}

// Rows exports every captured point as a Row with the given duration.
// A non-positive duration uses DefaultCaptureDuration.
func (c *Capture) Rows(duration float64) []Row {
	if duration <= 0 {
		duration = DefaultCaptureDuration
	}
	rows := make([]Row, len(c.points))
	for i, p := range c.points {
		rows[i] = Row{DurationS: duration, AnglesDeg: toDegrees(p)}
	}
	return rows
}

func toDegrees(rad []float64) []float64 {
	out := make([]float64, len(rad))
	for i, v := range rad {
		out[i] = roundTo(v*180.0/math.Pi, 3)
	}
	return out
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
