// Package playback turns a list of (duration, joint target) rows into
// per-tick position and velocity commands using a spline.Ring window per
// segment.
package playback

import (
	"errors"
	"fmt"
	"math"

	"viastudio/spline"
)

var (
	// ErrTrajectoryEmpty is returned when a trajectory has no rows.
	ErrTrajectoryEmpty = errors.New("playback: trajectory is empty")

	// ErrRaggedRow is returned when rows disagree on the joint count.
	ErrRaggedRow = errors.New("playback: row joint count differs from first row")
)

// Row is the external tabular form of a via-point: arrival duration in
// seconds and per-joint angles in degrees.
type Row struct {
	DurationS float64
	AnglesDeg []float64
}

// Trajectory is an ordered list of via-points in radians. It is immutable once
// built; accessors return copies or read-only views.
type Trajectory struct {
	points []spline.ViaPoint
	dim    int
}

// NewTrajectory converts degree rows into a radian trajectory.
func NewTrajectory(rows []Row) (Trajectory, error) {
	if len(rows) == 0 {
		return Trajectory{}, ErrTrajectoryEmpty
	}

	dim := len(rows[0].AnglesDeg)
	if dim == 0 {
		return Trajectory{}, fmt.Errorf("%w: row 0 has no joints", ErrRaggedRow)
	}

	points := make([]spline.ViaPoint, len(rows))
	for i, row := range rows {
		if len(row.AnglesDeg) != dim {
			return Trajectory{}, fmt.Errorf("%w: row %d has %d joints, want %d", ErrRaggedRow, i, len(row.AnglesDeg), dim)
		}
		pos := make([]float64, dim)
		for j, deg := range row.AnglesDeg {
			pos[j] = deg * math.Pi / 180.0
		}
		points[i] = spline.ViaPoint{DurationS: row.DurationS, Positions: pos}
	}

	return Trajectory{points: points, dim: dim}, nil
}

// Len returns the number of via-points (segments) in the trajectory.
func (t Trajectory) Len() int { return len(t.points) }

// Dim returns the joint count.
func (t Trajectory) Dim() int { return t.dim }

// At returns via-point i. The Positions slice must not be modified.
func (t Trajectory) At(i int) spline.ViaPoint { return t.points[i] }

// TotalDuration returns the sum of all segment durations in seconds.
func (t Trajectory) TotalDuration() float64 {
	var total float64
	for _, p := range t.points {
		total += p.DurationS
	}
	return total
}
