// Package spline implements the via-point window used for joint-space
// interpolation: a fixed 4-slot ring of via-points and a cubic Hermite
// evaluator for the segment between the two middle points.
//
// Everything in this package is single-owner. A Ring must only be touched by
// the goroutine driving playback; no locking is done here.
package spline

import (
	"errors"
	"fmt"
	"strings"
)

// BufferSize is the number of via-points held by a Ring (P0..P3).
const BufferSize = 4

// Epsilon is the smallest duration treated as non-zero.
const Epsilon = 1e-6

var (
	// ErrInvalidIndex is returned by OverrideAt for an index outside [0, filled).
	ErrInvalidIndex = errors.New("spline: invalid via-point index")

	// ErrInsufficientPoints is returned when an operation needs more buffered points.
	ErrInsufficientPoints = errors.New("spline: not enough via-points buffered")

	// ErrDimensionMismatch is returned when a position vector does not match the ring dimension.
	ErrDimensionMismatch = errors.New("spline: position dimension mismatch")
)

// ViaPoint is a target joint configuration plus the time (seconds) needed to
// reach it from the previous via-point.
type ViaPoint struct {
	DurationS float64
	Positions []float64
}

// Ring is a fixed-capacity circular buffer of via-points.
//
// head is the slot of the logically oldest point (P0 of the current window).
// Slot position slices are allocated once in NewRing and copied into on every
// write, so no operation allocates afterwards.
type Ring struct {
	slots  [BufferSize]ViaPoint
	valid  [BufferSize]bool
	head   int
	filled int
	dim    int
}

// NewRing returns an empty ring for dim-dimensional positions.
func NewRing(dim int) *Ring {
	if dim < 0 {
		dim = 0
	}
	r := &Ring{dim: dim}
	for i := range r.slots {
		r.slots[i].Positions = make([]float64, dim)
	}
	return r
}

// Dim returns the position dimension fixed at construction.
func (r *Ring) Dim() int { return r.dim }

// Filled returns the number of buffered via-points (0..BufferSize).
func (r *Ring) Filled() int { return r.filled }

// Head returns the physical slot index of logical point 0.
func (r *Ring) Head() int { return r.head }

// Full reports whether all slots hold a via-point.
func (r *Ring) Full() bool { return r.filled == BufferSize }

// slot maps a logical index to its physical slot.
func (r *Ring) slot(i int) int {
	return (r.head + i) % BufferSize
}

// At returns the via-point at logical index i (0 = oldest). The returned
// Positions slice aliases ring storage and is only valid until the next write.
func (r *Ring) At(i int) (ViaPoint, bool) {
	if i < 0 || i >= r.filled {
		return ViaPoint{}, false
	}
	idx := r.slot(i)
	if !r.valid[idx] {
		return ViaPoint{}, false
	}
	return r.slots[idx], true
}

// Reset empties the ring without releasing slot storage.
func (r *Ring) Reset() {
	r.head = 0
	r.filled = 0
	for i := range r.valid {
		r.valid[i] = false
	}
}

func (r *Ring) write(idx int, duration float64, positions []float64) {
	r.slots[idx].DurationS = duration
	copy(r.slots[idx].Positions, positions)
	r.valid[idx] = true
}

// PushBack appends a via-point. When the ring is full the oldest point is
// dropped: head advances by one and the new point overwrites the new tail.
func (r *Ring) PushBack(duration float64, positions []float64) error {
	if len(positions) != r.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(positions), r.dim)
	}

	if r.filled < BufferSize {
		r.write(r.slot(r.filled), duration, positions)
		r.filled++
		return nil
	}

	r.head = (r.head + 1) % BufferSize
	r.write(r.slot(r.filled-1), duration, positions)
	return nil
}

// PushFront prepends a via-point. When the ring is full the logically newest
// point is dropped. Durations are clamped to Epsilon.
func (r *Ring) PushFront(duration float64, positions []float64) error {
	if len(positions) != r.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(positions), r.dim)
	}
	duration = max(duration, Epsilon)

	if r.filled == 0 {
		return r.PushBack(duration, positions)
	}

	r.head = (r.head - 1 + BufferSize) % BufferSize
	r.write(r.head, duration, positions)
	if r.filled < BufferSize {
		r.filled++
	}
	return nil
}

// OverrideAt replaces the via-point at logical index i. Durations are clamped
// to Epsilon. Out-of-range indices leave the ring untouched.
func (r *Ring) OverrideAt(i int, duration float64, positions []float64) error {
	if i < 0 || i >= r.filled {
		return fmt.Errorf("%w: %d (valid range 0..%d)", ErrInvalidIndex, i, r.filled-1)
	}
	if len(positions) != r.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(positions), r.dim)
	}
	r.write(r.slot(i), max(duration, Epsilon), positions)
	return nil
}

// SetMinMiddleDuration raises the duration of logical point 2 (the active
// segment duration) to at least seconds. It never lowers it.
func (r *Ring) SetMinMiddleDuration(seconds float64) error {
	if r.filled < 3 {
		return fmt.Errorf("%w: have %d, need 3", ErrInsufficientPoints, r.filled)
	}
	idx := r.slot(2)
	if r.slots[idx].DurationS < seconds {
		r.slots[idx].DurationS = seconds
	}
	return nil
}

// String renders the physical buffer state, one slot per line.
func (r *Ring) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "head=%d filled=%d\n", r.head, r.filled)
	for i := range r.slots {
		if !r.valid[i] {
			fmt.Fprintf(&b, "[%d] invalid\n", i)
			continue
		}
		fmt.Fprintf(&b, "[%d] duration_s=%g positions=%v\n", i, r.slots[i].DurationS, r.slots[i].Positions)
	}
	return b.String()
}
