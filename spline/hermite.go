package spline

// Status is the outcome of evaluating a window at a query time.
type Status int

const (
	// StatusOK means position and velocity were written.
	StatusOK Status = iota
	// StatusInsufficientData means the window does not hold four valid points.
	StatusInsufficientData
	// StatusBeforeSegment means the query time is negative.
	StatusBeforeSegment
	// StatusAfterSegment means the query time is past the segment duration.
	StatusAfterSegment
	// StatusDegenerate means the segment duration is below Epsilon.
	StatusDegenerate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInsufficientData:
		return "insufficient_data"
	case StatusBeforeSegment:
		return "before_segment"
	case StatusAfterSegment:
		return "after_segment"
	case StatusDegenerate:
		return "degenerate_segment"
	default:
		return "unknown"
	}
}

// Result is the allocating form of an evaluation, returned by Ring.Target.
// Position and Velocity are nil unless Status is StatusOK.
type Result struct {
	Status   Status
	Position []float64
	Velocity []float64
}

// Cubic Hermite basis functions on u in [0,1].
func h00(u float64) float64 { return 2*u*u*u - 3*u*u + 1 }
func h10(u float64) float64 { return u*u*u - 2*u*u + u }
func h01(u float64) float64 { return -2*u*u*u + 3*u*u }
func h11(u float64) float64 { return u*u*u - u*u }

// Exact derivatives of the basis functions with respect to u.
func h00p(u float64) float64 { return 6*u*u - 6*u }
func h10p(u float64) float64 { return 3*u*u - 4*u + 1 }
func h01p(u float64) float64 { return -6*u*u + 6*u }
func h11p(u float64) float64 { return 3*u*u - 2*u }

// slopes returns the secant slopes of the three window intervals. Flanking
// intervals shorter than Epsilon contribute a zero slope; d12 is the segment
// duration and must already be known to be >= Epsilon.
func slopes(p0, p1, p2, p3, d01, d12, d23 float64) (s01, s12, s23 float64) {
	if d01 > Epsilon {
		s01 = (p1 - p0) / d01
	}
	s12 = (p2 - p1) / d12
	if d23 > Epsilon {
		s23 = (p3 - p2) / d23
	}
	return s01, s12, s23
}

// tangent averages two adjacent slopes, or returns 0 when they disagree in
// sign or either is zero. A via-point that is a local extremum therefore gets
// a flat tangent and the curve cannot overshoot it.
func tangent(a, b float64) float64 {
	if a*b > 0 {
		return 0.5 * (a + b)
	}
	return 0
}

// segmentTangents returns the scaled end tangents T1, T2 of the P1→P2 segment.
func segmentTangents(p0, p1, p2, p3, d01, d12, d23 float64) (t1, t2 float64) {
	s01, s12, s23 := slopes(p0, p1, p2, p3, d01, d12, d23)
	return tangent(s01, s12) * d12, tangent(s12, s23) * d12
}

// Evaluate interpolates the segment between logical points 1 and 2 of r at
// tMs milliseconds after point 1, writing per-joint position and velocity into
// pos and vel. Both buffers must hold at least r.Dim() values. Nothing is
// written unless the returned status is StatusOK.
func Evaluate(r *Ring, tMs float64, pos, vel []float64) Status {
	if r == nil || r.filled < BufferSize {
		return StatusInsufficientData
	}
	if len(pos) < r.dim || len(vel) < r.dim {
		return StatusInsufficientData
	}

	i0 := r.head
	i1 := (i0 + 1) % BufferSize
	i2 := (i1 + 1) % BufferSize
	i3 := (i2 + 1) % BufferSize
	if !(r.valid[i0] && r.valid[i1] && r.valid[i2] && r.valid[i3]) {
		return StatusInsufficientData
	}

	segDur := r.slots[i2].DurationS
	if segDur < Epsilon {
		return StatusDegenerate
	}

	ts := tMs / 1000
	if ts > segDur {
		return StatusAfterSegment
	}
	if ts < 0 {
		return StatusBeforeSegment
	}

	u := ts / segDur
	b00, b10, b01, b11 := h00(u), h10(u), h01(u), h11(u)
	d00, d10, d01, d11 := h00p(u), h10p(u), h01p(u), h11p(u)

	d01s := r.slots[i1].DurationS
	d23s := r.slots[i3].DurationS
	p0s, p1s, p2s, p3s := r.slots[i0].Positions, r.slots[i1].Positions, r.slots[i2].Positions, r.slots[i3].Positions

	for d := 0; d < r.dim; d++ {
		p1, p2 := p1s[d], p2s[d]
		t1, t2 := segmentTangents(p0s[d], p1, p2, p3s[d], d01s, segDur, d23s)

		pos[d] = b00*p1 + b10*t1 + b01*p2 + b11*t2
		vel[d] = (d00*p1 + d10*t1 + d01*p2 + d11*t2) / segDur
	}
	return StatusOK
}

// Target is the allocating form of Evaluate.
func (r *Ring) Target(tMs float64) Result {
	if r == nil {
		return Result{Status: StatusInsufficientData}
	}
	pos := make([]float64, r.dim)
	vel := make([]float64, r.dim)
	st := Evaluate(r, tMs, pos, vel)
	if st != StatusOK {
		return Result{Status: st}
	}
	return Result{Status: st, Position: pos, Velocity: vel}
}

// Knots returns the cumulative times of the four window points, starting at 0
// for P0. The ring must be full.
func Knots(r *Ring) ([BufferSize]float64, error) {
	var t [BufferSize]float64
	if r == nil || r.filled < BufferSize {
		return t, ErrInsufficientPoints
	}
	for i := 1; i < BufferSize; i++ {
		t[i] = t[i-1] + r.slots[r.slot(i)].DurationS
	}
	return t, nil
}
