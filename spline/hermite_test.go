package spline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func window(t *testing.T, durations, positions []float64) *Ring {
	t.Helper()
	r := NewRing(1)
	for i := range durations {
		require.NoError(t, r.PushBack(durations[i], pt(positions[i])))
	}
	return r
}

func TestBasis_BoundaryIdentities(t *testing.T) {
	assert.Equal(t, 1.0, h00(0))
	assert.Equal(t, 0.0, h00(1))
	assert.Equal(t, 0.0, h01(0))
	assert.Equal(t, 1.0, h01(1))
	assert.Equal(t, 0.0, h10(0))
	assert.Equal(t, 0.0, h10(1))
	assert.Equal(t, 0.0, h11(0))
	assert.Equal(t, 0.0, h11(1))

	for u := 0.0; u <= 1.0; u += 0.05 {
		assert.InDelta(t, 1.0, h00(u)+h01(u), tol, "u=%g", u)
	}
}

func TestBasis_DerivativesMatchNumeric(t *testing.T) {
	const h = 1e-6
	fns := []struct {
		name string
		f, d func(float64) float64
	}{
		{"h00", h00, h00p},
		{"h10", h10, h10p},
		{"h01", h01, h01p},
		{"h11", h11, h11p},
	}
	for _, fn := range fns {
		for u := 0.1; u < 1.0; u += 0.1 {
			num := (fn.f(u+h) - fn.f(u-h)) / (2 * h)
			assert.InDelta(t, fn.d(u), num, 1e-6, "%s u=%g", fn.name, u)
		}
	}
}

func TestTangent_OppositeSignsZero(t *testing.T) {
	assert.Equal(t, 0.0, tangent(-1000, 0.001))
	assert.Equal(t, 0.0, tangent(5, -5))
	assert.Equal(t, 0.0, tangent(0, 3))
	assert.Equal(t, 2.0, tangent(1, 3))
	assert.Equal(t, -2.0, tangent(-1, -3))

	// local maximum at P1: T1 is flat regardless of slope magnitudes
	t1, t2 := segmentTangents(0, 100, 1, 0, 1, 1, 1)
	assert.Equal(t, 0.0, t1)
	assert.NotEqual(t, 0.0, t2)
}

func TestTangent_ShortFlankContributesZeroSlope(t *testing.T) {
	s01, s12, s23 := slopes(0, 5, 10, 20, 0, 1, Epsilon/2)
	assert.Equal(t, 0.0, s01)
	assert.Equal(t, 5.0, s12)
	assert.Equal(t, 0.0, s23)
}

func TestEvaluate_InsufficientData(t *testing.T) {
	r := NewRing(1)
	pos, vel := make([]float64, 1), make([]float64, 1)
	for i := 0; i < 3; i++ {
		assert.Equal(t, StatusInsufficientData, Evaluate(r, 0, pos, vel))
		require.NoError(t, r.PushBack(1, pt(float64(i))))
	}
	assert.Equal(t, StatusInsufficientData, Evaluate(r, 500, pos, vel))
	assert.Equal(t, StatusInsufficientData, Evaluate(nil, 0, pos, vel))
	var none *Ring
	assert.Equal(t, Result{Status: StatusInsufficientData}, none.Target(0))

	require.NoError(t, r.PushBack(1, pt(3)))
	assert.Equal(t, StatusOK, Evaluate(r, 500, pos, vel))
	assert.Equal(t, StatusInsufficientData, Evaluate(r, 500, nil, vel), "short buffers")
}

func TestEvaluate_StatusPrecedence(t *testing.T) {
	pos, vel := make([]float64, 1), make([]float64, 1)

	r := window(t, []float64{0, 1, 2, 1}, []float64{0, 1, 2, 3})
	assert.Equal(t, StatusAfterSegment, Evaluate(r, 2001, pos, vel))
	assert.Equal(t, StatusBeforeSegment, Evaluate(r, -1, pos, vel))
	assert.Equal(t, StatusOK, Evaluate(r, 2000, pos, vel))
	assert.Equal(t, StatusOK, Evaluate(r, 0, pos, vel))

	d := window(t, []float64{0, 1, 0, 1}, []float64{0, 1, 2, 3})
	assert.Equal(t, StatusDegenerate, Evaluate(d, 5000, pos, vel))
	assert.Equal(t, StatusDegenerate, Evaluate(d, -5000, pos, vel))
}

func TestEvaluate_NoWriteOnFailure(t *testing.T) {
	r := window(t, []float64{0, 1, 2, 1}, []float64{0, 1, 2, 3})
	pos, vel := []float64{-7}, []float64{-8}
	assert.Equal(t, StatusAfterSegment, Evaluate(r, 9999, pos, vel))
	assert.Equal(t, -7.0, pos[0])
	assert.Equal(t, -8.0, vel[0])
}

func TestEvaluate_Endpoints(t *testing.T) {
	r := window(t, []float64{0, 1.5, 2, 0.7}, []float64{-1, 2, 5, 4})

	res := r.Target(0)
	require.Equal(t, StatusOK, res.Status)
	assert.InDelta(t, 2.0, res.Position[0], tol)

	res = r.Target(2000)
	require.Equal(t, StatusOK, res.Status)
	assert.InDelta(t, 5.0, res.Position[0], tol)
}

func TestEvaluate_VelocityMatchesNumericDerivative(t *testing.T) {
	r := NewRing(3)
	require.NoError(t, r.PushBack(0, []float64{0, 1, -1}))
	require.NoError(t, r.PushBack(1.2, []float64{1, 3, -2}))
	require.NoError(t, r.PushBack(2.5, []float64{4, 2, -6}))
	require.NoError(t, r.PushBack(0.8, []float64{6, 0, -7}))

	const segMs = 2500.0
	const hMs = 0.01
	for _, u := range []float64{0.05, 0.2, 0.37, 0.5, 0.81, 0.95} {
		at := r.Target(u * segMs)
		lo := r.Target(u*segMs - hMs)
		hi := r.Target(u*segMs + hMs)
		require.Equal(t, StatusOK, at.Status)
		for d := 0; d < 3; d++ {
			num := (hi.Position[d] - lo.Position[d]) / (2 * hMs / 1000)
			assert.InDelta(t, at.Velocity[d], num, 1e-5, "u=%g joint=%d", u, d)
		}
	}
}

func TestEvaluate_DuplicatedEndpointsFlat(t *testing.T) {
	r := window(t, []float64{0, 0, 2, 0}, []float64{0, 0, 10, 10})

	res := r.Target(2000)
	require.Equal(t, StatusOK, res.Status)
	assert.InDelta(t, 10.0, res.Position[0], tol)
	assert.InDelta(t, 0.0, res.Velocity[0], tol)

	// zero end tangents: smoothstep between the two distinct points
	res = r.Target(1000)
	require.Equal(t, StatusOK, res.Status)
	assert.InDelta(t, 5.0, res.Position[0], tol)
	assert.InDelta(t, 7.5, res.Velocity[0], tol)

	res = r.Target(0)
	assert.InDelta(t, 0.0, res.Position[0], tol)
	assert.InDelta(t, 0.0, res.Velocity[0], tol)
}

func TestEvaluate_NoOvershootAtExtremum(t *testing.T) {
	// P2 is a local maximum, so T2 is flat and the curve stays below it
	r := window(t, []float64{0, 1, 1, 1}, []float64{0, 1, 3, 0})
	for ms := 0.0; ms <= 1000; ms += 50 {
		res := r.Target(ms)
		require.Equal(t, StatusOK, res.Status)
		assert.LessOrEqual(t, res.Position[0], 3.0+tol)
	}
}

func TestEvaluate_ZeroAllocs(t *testing.T) {
	r := window(t, []float64{0, 1, 2, 1}, []float64{0, 1, 2, 3})
	pos, vel := make([]float64, 1), make([]float64, 1)
	allocs := testing.AllocsPerRun(100, func() {
		Evaluate(r, 1000, pos, vel)
	})
	assert.Zero(t, allocs)
}

func TestKnots(t *testing.T) {
	_, err := Knots(NewRing(1))
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	r := window(t, []float64{9, 1, 2, 0.5}, []float64{0, 1, 2, 3})
	k, err := Knots(r)
	require.NoError(t, err)
	assert.Equal(t, [BufferSize]float64{0, 1, 3, 3.5}, k)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "degenerate_segment", StatusDegenerate.String())
	assert.Equal(t, "unknown", Status(42).String())
}
