package geomkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegDistSingle_ParallelSegments(t *testing.T) {
	p := [3]float32{0, 0, 0}
	a := [3]float32{1, 0, 0}
	q := [3]float32{0, 3, 0}
	b := [3]float32{1, 0, 0}

	d := SegDistSingle(p, a, q, b)
	assert.InDelta(t, 3.0, d, 1e-3)
}

func TestSegDistSingle_CrossingSegmentsIsZero(t *testing.T) {
	p := [3]float32{-1, 0, 0}
	a := [3]float32{2, 0, 0}
	q := [3]float32{0, -1, 0}
	b := [3]float32{0, 2, 0}

	d := SegDistSingle(p, a, q, b)
	assert.InDelta(t, 0.0, d, 1e-3)
}

func TestSegDistSingle_SkewSegments(t *testing.T) {
	p := [3]float32{0, 0, 0}
	a := [3]float32{1, 0, 0}
	q := [3]float32{0, 1, 1}
	b := [3]float32{1, 0, 0}

	d := SegDistSingle(p, a, q, b)
	assert.InDelta(t, 1.4142, d, 1e-3)
}

func TestSegDistSingle_DegenerateZeroLengthSegmentDoesNotPanic(t *testing.T) {
	p := [3]float32{0, 0, 0}
	a := [3]float32{0, 0, 0}
	q := [3]float32{1, 1, 1}
	b := [3]float32{1, 0, 0}

	assert.NotPanics(t, func() {
		d := SegDistSingle(p, a, q, b)
		assert.False(t, isNaN32(d))
	})
}

// TestSegPoints_VecDirectionInEdgeInteriorBranch pins down a case that
// lands in the u-interior/tt<=0 sub-branch (closest point on segment A
// is its endpoint P, closest point on segment B is strictly interior):
// a sign error in the cross-product operand order there doesn't show up
// in SegDistSingle (|vec| is sign-independent) but does corrupt the
// separating-vector direction TriDistSingle relies on for its exact
// edge-edge return test.
func TestSegPoints_VecDirectionInEdgeInteriorBranch(t *testing.T) {
	p := vec3{0, 0, 0}
	a := vec3{1, 0, 0}
	q := vec3{-1, -0.5, 0}
	b := vec3{0, 1, 0}

	x, y, vec := SegPoints(p, a, q, b)

	assert.InDelta(t, 0.0, float64(x[0]), 1e-4)
	assert.InDelta(t, -1.0, float64(y[0]), 1e-4)
	assert.InDelta(t, 0.0, float64(y[1]), 1e-4)

	assert.InDelta(t, float64(y[0]-x[0]), float64(vec[0]), 1e-4)
	assert.InDelta(t, float64(y[1]-x[1]), float64(vec[1]), 1e-4)
	assert.InDelta(t, float64(y[2]-x[2]), float64(vec[2]), 1e-4)
}

func TestSegDistSingle_IsSymmetric(t *testing.T) {
	p := [3]float32{0, 0, 0}
	a := [3]float32{1, 2, 0}
	q := [3]float32{3, 0, 1}
	b := [3]float32{0, 1, 1}

	d1 := SegDistSingle(p, a, q, b)
	d2 := SegDistSingle(q, b, p, a)
	assert.InDelta(t, d1, d2, 1e-3)
}
