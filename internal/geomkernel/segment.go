package geomkernel

// Segment is a line segment anchored at P running the length of direction
// vector A (the far endpoint is P+A), matching the original engine's
// segment wire representation (spec §6: 6 floats/segment).
type Segment struct {
	P, A [3]float32
}

func isNaN32(x float32) bool {
	return x != x
}

// SegPoints computes the closest points X (on segment P,P+A) and Y (on
// segment Q,Q+B) between two line segments, and a separating vector VEC
// pointing along Y - X. VEC equals Y - X when X is an endpoint of segment
// A and Y = Q; in the other branches it is a cross-product direction whose
// length is not the distance. It is
// a direct translation of the RAPID library's SegPoints, preserving its
// degenerate-segment handling (a zero-length A or B drives A_dot_A or
// B_dot_B to zero; the NaN checks below catch the resulting division).
func SegPoints(p, a, q, b vec3) (x, y, vec vec3) {
	t := sub(q, p)
	aDotA := dot(a, a)
	bDotB := dot(b, b)
	aDotB := dot(a, b)
	aDotT := dot(a, t)
	bDotT := dot(b, t)

	denom := aDotA*bDotB - aDotB*aDotB

	tt := (aDotT*bDotB - bDotT*aDotB) / denom
	if tt < 0 || isNaN32(tt) {
		tt = 0
	} else if tt > 1 {
		tt = 1
	}

	u := (tt*aDotB - bDotT) / bDotB

	switch {
	case u <= 0 || isNaN32(u):
		y = q

		tt = aDotT / aDotA
		switch {
		case tt <= 0 || isNaN32(tt):
			x = p
			vec = sub(q, p)
		case tt >= 1:
			x = add(p, a)
			vec = sub(q, x)
		default:
			x = addScaled(p, a, tt)
			tmp := cross(t, a)
			vec = cross(a, tmp)
		}

	case u >= 1:
		y = add(q, b)

		tt = (aDotB + aDotT) / aDotA
		switch {
		case tt <= 0 || isNaN32(tt):
			x = p
			vec = sub(y, p)
		case tt >= 1:
			x = add(p, a)
			vec = sub(y, x)
		default:
			x = addScaled(p, a, tt)
			t2 := sub(y, p)
			tmp := cross(t2, a)
			vec = cross(a, tmp)
		}

	default:
		y = addScaled(q, b, u)

		switch {
		case tt <= 0 || isNaN32(tt):
			x = p
			tmp := cross(t, b)
			vec = cross(b, tmp)
		case tt >= 1:
			x = add(p, a)
			t2 := sub(q, x)
			tmp := cross(t2, b)
			vec = cross(b, tmp)
		default:
			x = addScaled(p, a, tt)
			vec = cross(a, b)
			if dot(vec, t) < 0 {
				vec = scale(vec, -1)
			}
		}
	}
	return x, y, vec
}

// SegDistSingle returns the distance between segment (p,p+a) and segment
// (q,q+b), the single-pair primitive batched by SegDistBatch (spec §4.2).
func SegDistSingle(p, a, q, b [3]float32) float32 {
	x, y, _ := SegPoints(vec3(p), vec3(a), vec3(q), vec3(b))
	return vecLen(sub(y, x))
}

func vecLen(v vec3) float32 {
	return sqrt32(dot(v, v))
}
