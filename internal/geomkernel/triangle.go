package geomkernel

// Triangle is three vertices in R^3, matching the original engine's S[3][3]
// / T[3][3] layout (spec §3's Triangle type).
type Triangle [3][3]float32

func edges(t Triangle) [3]vec3 {
	return [3]vec3{
		sub(vec3(t[1]), vec3(t[0])),
		sub(vec3(t[2]), vec3(t[1])),
		sub(vec3(t[0]), vec3(t[2])),
	}
}

// TriDistSingle returns the distance between triangles s and t, a direct
// port of RAPID's TriDist: it walks the 9 edge-pair combinations tracking
// the closest pair found (with an early exact return when the separating
// vector is outside both triangles' adjacent edges), then — if no edge
// pair gave an exact answer — tests whether one triangle's vertex
// projects into the other's face, which happens whenever the true closest
// points are a vertex-to-face pair rather than an edge-to-edge pair.
func TriDistSingle(s, t Triangle) float32 {
	sv := edges(s)
	tv := edges(t)

	sVerts := [3]vec3{vec3(s[0]), vec3(s[1]), vec3(s[2])}
	tVerts := [3]vec3{vec3(t[0]), vec3(t[1]), vec3(t[2])}

	d0 := sub(sVerts[0], tVerts[0])
	mindd := dot(d0, d0) + 1

	shownDisjoint := false

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p, q, vec := SegPoints(sVerts[i], sv[i], tVerts[j], tv[j])

			v := sub(q, p)
			dd := dot(v, v)

			if dd <= mindd {
				mindd = dd

				z := sub(sVerts[(i+2)%3], p)
				a := dot(z, vec)
				z = sub(tVerts[(j+2)%3], q)
				b := dot(z, vec)

				if a <= 0 && b >= 0 {
					return sqrt32(dd)
				}

				pp := dot(v, vec)
				if a < 0 {
					a = 0
				}
				if b > 0 {
					b = 0
				}
				if pp-a+b > 0 {
					shownDisjoint = true
				}
			}
		}
	}

	if d, ok := facePointDistance(sVerts, sv, tVerts); ok {
		return d
	}
	if d, ok := facePointDistance(tVerts, tv, sVerts); ok {
		return d
	}

	if shownDisjoint {
		return sqrt32(mindd)
	}
	return 0
}

// facePointDistance checks whether a vertex of other projects inside the
// face spanned by (verts, edgeVecs); if so it returns the perpendicular
// distance from that vertex to the face's plane.
func facePointDistance(verts [3]vec3, edgeVecs [3]vec3, other [3]vec3) (float32, bool) {
	n := cross(edgeVecs[0], edgeVecs[1])
	nl := dot(n, n)
	if nl <= 1e-15 {
		return 0, false
	}

	var proj [3]float32
	for i := 0; i < 3; i++ {
		d := sub(other[i], verts[0])
		proj[i] = dot(d, n)
	}

	allPos := proj[0] > 0 && proj[1] > 0 && proj[2] > 0
	allNeg := proj[0] < 0 && proj[1] < 0 && proj[2] < 0
	if !allPos && !allNeg {
		return 0, false
	}

	point := 0
	for i := 1; i < 3; i++ {
		if abs32(proj[i]) < abs32(proj[point]) {
			point = i
		}
	}

	for i := 0; i < 3; i++ {
		v := sub(other[point], verts[i])
		z := cross(n, edgeVecs[i])
		if dot(v, z) <= 0 {
			return 0, false
		}
	}

	return abs32(proj[point]) / sqrt32(nl), true
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// TriIntSingle reports whether triangles s and t intersect. TriDistSingle
// already resolves touching/coplanar cases to exactly 0 rather than some
// small positive epsilon, so the threshold test below is exact, not an
// approximation.
func TriIntSingle(s, t Triangle) bool {
	return TriDistSingle(s, t) <= 0
}
