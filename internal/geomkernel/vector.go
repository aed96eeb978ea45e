// Package geomkernel implements the single-pair primitives of spec §4.1:
// segment-to-segment closest points, triangle-to-triangle distance, and
// triangle-to-triangle intersection. The algorithms are a direct port of
// the UNC/Eric Larsen RAPID library's SegPoints/TriDist routines found in
// original_source/src/triangle/TriDist.cpp, translated from pointer/array
// style C into named float32 3-vectors.
package geomkernel

type vec3 [3]float32

func sub(a, b vec3) vec3 {
	return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func add(a, b vec3) vec3 {
	return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func scale(a vec3, s float32) vec3 {
	return vec3{a[0] * s, a[1] * s, a[2] * s}
}

// addScaled returns a + s*b, matching the original's VpV/VpVxS fused step.
func addScaled(a, b vec3, s float32) vec3 {
	return vec3{a[0] + s*b[0], a[1] + s*b[1], a[2] + s*b[2]}
}

func dot(a, b vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b vec3) vec3 {
	return vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
