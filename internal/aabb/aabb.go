// Package aabb implements the axis-aligned bounding boxes and distance
// ranges that the pruner (internal/pruner) and join driver (internal/join)
// narrow across LOD levels, grounded on the original engine's aab/range
// types (original_source/src/storage/tile.h), in three dimensions.
package aabb

import "math"

// Range is a closed interval [Closest, Farthest] bounding a true distance.
// Overlapping (or equal) ranges are not orderable: for them both Less and
// Greater report false, which the pruner relies on to keep both entries.
type Range struct {
	Closest  float64
	Farthest float64
}

// Less reports whether r is strictly closer than other — every point of r
// is nearer than every point of other.
func (r Range) Less(other Range) bool {
	return r.Farthest < other.Closest
}

// Greater reports whether r is strictly farther than other.
func (r Range) Greater(other Range) bool {
	return r.Closest > other.Farthest
}

// Envelope folds other into r by taking the min of both bounds, per spec
// §4.5's rule for aggregating several per-voxel-pair Ranges into one
// candidate-level Range: the candidate's Closest is the closest any of its
// voxel pairs could be, and its Farthest is the nearest upper bound any
// single voxel pair has established (not the loosest one).
func (r Range) Envelope(other Range) Range {
	out := r
	if other.Closest < out.Closest {
		out.Closest = other.Closest
	}
	if other.Farthest < out.Farthest {
		out.Farthest = other.Farthest
	}
	return out
}

// AABB is an axis-aligned box in R^3, matching the storage layout of the
// original engine's `aab` (min[3]/max[3]).
type AABB struct {
	Min [3]float64
	Max [3]float64
}

// Update grows b to also contain other, mirroring the original engine's
// Voxel/HiMesh_Wrapper box accumulation during decode.
func (b AABB) Update(other AABB) AABB {
	out := b
	for i := 0; i < 3; i++ {
		if other.Min[i] < out.Min[i] {
			out.Min[i] = other.Min[i]
		}
		if other.Max[i] > out.Max[i] {
			out.Max[i] = other.Max[i]
		}
	}
	return out
}

// Intersect reports whether b and other overlap on every axis.
func (b AABB) Intersect(other AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < other.Min[i] || other.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Distance computes the Range of possible true distances between the
// surfaces contained in b and other: 0 (or negative overlap treated as 0)
// when the boxes intersect, otherwise the per-axis gap for Closest and the
// corner-to-corner span for Farthest.
func (b AABB) Distance(other AABB) Range {
	if b.Intersect(other) {
		farthest := 0.0
		for i := 0; i < 3; i++ {
			span := math.Max(b.Max[i], other.Max[i]) - math.Min(b.Min[i], other.Min[i])
			farthest += span * span
		}
		return Range{Closest: 0, Farthest: math.Sqrt(farthest)}
	}

	var closestSq, farthestSq float64
	for i := 0; i < 3; i++ {
		gap := axisGap(b.Min[i], b.Max[i], other.Min[i], other.Max[i])
		closestSq += gap * gap
		span := axisSpan(b.Min[i], b.Max[i], other.Min[i], other.Max[i])
		farthestSq += span * span
	}
	return Range{Closest: math.Sqrt(closestSq), Farthest: math.Sqrt(farthestSq)}
}

// axisGap is the minimal separation along one axis between [aMin,aMax]
// and [bMin,bMax], 0 when they overlap on this axis alone.
func axisGap(aMin, aMax, bMin, bMax float64) float64 {
	if aMax < bMin {
		return bMin - aMax
	}
	if bMax < aMin {
		return aMin - bMax
	}
	return 0
}

// axisSpan is the maximal separation along one axis: worst-case corner
// pairing.
func axisSpan(aMin, aMax, bMin, bMax float64) float64 {
	return math.Max(aMax, bMax) - math.Min(aMin, bMin)
}

// Center returns the box midpoint, used by Voxel.Core in internal/tile.
func (b AABB) Center() [3]float64 {
	var c [3]float64
	for i := 0; i < 3; i++ {
		c[i] = (b.Min[i] + b.Max[i]) / 2
	}
	return c
}
