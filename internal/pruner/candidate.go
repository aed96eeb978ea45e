// Package pruner implements the candidate-elimination logic of spec §4.5:
// as LOD refines, every candidate pair's distance Range narrows, and any
// pair whose Range is now strictly dominated by another pair's Range is
// eliminated. Grounded on update_voxel_pair_list/update_candidate_list in
// original_source/src/join/SpatialJoin.cpp, but deliberately redesigned
// (per spec §9) as a retain-style filter rather than the original's
// erase-during-iterate loop: each existing entry's fate depends only on
// its own Range versus the incoming one, so a single non-mutating pass
// produces the same fixed point regardless of slice order (property P3).
package pruner

import "github.com/kasuganosora/spatialjoin/internal/aabb"

// RangedItem pairs an arbitrary payload with the distance/intersection
// Range currently known for it.
type RangedItem[T any] struct {
	Value T
	Range aabb.Range
}

// updateRangeList is the shared core behind UpdateVoxelPairList and
// UpdateCandidateList: given the list known so far and a newly computed
// range d, it drops every entry d strictly dominates, and reports whether
// d itself should be appended (false if some surviving entry strictly
// dominates d instead).
//
// Entries whose Range neither dominates nor is dominated by d (i.e.
// overlapping ranges) are always kept — only a strict ordering eliminates
// a candidate, per spec §4.5's non-overlapping-only comparison rule.
func updateRangeList[T any](items []RangedItem[T], d aabb.Range) ([]RangedItem[T], bool) {
	add := true
	kept := make([]RangedItem[T], 0, len(items))
	for _, item := range items {
		switch {
		case d.Greater(item.Range):
			add = false
			kept = append(kept, item)
		case d.Less(item.Range):
			// item is strictly farther than d — dominated, drop it.
		default:
			kept = append(kept, item)
		}
	}
	return kept, add
}

// VoxelPairKey identifies one voxel-to-voxel comparison within a
// candidate object pair.
type VoxelPairKey struct {
	V1, V2 int
}

// UpdateVoxelPairList narrows a single candidate's voxel-pair list given a
// newly computed range d for one voxel pair, mirroring
// SpatialJoin.cpp's update_voxel_pair_list.
func UpdateVoxelPairList(voxelPairs []RangedItem[VoxelPairKey], d aabb.Range) ([]RangedItem[VoxelPairKey], bool) {
	return updateRangeList(voxelPairs, d)
}

// DistanceCandidate is one candidate object pair in a nearest-neighbor
// join: the coarse Range bounding the pair's true distance, and the
// finer-grained voxel pairs that justify it.
type DistanceCandidate struct {
	ObjectID int
	Range    aabb.Range
	Voxels   []RangedItem[VoxelPairKey]
}

// UpdateCandidateList narrows the top-level candidate list given a newly
// computed range d for one candidate, mirroring SpatialJoin.cpp's
// update_candidate_list.
func UpdateCandidateList(candidates []DistanceCandidate, d aabb.Range) ([]DistanceCandidate, bool) {
	items := make([]RangedItem[int], len(candidates))
	for i, c := range candidates {
		items[i] = RangedItem[int]{Value: i, Range: c.Range}
	}
	kept, add := updateRangeList(items, d)

	out := make([]DistanceCandidate, len(kept))
	for i, item := range kept {
		out[i] = candidates[item.Value]
	}
	return out, add
}

// ResolveSingletons implements SpatialJoin.cpp's per-LOD singleton
// removal: once a reference object's candidate list has been pruned down
// to exactly one surviving candidate, that candidate has already
// out-competed every other candidate at the box level and is reported as
// the answer without any further LOD refinement. A list with more than
// one candidate remains ambiguous and needs another refinement pass; an
// empty list has nothing left to resolve.
func ResolveSingletons(candidates []DistanceCandidate) (remaining, finalized []DistanceCandidate) {
	if len(candidates) == 1 {
		return nil, candidates
	}
	return candidates, nil
}

// IntersectCandidate is one candidate object pair in an intersection join:
// instead of a Range, each voxel pair carries a boolean "confirmed
// intersecting" flag (spec §4.5).
type IntersectCandidate struct {
	ObjectID int
	Voxels   []IntersectVoxelPair
}

// IntersectVoxelPair is one voxel-to-voxel comparison within an
// intersection candidate.
type IntersectVoxelPair struct {
	Pair       VoxelPairKey
	Intersects bool
}

// AnyIntersecting reports whether any voxel pair in c has been confirmed
// intersecting — the intersection join's termination predicate
// (SpatialJoin.cpp's intersect() scans voxel_pairs for any true flag).
func (c IntersectCandidate) AnyIntersecting() bool {
	for _, v := range c.Voxels {
		if v.Intersects {
			return true
		}
	}
	return false
}
