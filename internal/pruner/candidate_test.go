package pruner

import (
	"math/rand"
	"testing"

	"github.com/kasuganosora/spatialjoin/internal/aabb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng(c, f float64) aabb.Range { return aabb.Range{Closest: c, Farthest: f} }

func TestUpdateVoxelPairList_DroppedWhenDominated(t *testing.T) {
	existing := []RangedItem[VoxelPairKey]{
		{Value: VoxelPairKey{1, 2}, Range: rng(0, 1)},
	}
	_, add := UpdateVoxelPairList(existing, rng(5, 6))
	assert.False(t, add, "a pair strictly farther than an existing one must not be added")
}

func TestUpdateVoxelPairList_RemovesDominatedExisting(t *testing.T) {
	existing := []RangedItem[VoxelPairKey]{
		{Value: VoxelPairKey{1, 2}, Range: rng(5, 6)},
	}
	kept, add := UpdateVoxelPairList(existing, rng(0, 1))
	assert.True(t, add)
	assert.Empty(t, kept, "the existing farther pair is eliminated by the closer one")
}

func TestUpdateVoxelPairList_OverlappingRangesBothSurvive(t *testing.T) {
	existing := []RangedItem[VoxelPairKey]{
		{Value: VoxelPairKey{1, 2}, Range: rng(0, 5)},
	}
	kept, add := UpdateVoxelPairList(existing, rng(3, 8))
	assert.True(t, add)
	assert.Len(t, kept, 1, "overlapping ranges are not orderable, so neither is eliminated")
}

func TestUpdateCandidateList_PermutationInvariant(t *testing.T) {
	base := []DistanceCandidate{
		{ObjectID: 1, Range: rng(0, 1)},
		{ObjectID: 2, Range: rng(10, 20)},
		{ObjectID: 3, Range: rng(2, 3)},
		{ObjectID: 4, Range: rng(1, 4)}, // overlaps both 1 and 3
	}
	incoming := rng(5, 6)

	want, wantAdd := UpdateCandidateList(append([]DistanceCandidate(nil), base...), incoming)
	wantIDs := idsOf(want)

	for trial := 0; trial < 20; trial++ {
		shuffled := append([]DistanceCandidate(nil), base...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, gotAdd := UpdateCandidateList(shuffled, incoming)
		require.Equal(t, wantAdd, gotAdd)
		assert.ElementsMatch(t, wantIDs, idsOf(got))
	}
}

func idsOf(cs []DistanceCandidate) []int {
	ids := make([]int, len(cs))
	for i, c := range cs {
		ids[i] = c.ObjectID
	}
	return ids
}

func TestResolveSingletons_SingleCandidateIsFinalized(t *testing.T) {
	candidates := []DistanceCandidate{{ObjectID: 7}}

	remaining, finalized := ResolveSingletons(candidates)
	assert.Empty(t, remaining)
	require.Len(t, finalized, 1)
	assert.Equal(t, 7, finalized[0].ObjectID)
}

func TestResolveSingletons_MultipleCandidatesStayAmbiguous(t *testing.T) {
	candidates := []DistanceCandidate{{ObjectID: 1}, {ObjectID: 2}}

	remaining, finalized := ResolveSingletons(candidates)
	assert.Empty(t, finalized)
	assert.Len(t, remaining, 2)
}

func TestResolveSingletons_EmptyListIsNoop(t *testing.T) {
	remaining, finalized := ResolveSingletons(nil)
	assert.Empty(t, remaining)
	assert.Empty(t, finalized)
}

func TestIntersectCandidate_AnyIntersecting(t *testing.T) {
	c := IntersectCandidate{Voxels: []IntersectVoxelPair{{Intersects: false}, {Intersects: true}}}
	assert.True(t, c.AnyIntersecting())

	none := IntersectCandidate{Voxels: []IntersectVoxelPair{{Intersects: false}}}
	assert.False(t, none.AnyIntersecting())
}
