package join

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/kasuganosora/spatialjoin/internal/aabb"
	"github.com/kasuganosora/spatialjoin/internal/batch"
	"github.com/kasuganosora/spatialjoin/internal/pruner"
	"github.com/kasuganosora/spatialjoin/internal/tile"
	"github.com/kasuganosora/spatialjoin/pkg/workerpool"
)

// Driver orchestrates a spatial join between two tiles across the LOD
// schedule in Config, grounded end-to-end on SpatialJoin::nearest_neighbor
// and SpatialJoin::intersect.
type Driver struct {
	Config    Config
	Resources *workerpool.ResourceBroker
	Pool      *workerpool.Pool
	Logger    *log.Logger
}

// NewDriver wires a Driver from its collaborators. logger may be nil, in
// which case log.Default() is used.
func NewDriver(cfg Config, resources *workerpool.ResourceBroker, pool *workerpool.Pool, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{Config: cfg, Resources: resources, Pool: pool, Logger: logger}
}

type objectState struct {
	object1    *tile.HiMeshWrapper
	candidates []pruner.DistanceCandidate
}

// NearestNeighbor finds, for every object in t1, the candidate object(s)
// in t2 whose true distance cannot be ruled out by any other candidate,
// refining LOD until every object1's candidate set has narrowed to its
// true nearest neighbor(s). Self-comparison is skipped when t1 == t2.
func (d *Driver) NearestNeighbor(ctx context.Context, t1, t2 *tile.Tile) (results []ObjectResult, err error) {
	runID := uuid.New()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v (run %s)", ErrInvariantViolation, r, runID)
		}
	}()

	d.Logger.Printf("join[%s]: nearest_neighbor start", runID)
	states := d.buildDistanceCandidates(t1, t2)
	out, err := d.refineDistance(ctx, runID, t1, t2, states)
	if err != nil {
		return nil, err
	}
	d.Logger.Printf("join[%s]: nearest_neighbor done, %d objects matched", runID, len(out))
	return out, nil
}

// buildDistanceCandidates is the MBB filtering phase: for every object1 in
// t1, it builds the candidate list of object2's in t2 whose box distance
// cannot yet be ruled out, and for every surviving candidate, the voxel
// pairs whose box distance cannot yet be ruled out either — grounded on
// SpatialJoin.cpp's nearest_neighbor filtering loop. A new candidate's
// Range is its object-box distance narrowed by the Ranges of its kept
// voxel pairs; the candidates already in the list are not re-checked
// against that narrowed Range here, so a momentarily dominated candidate
// survives until rePruneDistance runs after the first LOD round.
func (d *Driver) buildDistanceCandidates(t1, t2 *tile.Tile) []objectState {
	sameTile := t1 == t2
	objs1 := t1.Objects()
	objs2 := t2.Objects()

	states := make([]objectState, 0, len(objs1))
	for _, o1 := range objs1 {
		var candidates []pruner.DistanceCandidate
		for _, o2 := range objs2 {
			if sameTile && o1.ID == o2.ID {
				continue
			}
			dist := o1.Box.Distance(o2.Box)
			narrowed, add := pruner.UpdateCandidateList(candidates, dist)
			candidates = narrowed
			if !add {
				continue
			}
			voxels := buildVoxelPairs(o1, o2, candidates)
			if len(voxels) == 0 {
				continue
			}
			for _, v := range voxels {
				dist = dist.Envelope(v.Range)
			}
			candidates = append(candidates, pruner.DistanceCandidate{ObjectID: o2.ID, Range: dist, Voxels: voxels})
		}
		if len(candidates) > 0 {
			states = append(states, objectState{object1: o1, candidates: candidates})
		}
	}
	return states
}

// buildVoxelPairs computes the initial voxel-pair range list for a
// candidate (o1,o2), requiring both the per-candidate voxel-pair list and
// the sibling candidate list to still admit the pair — mirroring
// SpatialJoin.cpp's nested voxel loop.
func buildVoxelPairs(o1, o2 *tile.HiMeshWrapper, siblings []pruner.DistanceCandidate) []pruner.RangedItem[pruner.VoxelPairKey] {
	var voxels []pruner.RangedItem[pruner.VoxelPairKey]
	for i1, v1 := range o1.Voxels() {
		for i2, v2 := range o2.Voxels() {
			dist := v1.Box.Distance(v2.Box)
			narrowed, addV := pruner.UpdateVoxelPairList(voxels, dist)
			_, addC := pruner.UpdateCandidateList(siblings, dist)
			if addV && addC {
				voxels = append(narrowed, pruner.RangedItem[pruner.VoxelPairKey]{
					Value: pruner.VoxelPairKey{V1: i1, V2: i2}, Range: dist,
				})
			} else {
				voxels = narrowed
			}
		}
	}
	return voxels
}

// refineDistance runs the LOD loop of spec §4.6 for a nearest-neighbor
// join: singleton resolution, decode, pack, compute, scatter, re-prune,
// reset — repeated until every object1 is resolved or no candidates
// remain.
func (d *Driver) refineDistance(ctx context.Context, runID uuid.UUID, t1, t2 *tile.Tile, states []objectState) ([]ObjectResult, error) {
	resultsByObject := make(map[int]*ObjectResult)
	finalize := func(objectID int, m Match) {
		r, ok := resultsByObject[objectID]
		if !ok {
			r = &ObjectResult{ObjectID: objectID}
			resultsByObject[objectID] = r
		}
		r.Matches = append(r.Matches, m)
	}

	lod := d.Config.BaseLOD
	for {
		atTopLOD := lod >= d.Config.TopLOD
		if atTopLOD {
			lod = d.Config.TopLOD
		}

		remaining := make([]objectState, 0, len(states))
		totalPairs := 0
		for _, st := range states {
			ambiguous, finalized := pruner.ResolveSingletons(st.candidates)
			for _, f := range finalized {
				finalize(st.object1.ID, Match{OtherID: f.ObjectID, Distance: f.Range.Closest})
			}
			if len(ambiguous) == 0 {
				continue
			}
			st.candidates = ambiguous
			for _, c := range ambiguous {
				totalPairs += len(c.Voxels)
			}
			remaining = append(remaining, st)
		}
		states = remaining
		if len(states) == 0 || totalPairs == 0 {
			break
		}

		if err := d.decodeDistance(ctx, t1, t2, states, lod); err != nil {
			return nil, err
		}

		pairs, index, err := packDistance(t2, states, lod)
		if err != nil {
			return nil, err
		}

		handle, err := d.Resources.GetDistance(ctx, d.Config.DeviceMemoryHint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		distances, err := batch.SegDistBatch(ctx, d.Pool, pairs)
		d.Resources.Release(handle)
		if err != nil {
			return nil, err
		}

		scatterDistance(states, index, distances, atTopLOD)

		states = rePruneDistance(states)

		for _, st := range states {
			st.object1.Reset()
			for _, c := range st.candidates {
				if o2, ok := t2.Object(c.ObjectID); ok {
					o2.Reset()
				}
			}
		}

		d.Logger.Printf("join[%s]: lod=%d objects_remaining=%d pairs_remaining=%d", runID, lod, len(states), totalPairs)

		if atTopLOD {
			for _, st := range states {
				for _, c := range st.candidates {
					finalize(st.object1.ID, Match{OtherID: c.ObjectID, Distance: c.Range.Closest})
				}
			}
			break
		}
		lod += d.Config.LODGap
	}

	out := make([]ObjectResult, 0, len(resultsByObject))
	for _, r := range resultsByObject {
		out = append(out, *r)
	}
	return out, nil
}

func (d *Driver) decodeDistance(ctx context.Context, t1, t2 *tile.Tile, states []objectState, lod int) error {
	seen := make(map[int]bool)
	decode := func(t *tile.Tile, id int) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		w, err := t.RetrieveMesh(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFatalIO, err)
		}
		if err := w.AdvanceTo(ctx, lod, tile.KindSegments); err != nil {
			return fmt.Errorf("%w: %v", ErrFatalIO, err)
		}
		return nil
	}

	for _, st := range states {
		if err := decode(t1, st.object1.ID); err != nil {
			return err
		}
		for _, c := range st.candidates {
			if err := decode(t2, c.ObjectID); err != nil {
				return err
			}
		}
	}
	return nil
}

// distanceIndex locates one voxel pair's segment-pair results within the
// flat SegDistBatch dispatch: [start, end) indexes the contiguous run of
// every segment in voxel V1 crossed with every segment in voxel V2.
type distanceIndex struct {
	stateIdx, candidateIdx, voxelIdx int
	start, end                       int
}

// packDistance walks states/candidates/voxel-pairs in a single
// deterministic order, building the flat SegPair batch — every segment in
// voxel V1 crossed with every segment in voxel V2, mirroring
// SpatialJoin.cpp's pack phase packing each voxel's full fill_voxels(lod,
// 0) segment buffer rather than a single proxy segment — and a parallel
// index used by scatterDistance to write results back to the exact same
// voxel pair, spec §4.6's walk-order invariant.
func packDistance(t2 *tile.Tile, states []objectState, lod int) ([]batch.SegPair, []distanceIndex, error) {
	var pairs []batch.SegPair
	var index []distanceIndex

	for si, st := range states {
		v1s := st.object1.Voxels()
		for ci, c := range st.candidates {
			o2, ok := t2.Object(c.ObjectID)
			if !ok {
				return nil, nil, fmt.Errorf("%w: candidate object %d vanished from tile2", ErrInvariantViolation, c.ObjectID)
			}
			v2s := o2.Voxels()
			for vi, vp := range c.Voxels {
				v1 := v1s[vp.Value.V1]
				v2 := v2s[vp.Value.V2]
				segs1, ok1 := v1.Segments(lod)
				segs2, ok2 := v2.Segments(lod)
				if !ok1 || !ok2 {
					return nil, nil, fmt.Errorf("%w: voxel pair missing lod %d segment data", ErrInvariantViolation, lod)
				}
				start := len(pairs)
				for _, s1 := range segs1 {
					for _, s2 := range segs2 {
						pairs = append(pairs, batch.SegPair{P: s1.P, A: s1.A, Q: s2.P, B: s2.A})
					}
				}
				index = append(index, distanceIndex{stateIdx: si, candidateIdx: ci, voxelIdx: vi, start: start, end: len(pairs)})
			}
		}
	}
	return pairs, index, nil
}

// scatterDistance narrows each voxel pair's Range by the minimum distance
// found across every segment pair dispatched for it (or pins an exact
// value at the final LOD), mirroring SpatialJoin.cpp's scatter phase
// reducing a voxel pair's whole SegDist_batch sub-range to its minimum.
func scatterDistance(states []objectState, index []distanceIndex, distances []float32, atTopLOD bool) {
	for _, idx := range index {
		if idx.start == idx.end {
			continue
		}
		min := distances[idx.start]
		for _, d := range distances[idx.start+1 : idx.end] {
			if d < min {
				min = d
			}
		}
		dd := float64(min)
		vp := &states[idx.stateIdx].candidates[idx.candidateIdx].Voxels[idx.voxelIdx]
		if atTopLOD {
			vp.Range = aabb.Range{Closest: dd, Farthest: dd}
		} else if dd < vp.Range.Farthest {
			vp.Range.Farthest = dd
		}
	}
}

// rePruneDistance recomputes each candidate's envelope Range from its
// surviving voxel pairs, then re-runs UpdateCandidateList against its
// siblings, eliminating anything now strictly dominated.
func rePruneDistance(states []objectState) []objectState {
	out := make([]objectState, 0, len(states))
	for _, st := range states {
		var refreshed []pruner.DistanceCandidate
		for _, c := range st.candidates {
			c.Range = envelopeRange(c.Voxels)
			narrowed, add := pruner.UpdateCandidateList(refreshed, c.Range)
			refreshed = narrowed
			if add {
				refreshed = append(refreshed, c)
			}
		}
		if len(refreshed) > 0 {
			st.candidates = refreshed
			out = append(out, st)
		}
	}
	return out
}

// envelopeRange aggregates a candidate's voxel-pair Ranges into one Range
// covering the candidate as a whole, via Range.Envelope's min-min rule.
func envelopeRange(voxels []pruner.RangedItem[pruner.VoxelPairKey]) aabb.Range {
	r := voxels[0].Range
	for _, v := range voxels[1:] {
		r = r.Envelope(v.Range)
	}
	return r
}
