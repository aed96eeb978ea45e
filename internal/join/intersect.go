package join

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kasuganosora/spatialjoin/internal/batch"
	"github.com/kasuganosora/spatialjoin/internal/pruner"
	"github.com/kasuganosora/spatialjoin/internal/tile"
)

type intersectState struct {
	object1    *tile.HiMeshWrapper
	candidates []pruner.IntersectCandidate
}

// Intersect finds, for every object in t1, every object in t2 whose
// surfaces provably intersect, refining LOD only for candidates whose
// bounding-box overlap has not yet been confirmed or ruled out at the
// triangle level. Grounded on SpatialJoin.cpp's intersect().
func (d *Driver) Intersect(ctx context.Context, t1, t2 *tile.Tile) (results []ObjectResult, err error) {
	runID := uuid.New()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v (run %s)", ErrInvariantViolation, r, runID)
		}
	}()

	d.Logger.Printf("join[%s]: intersect start", runID)
	states := d.buildIntersectCandidates(t1, t2)
	out, err := d.refineIntersect(ctx, runID, t1, t2, states)
	if err != nil {
		return nil, err
	}
	d.Logger.Printf("join[%s]: intersect done, %d objects matched", runID, len(out))
	return out, nil
}

func (d *Driver) buildIntersectCandidates(t1, t2 *tile.Tile) []intersectState {
	sameTile := t1 == t2
	objs1 := t1.Objects()
	objs2 := t2.Objects()

	states := make([]intersectState, 0, len(objs1))
	for _, o1 := range objs1 {
		var candidates []pruner.IntersectCandidate
		for _, o2 := range objs2 {
			if sameTile && o1.ID == o2.ID {
				continue
			}
			if !o1.Box.Intersect(o2.Box) {
				continue
			}
			var voxels []pruner.IntersectVoxelPair
			for i1, v1 := range o1.Voxels() {
				for i2, v2 := range o2.Voxels() {
					if v1.Box.Intersect(v2.Box) {
						voxels = append(voxels, pruner.IntersectVoxelPair{Pair: pruner.VoxelPairKey{V1: i1, V2: i2}})
					}
				}
			}
			if len(voxels) > 0 {
				candidates = append(candidates, pruner.IntersectCandidate{ObjectID: o2.ID, Voxels: voxels})
			}
		}
		if len(candidates) > 0 {
			states = append(states, intersectState{object1: o1, candidates: candidates})
		}
	}
	return states
}

func (d *Driver) refineIntersect(ctx context.Context, runID uuid.UUID, t1, t2 *tile.Tile, states []intersectState) ([]ObjectResult, error) {
	resultsByObject := make(map[int]*ObjectResult)
	finalize := func(objectID, otherID int) {
		r, ok := resultsByObject[objectID]
		if !ok {
			r = &ObjectResult{ObjectID: objectID}
			resultsByObject[objectID] = r
		}
		r.Matches = append(r.Matches, Match{OtherID: otherID})
	}

	lod := d.Config.BaseLOD
	for {
		atTopLOD := lod >= d.Config.TopLOD
		if atTopLOD {
			lod = d.Config.TopLOD
		}

		remaining := make([]intersectState, 0, len(states))
		totalPairs := 0
		for _, st := range states {
			var undecided []pruner.IntersectCandidate
			for _, c := range st.candidates {
				if c.AnyIntersecting() {
					finalize(st.object1.ID, c.ObjectID)
					continue
				}
				undecided = append(undecided, c)
				totalPairs += len(c.Voxels)
			}
			if len(undecided) == 0 {
				continue
			}
			st.candidates = undecided
			remaining = append(remaining, st)
		}
		states = remaining
		if len(states) == 0 || totalPairs == 0 {
			break
		}

		if err := d.decodeIntersect(ctx, t1, t2, states, lod); err != nil {
			return nil, err
		}

		pairs, index, err := packIntersect(t2, states, lod)
		if err != nil {
			return nil, err
		}

		handle, err := d.Resources.GetIntersect(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		flags, err := batch.TriIntBatch(ctx, d.Pool, pairs)
		d.Resources.Release(handle)
		if err != nil {
			return nil, err
		}

		scatterIntersect(states, index, flags)

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
			// Every remaining candidate has now been measured at full
			// fidelity: a confirmed hit is reported, everything else is
			// confirmed disjoint and dropped.
			for _, st := range states {
				for _, c := range st.candidates {
					if c.AnyIntersecting() {
						finalize(st.object1.ID, c.ObjectID)
					}
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

func (d *Driver) decodeIntersect(ctx context.Context, t1, t2 *tile.Tile, states []intersectState, lod int) error {
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
		if err := w.AdvanceTo(ctx, lod, tile.KindTriangles); err != nil {
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

type intersectIndex struct {
	stateIdx, candidateIdx, voxelIdx int
}

// packIntersect expands every still-undecided voxel pair into its full
// triangle-pair cross product at the current LOD, recording which voxel
// pair each triangle-pair result belongs to.
func packIntersect(t2 *tile.Tile, states []intersectState, lod int) ([]batch.TriPair, []intersectIndex, error) {
	var pairs []batch.TriPair
	var index []intersectIndex

	for si, st := range states {
		v1s := st.object1.Voxels()
		for ci, c := range st.candidates {
			o2, ok := t2.Object(c.ObjectID)
			if !ok {
				return nil, nil, fmt.Errorf("%w: candidate object %d vanished from tile2", ErrInvariantViolation, c.ObjectID)
			}
			v2s := o2.Voxels()
			for vi, vp := range c.Voxels {
				v1 := v1s[vp.Pair.V1]
				v2 := v2s[vp.Pair.V2]
				tris1, ok1 := v1.Triangles(lod)
				tris2, ok2 := v2.Triangles(lod)
				if !ok1 || !ok2 {
					return nil, nil, fmt.Errorf("%w: voxel pair missing lod %d triangle data", ErrInvariantViolation, lod)
				}
				for _, s := range tris1 {
					for _, t := range tris2 {
						pairs = append(pairs, batch.TriPair{S: s, T: t})
						index = append(index, intersectIndex{stateIdx: si, candidateIdx: ci, voxelIdx: vi})
					}
				}
			}
		}
	}
	return pairs, index, nil
}

// scatterIntersect ORs each triangle-pair result into its owning voxel
// pair's Intersects flag.
func scatterIntersect(states []intersectState, index []intersectIndex, flags []bool) {
	for i, idx := range index {
		if !flags[i] {
			continue
		}
		vp := &states[idx.stateIdx].candidates[idx.candidateIdx].Voxels[idx.voxelIdx]
		vp.Intersects = true
	}
}
