// Package tile implements the lazily-decoded mesh cache of spec §4.4: a
// Tile owns a set of objects (HiMeshWrapper), each partitioned into
// Voxels; RetrieveMesh single-flights decode-on-demand exactly once per
// object regardless of how many goroutines request it concurrently.
// Grounded on original_source/src/storage/tile.h and tile.cpp.
package tile

import (
	"context"

	"github.com/kasuganosora/spatialjoin/internal/aabb"
	"github.com/kasuganosora/spatialjoin/internal/geomkernel"
)

// Kind selects which of a voxel's two decode modes AdvanceTo fills,
// mirroring the original engine's fill_voxels(lod, kind) (0 = segments,
// 1 = triangles): the distance join only ever needs segment data, the
// intersection join only ever needs triangle data, and decoding both for
// every voxel regardless of join kind would be wasted work.
type Kind int

const (
	// KindSegments fills Voxel.Segments, consumed by the distance join's
	// SegDist_batch dispatch.
	KindSegments Kind = iota
	// KindTriangles fills Voxel.Triangles, consumed by the intersection
	// join's TriInt_batch dispatch.
	KindTriangles
)

// Voxel is one spatial partition of a decoded object, holding the
// per-LOD primitive buffer once decoded. Core mirrors the original
// engine's Voxel::core (the box midpoint); it is opaque metadata that
// neither the pruner nor the join driver reads.
type Voxel struct {
	Box  aabb.AABB
	Core [3]float64

	triangles map[int][]geomkernel.Triangle
	segments  map[int][]geomkernel.Segment
}

func newVoxel(box aabb.AABB) *Voxel {
	return &Voxel{
		Box:       box,
		Core:      box.Center(),
		triangles: make(map[int][]geomkernel.Triangle),
		segments:  make(map[int][]geomkernel.Segment),
	}
}

// Triangles returns the voxel's decoded triangles at lod, or (nil, false)
// if KindTriangles has not been filled at this LOD yet.
func (v *Voxel) Triangles(lod int) ([]geomkernel.Triangle, bool) {
	t, ok := v.triangles[lod]
	return t, ok
}

func (v *Voxel) setTriangles(lod int, tris []geomkernel.Triangle) {
	v.triangles[lod] = tris
}

// Segments returns the voxel's decoded segments at lod, or (nil, false)
// if KindSegments has not been filled at this LOD yet.
func (v *Voxel) Segments(lod int) ([]geomkernel.Segment, bool) {
	s, ok := v.segments[lod]
	return s, ok
}

func (v *Voxel) setSegments(lod int, segs []geomkernel.Segment) {
	v.segments[lod] = segs
}

// reset drops all decoded LOD data, matching Voxel::reset in the original
// engine's join-driver reset phase.
func (v *Voxel) reset() {
	v.triangles = make(map[int][]geomkernel.Triangle)
	v.segments = make(map[int][]geomkernel.Segment)
}

// Mesh is the external collaborator a decoder hands back for one object:
// it knows how to materialize that object's voxel partition and, for each
// voxel, its geometry at a requested LOD in either of the original
// engine's two fill_voxels modes. Implementations typically wrap a
// progressive/hierarchical mesh format (the spec's HiMesh).
type Mesh interface {
	// Voxels returns the object's spatial partition — stable across LOD
	// levels; only the primitive content within each voxel refines.
	Voxels() []aabb.AABB
	// VoxelSegments decodes voxel index i's segment buffer at the given
	// LOD (fill_voxels(lod, 0)), for distance-join dispatch.
	VoxelSegments(ctx context.Context, lod, voxelIndex int) ([]geomkernel.Segment, error)
	// VoxelTriangles decodes voxel index i's triangle buffer at the given
	// LOD (fill_voxels(lod, 1)), for intersection-join dispatch.
	VoxelTriangles(ctx context.Context, lod, voxelIndex int) ([]geomkernel.Triangle, error)
}

// Decoder is the external collaborator that turns a raw object id into a
// Mesh, standing in for the original engine's disk/codec layer.
type Decoder interface {
	DecodeMesh(ctx context.Context, objectID int) (Mesh, error)
}
