package tile

import (
	"context"
	"fmt"
	"sync"

	"github.com/kasuganosora/spatialjoin/internal/aabb"
)

// HiMeshWrapper is one object's cache entry within a Tile: its bounding
// box, voxel partition, and (once decoded) mesh handle. Box and Voxels are
// populated at construction from metadata that does not require a full
// mesh decode (mirroring the original engine's wrapper bbox, read once at
// tile load); Mesh itself is filled lazily by RetrieveMesh.
type HiMeshWrapper struct {
	ID  int
	Box aabb.AABB

	mu     sync.Mutex
	mesh   Mesh
	voxels []*Voxel
}

// Voxels returns the wrapper's voxel partition, built by New from the
// tile's voxel boxes; it does not require RetrieveMesh. A voxel's
// primitive data is filled only by AdvanceTo.
func (w *HiMeshWrapper) Voxels() []*Voxel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.voxels
}

// AdvanceTo ensures every voxel's primitive data of the given kind is
// filled for lod, calling into Mesh.VoxelSegments or Mesh.VoxelTriangles
// for any voxel that hasn't been decoded in that mode at this level yet —
// the Go equivalent of the original engine's
// `if (v->data.find(lod) == v->data.end()) wrapper->fill_voxels(lod, kind);`
// guard in tile.cpp's retrieve_mesh-adjacent decode path.
func (w *HiMeshWrapper) AdvanceTo(ctx context.Context, lod int, kind Kind) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.mesh == nil {
		return fmt.Errorf("tile: object %d has not been retrieved yet", w.ID)
	}

	for i, v := range w.voxels {
		switch kind {
		case KindSegments:
			if _, ok := v.Segments(lod); ok {
				continue
			}
			segs, err := w.mesh.VoxelSegments(ctx, lod, i)
			if err != nil {
				return fmt.Errorf("tile: decode object %d voxel %d at lod %d: %w", w.ID, i, lod, err)
			}
			v.setSegments(lod, segs)
		case KindTriangles:
			if _, ok := v.Triangles(lod); ok {
				continue
			}
			tris, err := w.mesh.VoxelTriangles(ctx, lod, i)
			if err != nil {
				return fmt.Errorf("tile: decode object %d voxel %d at lod %d: %w", w.ID, i, lod, err)
			}
			v.setTriangles(lod, tris)
		default:
			return fmt.Errorf("tile: unknown voxel fill kind %d", kind)
		}
	}
	return nil
}

// Reset drops all decoded per-voxel data and forgets the mesh handle,
// matching the original engine's HiMesh_Wrapper::reset called at the end
// of every LOD iteration of the join driver (spec §4.6).
func (w *HiMeshWrapper) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mesh = nil
	for _, v := range w.voxels {
		v.reset()
	}
}

// Tile owns a set of objects and arbitrates concurrent decode access to
// them. readLock guards only the objects map; Decoder.DecodeMesh runs
// under each HiMeshWrapper's own mutex and not under readLock, so decodes
// of different objects are not serialized against each other. The
// per-object mutex gives single-flight semantics: only the first caller
// for an object actually decodes it, and concurrent callers block on that
// same decode rather than racing it.
type Tile struct {
	decoder Decoder

	readLock sync.RWMutex
	objects  map[int]*HiMeshWrapper
}

// New creates a Tile whose objects are decoded on demand via decoder.
// boxes maps object id to its bounding box and voxelBoxes maps it to its
// voxel partition, as if read once from the tile's metadata header at
// load time.
func New(decoder Decoder, boxes map[int]aabb.AABB, voxelBoxes map[int][]aabb.AABB) *Tile {
	objects := make(map[int]*HiMeshWrapper, len(boxes))
	for id, box := range boxes {
		vb := voxelBoxes[id]
		voxels := make([]*Voxel, len(vb))
		for i, b := range vb {
			voxels[i] = newVoxel(b)
		}
		objects[id] = &HiMeshWrapper{ID: id, Box: box, voxels: voxels}
	}
	return &Tile{decoder: decoder, objects: objects}
}

// Objects returns every wrapper in the tile, in no particular order — the
// join driver (internal/join) is responsible for any ordering it needs
// during the pack/scatter walk.
func (t *Tile) Objects() []*HiMeshWrapper {
	t.readLock.RLock()
	defer t.readLock.RUnlock()

	out := make([]*HiMeshWrapper, 0, len(t.objects))
	for _, w := range t.objects {
		out = append(out, w)
	}
	return out
}

// Object returns the wrapper for objectID without triggering a decode —
// used by the join driver to resolve a candidate's object id back to its
// bounding box and voxel partition before deciding whether to retrieve it.
func (t *Tile) Object(objectID int) (*HiMeshWrapper, bool) {
	t.readLock.RLock()
	defer t.readLock.RUnlock()
	w, ok := t.objects[objectID]
	return w, ok
}

// RetrieveMesh returns the wrapper for objectID, decoding its mesh exactly
// once. Concurrent callers for the same object block on the wrapper's own
// lock rather than triggering redundant decodes — the double-checked
// w.mesh == nil below is the single-flight gate, grounded on tile.cpp's
// retrieve_mesh.
func (t *Tile) RetrieveMesh(ctx context.Context, objectID int) (*HiMeshWrapper, error) {
	t.readLock.RLock()
	w, ok := t.objects[objectID]
	t.readLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tile: unknown object %d", objectID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mesh != nil {
		return w, nil
	}

	mesh, err := t.decoder.DecodeMesh(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("tile: decode object %d: %w", objectID, err)
	}
	w.mesh = mesh
	return w, nil
}
