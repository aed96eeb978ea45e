package main

import (
	"context"
	"fmt"
	"log"

	"github.com/kasuganosora/spatialjoin/internal/aabb"
	"github.com/kasuganosora/spatialjoin/internal/geomkernel"
	"github.com/kasuganosora/spatialjoin/internal/join"
	"github.com/kasuganosora/spatialjoin/internal/tile"
	"github.com/kasuganosora/spatialjoin/pkg/workerpool"
)

// demoDecoder stands in for the tile storage layer: a real deployment
// decodes objects from disk-backed HiMesh files, but this binary only
// needs to prove the join driver end to end.
type demoDecoder struct {
	triangles map[int]geomkernel.Triangle
}

func (d *demoDecoder) DecodeMesh(ctx context.Context, objectID int) (tile.Mesh, error) {
	return &demoMesh{tri: d.triangles[objectID]}, nil
}

type demoMesh struct {
	tri geomkernel.Triangle
}

func (m *demoMesh) Voxels() []aabb.AABB { return nil }

func (m *demoMesh) VoxelTriangles(ctx context.Context, lod, voxelIndex int) ([]geomkernel.Triangle, error) {
	return []geomkernel.Triangle{m.tri}, nil
}

func (m *demoMesh) VoxelSegments(ctx context.Context, lod, voxelIndex int) ([]geomkernel.Segment, error) {
	t := m.tri
	return []geomkernel.Segment{
		{P: t[0], A: [3]float32{t[1][0] - t[0][0], t[1][1] - t[0][1], t[1][2] - t[0][2]}},
	}, nil
}

func box(minX, minY, minZ, maxX, maxY, maxZ float64) aabb.AABB {
	return aabb.AABB{Min: [3]float64{minX, minY, minZ}, Max: [3]float64{maxX, maxY, maxZ}}
}

func main() {
	pool, err := workerpool.New(workerpool.DefaultConfig())
	if err != nil {
		log.Fatal("worker pool init failed:", err)
	}
	if err := pool.Start(); err != nil {
		log.Fatal("worker pool start failed:", err)
	}
	defer pool.Close()

	resources := workerpool.NewResourceBroker(workerpool.NewDeviceBroker())
	driver := join.NewDriver(join.DefaultConfig(), resources, pool, log.Default())

	t1 := tile.New(
		&demoDecoder{triangles: map[int]geomkernel.Triangle{1: {{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}},
		map[int]aabb.AABB{1: box(0, 0, 0, 1, 1, 1)},
		map[int][]aabb.AABB{1: {box(0, 0, 0, 1, 1, 1)}},
	)
	t2 := tile.New(
		&demoDecoder{triangles: map[int]geomkernel.Triangle{2: {{5, 0, 0}, {6, 0, 0}, {5, 1, 0}}}},
		map[int]aabb.AABB{2: box(5, 0, 0, 6, 1, 1)},
		map[int][]aabb.AABB{2: {box(5, 0, 0, 6, 1, 1)}},
	)

	ctx := context.Background()

	fmt.Println("running nearest-neighbor join...")
	results, err := driver.NearestNeighbor(ctx, t1, t2)
	if err != nil {
		log.Fatal("nearest neighbor join failed:", err)
	}
	for _, r := range results {
		for _, m := range r.Matches {
			fmt.Printf("object %d -> nearest object %d, distance %.4f\n", r.ObjectID, m.OtherID, m.Distance)
		}
	}

	fmt.Println("running intersection join...")
	hits, err := driver.Intersect(ctx, t1, t2)
	if err != nil {
		log.Fatal("intersection join failed:", err)
	}
	if len(hits) == 0 {
		fmt.Println("no intersecting pairs")
	}
	for _, r := range hits {
		for _, m := range r.Matches {
			fmt.Printf("object %d intersects object %d\n", r.ObjectID, m.OtherID)
		}
	}
}
