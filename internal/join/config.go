// Package join implements the LOD-refining join driver of spec §4.6: it
// orchestrates C1-C5 (geomkernel, batch, workerpool, tile, pruner) through
// the filter -> decode -> pack -> compute -> scatter -> re-prune -> reset
// loop that is the engine's reason for existing. Grounded end-to-end on
// original_source/src/join/SpatialJoin.cpp's nearest_neighbor/intersect.
package join

// Config parameterizes the LOD schedule, mirroring SpatialJoin's
// base_lod/lod_gap/top_lod fields, and the accelerator memory hint.
// Worker counts live on workerpool.Config.
type Config struct {
	// BaseLOD is the first (coarsest) level of detail considered.
	BaseLOD int
	// LODGap is the step between successive refinement levels.
	LODGap int
	// TopLOD is the finest level of detail; reaching it forces every
	// remaining candidate to an exact answer.
	TopLOD int
	// DeviceMemoryHint is passed to ResourceBroker.GetDistance as the
	// minimum accelerator memory a batch dispatch needs.
	DeviceMemoryHint int64
}

// DefaultConfig mirrors the original engine's defaults (base_lod=0,
// lod_gap=50, top_lod=100).
func DefaultConfig() Config {
	return Config{BaseLOD: 0, LODGap: 50, TopLOD: 100, DeviceMemoryHint: 0}
}
