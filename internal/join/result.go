package join

// Match is one resolved pairing for a query object.
type Match struct {
	OtherID int
	// Distance is populated for NearestNeighbor; zero for Intersect
	// (where membership in Matches already means "intersects").
	Distance float64
}

// ObjectResult summarizes everything found for one object1 query,
// recovered from spec discussion §6/§9 of a per-object result surface —
// the original engine reports via in-place mutation of mesh_wrapper state
// instead, which has no Go equivalent worth keeping.
type ObjectResult struct {
	ObjectID int
	Matches  []Match
}
