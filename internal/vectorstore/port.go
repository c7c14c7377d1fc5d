// Package vectorstore implements the VectorStore port (spec §4.B): a narrow
// interface for embedding storage and similarity search, with an embedded
// driver (github.com/philippgille/chromem-go, in-process, file-backed) and a
// remote driver (github.com/qdrant/go-client, gRPC) selected at startup by
// config.VectorBackend. Both drivers are adapted from the teacher's chromem
// and qdrant backends, narrowed to the operations DocBro actually needs and
// stripped of the teacher's multi-tenant payload isolation (DocBro has a
// single local operator, not multiple tenants sharing one process).
package vectorstore

import (
	"context"
	"errors"
)

// Point is one embedding plus its payload, keyed by chunk ID.
type Point struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// SearchHit is one ranked result from Search.
type SearchHit struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Health reports a backend's reachability, name and detail, surfaced by
// `docbro health` (spec §6). Neither driver fills Dimension; dimensions are
// recorded per collection, so it stays zero.
type Health struct {
	Reachable bool
	Backend   string
	Dimension int
	Detail    string
}

// ErrDimMismatch is returned when a Point's vector length does not match the
// collection's established dimension (spec §7 VectorDimError).
var ErrDimMismatch = errors.New("vectorstore: embedding dimension mismatch")

// VectorStore is the port every box's embedding storage goes through (spec
// §4.B). A collection name is always a box ID: DocBro gives each box its own
// collection so deleting a box is one DeleteCollection call.
type VectorStore interface {
	// EnsureCollection creates the named collection if absent, recording dim
	// as its vector dimension. Calling it again with a different dim than the
	// one already recorded returns ErrDimMismatch.
	EnsureCollection(ctx context.Context, collection string, dim int) error

	// Upsert writes points into collection, overwriting any existing point
	// with the same ID. All points must share the collection's dimension.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the top k points by cosine similarity to query.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchHit, error)

	// DeleteByFilter removes every point whose metadata matches all of
	// filter's key/value pairs. An empty filter deletes nothing; callers
	// that mean "delete everything" must use DeleteCollection.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error

	// DeleteCollection removes a collection and every point in it, used when
	// a box is deleted (spec §3).
	DeleteCollection(ctx context.Context, collection string) error

	// Count returns the number of points in a collection, used for the §8
	// chunk-count-equals-point-count invariant.
	Count(ctx context.Context, collection string) (int, error)

	// Health reports reachability for `docbro health`.
	Health(ctx context.Context) Health

	// Close releases any underlying connections or file handles.
	Close() error
}
