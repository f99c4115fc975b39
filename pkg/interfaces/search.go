package interfaces

import (
	"context"

	"github.com/schedflow/schedflow/internal/model"
)

// SearchHit is a nearest-neighbor match from the vector index.
type SearchHit struct {
	// ID is the primary key of the previously classified event.
	ID string
	// Score is the similarity score of the match.
	Score float64
}

// VectorIndex performs nearest-neighbor lookups over previously
// classified events. Implementations must be safe for concurrent use.
type VectorIndex interface {
	// NearestNeighbor returns the closest prior event of the user to
	// the given vector, or (nil, nil) when the index has no entry.
	NearestNeighbor(ctx context.Context, userID string, vector []float32) (*SearchHit, error)

	// Delete evicts an index entry, used when it points at an event
	// that no longer exists in primary storage.
	Delete(ctx context.Context, id string) error

	// Upsert stores an event vector for future classification.
	Upsert(ctx context.Context, id, userID string, vector []float32) error
}

// Embedder converts an event into its embedding vector.
type Embedder interface {
	Embed(ctx context.Context, event model.Event) ([]float32, error)
}
