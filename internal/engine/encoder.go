package engine

import (
	"context"

	"github.com/chrsbats/recollex/internal/query"
)

// Encoder is the external SPLADE collaborator: a pure function mapping
// texts to sparse term vectors. Term ids must be strictly ascending and
// below Dims(); weights must be non-negative. The engine is agnostic to
// the encoder's backend — it only ever calls Encode and Dims.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]query.Term, error)
	Dims() uint32
}
