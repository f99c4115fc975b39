package interfaces

import (
	"context"

	"github.com/schedflow/schedflow/internal/model"
)

// Planner submits an assembled scheduling request to the external
// constraint-based optimizer. The call is fire-and-forget: the solver
// writes its solution back through its own channel, so no response is
// consumed here.
type Planner interface {
	Submit(ctx context.Context, req *model.PlannerRequest) error
}
