package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

// Handler mounts a domain's HTTP routes on the shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Worker is a background loop that runs until its context is cancelled.
type Worker func(ctx context.Context)
