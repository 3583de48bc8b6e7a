package app

import (
	"context"

	"github.com/coralnet/reefhub/domain"
)

// RouteDetector reports which backend route variants are available.
type RouteDetector interface {
	// Detect probes once per session; later calls reuse the result.
	Detect(ctx context.Context) (domain.RouteSupport, error)
}
