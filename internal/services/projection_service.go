package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"netcost/internal/core"
	"netcost/internal/inventory"
	"netcost/internal/projection"
)

// ProjectionService fetches the two circuit collections and runs the
// projection. The fetches are independent and run concurrently; the
// aggregation starts only after both complete, and never runs if either
// fetch fails.
type ProjectionService struct {
	active   inventory.ActiveCircuitLister
	proposed inventory.ProposedCircuitLister
	horizon  int
}

func NewProjectionService(active inventory.ActiveCircuitLister, proposed inventory.ProposedCircuitLister, horizonMonths int) *ProjectionService {
	if horizonMonths <= 0 {
		horizonMonths = projection.DefaultHorizonMonths
	}
	return &ProjectionService{
		active:   active,
		proposed: proposed,
		horizon:  horizonMonths,
	}
}

// ProjectLocation computes the projection for a location and proposal,
// anchored at the current time.
func (s *ProjectionService) ProjectLocation(ctx context.Context, locationID, proposalID string) ([]projection.MonthPoint, error) {
	return s.ProjectLocationAt(ctx, locationID, proposalID, time.Now())
}

// ProjectLocationAt is ProjectLocation with an explicit anchor date, which
// keeps the computation deterministic for callers that need it.
func (s *ProjectionService) ProjectLocationAt(ctx context.Context, locationID, proposalID string, start time.Time) ([]projection.MonthPoint, error) {
	var (
		existing []core.Circuit
		proposed []core.Circuit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		existing, err = s.active.ListActiveCircuits(gctx, locationID)
		if err != nil {
			return fmt.Errorf("list active circuits (location=%s): %w", locationID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		proposed, err = s.proposed.ListProposedCircuits(gctx, proposalID, locationID)
		if err != nil {
			return fmt.Errorf("list proposed circuits (proposal=%s, location=%s): %w", proposalID, locationID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := projection.ProjectHorizon(existing, proposed, start, s.horizon)

	slog.DebugContext(ctx, "Projection computed",
		"location_id", locationID,
		"proposal_id", proposalID,
		"existing_circuits", len(existing),
		"proposed_circuits", len(proposed),
		"months", len(points))

	return points, nil
}
