package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"netcost/internal/core"
)

type fakeActiveLister struct {
	circuits []core.Circuit
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeActiveLister) ListActiveCircuits(ctx context.Context, locationID string) ([]core.Circuit, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.circuits, f.err
}

type fakeProposedLister struct {
	circuits []core.Circuit
	err      error
	calls    atomic.Int32
}

func (f *fakeProposedLister) ListProposedCircuits(ctx context.Context, proposalID, locationID string) ([]core.Circuit, error) {
	f.calls.Add(1)
	return f.circuits, f.err
}

func alwaysActive(id, typ string, cents int64) core.Circuit {
	return core.Circuit{
		ID:            id,
		LocationID:    "loc-1",
		Set:           core.ExistingSet,
		Type:          typ,
		MonthlyCost:   core.Money{Cents: cents},
		ContractStart: core.NewDate(2020, 1, 1),
	}
}

func TestProjectionService_ProjectLocationAt(t *testing.T) {
	active := &fakeActiveLister{circuits: []core.Circuit{alwaysActive("a", "MPLS", 10000)}}
	prop := alwaysActive("b", "DIA", 7500)
	prop.Set = core.ProposedSet
	prop.ProposalID = "prop-1"
	proposed := &fakeProposedLister{circuits: []core.Circuit{prop}}

	svc := NewProjectionService(active, proposed, 36)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	points, err := svc.ProjectLocationAt(context.Background(), "loc-1", "prop-1", start)
	if err != nil {
		t.Fatalf("ProjectLocationAt() error: %v", err)
	}

	if len(points) != 36 {
		t.Fatalf("got %d points, want 36", len(points))
	}
	if points[0].ExistingMPLS != 10000 {
		t.Errorf("existingMpls = %d, want 10000", points[0].ExistingMPLS)
	}
	if points[0].ProposedDIA != 7500 {
		t.Errorf("proposedDia = %d, want 7500", points[0].ProposedDIA)
	}
	if active.calls.Load() != 1 || proposed.calls.Load() != 1 {
		t.Errorf("listers called %d/%d times, want 1/1", active.calls.Load(), proposed.calls.Load())
	}
}

func TestProjectionService_BothFetchesComplete(t *testing.T) {
	// A slow active fetch must still be awaited before aggregation.
	active := &fakeActiveLister{
		circuits: []core.Circuit{alwaysActive("a", "LTE", 5000)},
		delay:    50 * time.Millisecond,
	}
	proposed := &fakeProposedLister{}

	svc := NewProjectionService(active, proposed, 12)
	points, err := svc.ProjectLocationAt(context.Background(), "loc-1", "prop-1",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProjectLocationAt() error: %v", err)
	}
	if points[0].ExistingLTE != 5000 {
		t.Errorf("existingLte = %d, want 5000 (slow fetch result missing)", points[0].ExistingLTE)
	}
}

func TestProjectionService_ActiveFetchFailure(t *testing.T) {
	active := &fakeActiveLister{err: errors.New("inventory unavailable")}
	proposed := &fakeProposedLister{}

	svc := NewProjectionService(active, proposed, 36)
	points, err := svc.ProjectLocationAt(context.Background(), "loc-1", "prop-1", time.Now())
	if err == nil {
		t.Fatal("expected error when the active fetch fails")
	}
	if points != nil {
		t.Error("no projection should be produced when a fetch fails")
	}
}

func TestProjectionService_ProposedFetchFailure(t *testing.T) {
	active := &fakeActiveLister{circuits: []core.Circuit{alwaysActive("a", "MPLS", 10000)}}
	proposed := &fakeProposedLister{err: errors.New("proposal service down")}

	svc := NewProjectionService(active, proposed, 36)
	if _, err := svc.ProjectLocationAt(context.Background(), "loc-1", "prop-1", time.Now()); err == nil {
		t.Fatal("expected error when the proposed fetch fails")
	}
}

func TestProjectionService_EmptyCollections(t *testing.T) {
	svc := NewProjectionService(&fakeActiveLister{}, &fakeProposedLister{}, 36)

	points, err := svc.ProjectLocationAt(context.Background(), "loc-1", "", time.Now())
	if err != nil {
		t.Fatalf("ProjectLocationAt() error: %v", err)
	}
	if len(points) != 36 {
		t.Fatalf("got %d points, want 36", len(points))
	}
	for i, p := range points {
		if p.ExistingMPLS+p.ExistingDIA+p.ExistingBroadband+p.ExistingLTE+
			p.ProposedMPLS+p.ProposedDIA+p.ProposedBroadband+p.ProposedLTE != 0 {
			t.Errorf("point %d has non-zero totals for empty inputs", i)
		}
	}
}

func TestNewProjectionService_DefaultHorizon(t *testing.T) {
	svc := NewProjectionService(&fakeActiveLister{}, &fakeProposedLister{}, 0)
	points, err := svc.ProjectLocationAt(context.Background(), "loc-1", "", time.Now())
	if err != nil {
		t.Fatalf("ProjectLocationAt() error: %v", err)
	}
	if len(points) != 36 {
		t.Errorf("zero horizon should fall back to 36 months, got %d", len(points))
	}
}
