package worker

import (
	"context"
	"testing"

	"netcost/internal/amqp"
	"netcost/internal/core"
	"netcost/internal/inventory/memory"
)

func upsertMsg(id string) *amqp.CircuitUpsertMessage {
	return &amqp.CircuitUpsertMessage{
		CircuitID:        id,
		LocationID:       "loc-1",
		Set:              "existing",
		Type:             "MPLS",
		MonthlyCostCents: 45000,
		ContractStart:    "2024-01-15",
		ContractEnd:      "2026-01-15",
	}
}

func TestImportWorker_HandleUpsert(t *testing.T) {
	store := memory.New(nil)
	w := NewImportWorker(store, store)
	ctx := context.Background()

	if err := w.HandleUpsert(ctx, upsertMsg("ckt-1")); err != nil {
		t.Fatalf("HandleUpsert() error: %v", err)
	}

	got, _ := store.ListActiveCircuits(ctx, "loc-1")
	if len(got) != 1 {
		t.Fatalf("stored %d circuits, want 1", len(got))
	}
	if got[0].MonthlyCost.Cents != 45000 {
		t.Errorf("MonthlyCost = %d, want 45000", got[0].MonthlyCost.Cents)
	}
	if !got[0].ContractStart.Equal(core.NewDate(2024, 1, 15).Time) {
		t.Errorf("ContractStart = %v, want 2024-01-15", got[0].ContractStart)
	}
}

func TestImportWorker_HandleUpsert_MalformedDateDegrades(t *testing.T) {
	store := memory.New(nil)
	w := NewImportWorker(store, store)
	ctx := context.Background()

	msg := upsertMsg("ckt-1")
	msg.ContractStart = "01/15/2024"
	if err := w.HandleUpsert(ctx, msg); err != nil {
		t.Fatalf("HandleUpsert() should degrade, not fail: %v", err)
	}

	got, _ := store.ListActiveCircuits(ctx, "loc-1")
	if len(got) != 1 {
		t.Fatalf("stored %d circuits, want 1", len(got))
	}
	if !got[0].ContractStart.IsEmpty() {
		t.Errorf("malformed start date should be stored as absent, got %v", got[0].ContractStart)
	}
}

func TestImportWorker_HandleUpsert_MissingID(t *testing.T) {
	store := memory.New(nil)
	w := NewImportWorker(store, store)

	msg := upsertMsg("")
	if err := w.HandleUpsert(context.Background(), msg); err == nil {
		t.Error("HandleUpsert() accepted a message without a circuit id")
	}
}

func TestImportWorker_HandleDelete(t *testing.T) {
	store := memory.New(nil)
	w := NewImportWorker(store, store)
	ctx := context.Background()

	if err := w.HandleUpsert(ctx, upsertMsg("ckt-1")); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleDelete(ctx, &amqp.CircuitDeleteMessage{CircuitID: "ckt-1"}); err != nil {
		t.Fatalf("HandleDelete() error: %v", err)
	}

	got, _ := store.ListActiveCircuits(ctx, "loc-1")
	if len(got) != 0 {
		t.Errorf("circuit still present after delete: %+v", got)
	}

	// Deleting again is a no-op, not a redelivery loop.
	if err := w.HandleDelete(ctx, &amqp.CircuitDeleteMessage{CircuitID: "ckt-1"}); err != nil {
		t.Errorf("HandleDelete() of missing circuit should not error: %v", err)
	}
}
