package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"netcost/internal/amqp"
	"netcost/internal/core"
	"netcost/internal/inventory"
)

// ImportWorker applies circuit events from the upstream inventory system to
// local storage so the API always projects from a warm local copy.
type ImportWorker struct {
	writer  inventory.CircuitWriter
	deleter inventory.CircuitDeleter
}

func NewImportWorker(writer inventory.CircuitWriter, deleter inventory.CircuitDeleter) *ImportWorker {
	return &ImportWorker{
		writer:  writer,
		deleter: deleter,
	}
}

// HandleUpsert processes a single circuit upsert event.
func (w *ImportWorker) HandleUpsert(ctx context.Context, msg *amqp.CircuitUpsertMessage) error {
	slog.InfoContext(ctx, "Processing circuit upsert",
		"circuit_id", msg.CircuitID,
		"location_id", msg.LocationID,
		"set", msg.Set)

	c, err := circuitFromMessage(msg)
	if err != nil {
		return fmt.Errorf("convert upsert message: %w", err)
	}

	if _, err := w.writer.UpsertCircuit(ctx, c); err != nil {
		return fmt.Errorf("store circuit %s: %w", msg.CircuitID, err)
	}
	return nil
}

// HandleDelete processes a single circuit delete event. A circuit that is
// already gone locally is not an error worth a redelivery loop.
func (w *ImportWorker) HandleDelete(ctx context.Context, msg *amqp.CircuitDeleteMessage) error {
	slog.InfoContext(ctx, "Processing circuit delete", "circuit_id", msg.CircuitID)

	if err := w.deleter.DeleteCircuit(ctx, msg.CircuitID); err != nil {
		slog.WarnContext(ctx, "Circuit delete did not apply",
			"circuit_id", msg.CircuitID, "error", err)
	}
	return nil
}

// circuitFromMessage converts the wire record into the domain type. Malformed
// contract dates degrade to absent instead of rejecting the whole record: the
// circuit then never counts as active, which is the defined behavior for
// missing dates.
func circuitFromMessage(msg *amqp.CircuitUpsertMessage) (core.Circuit, error) {
	if msg.CircuitID == "" {
		return core.Circuit{}, errors.New("missing circuit id")
	}

	start, err := core.ParseDate(msg.ContractStart)
	if err != nil {
		slog.Warn("Upsert has malformed contract start, treating as absent",
			"circuit_id", msg.CircuitID, "contract_start", msg.ContractStart)
	}
	end, err := core.ParseDate(msg.ContractEnd)
	if err != nil {
		slog.Warn("Upsert has malformed contract end, treating as absent",
			"circuit_id", msg.CircuitID, "contract_end", msg.ContractEnd)
	}

	return core.Circuit{
		ID:            msg.CircuitID,
		LocationID:    msg.LocationID,
		ProposalID:    msg.ProposalID,
		Set:           core.CircuitSet(msg.Set),
		Type:          msg.Type,
		MonthlyCost:   core.Money{Cents: msg.MonthlyCostCents},
		ContractStart: start,
		ContractEnd:   end,
	}, nil
}
