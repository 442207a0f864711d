package services

import (
	"context"
	"fmt"
	"log/slog"

	"netcost/internal/amqp"
	"netcost/internal/core"
	"netcost/internal/storage"
)

// CircuitService orchestrates circuit writes across SQLite and AMQP
type CircuitService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewCircuitService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *CircuitService {
	return &CircuitService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// UpsertCircuit saves a circuit locally and publishes an upsert event
func (s *CircuitService) UpsertCircuit(ctx context.Context, c core.Circuit) (string, error) {
	// Save to SQLite first (fast, reliable)
	ref, err := s.storage.UpsertCircuit(ctx, c)
	if err != nil {
		return "", fmt.Errorf("save circuit: %w", err)
	}

	// Publish async event (non-blocking for the caller's workflow)
	if err := s.publishUpsert(ctx, c); err != nil {
		slog.ErrorContext(ctx, "Failed to publish circuit upsert event",
			"circuit_id", c.ID, "error", err)
		// Don't fail the request - the circuit is saved locally
	}

	return ref, nil
}

// DeleteCircuit soft deletes a circuit locally and publishes a delete event
func (s *CircuitService) DeleteCircuit(ctx context.Context, circuitID string) error {
	if err := s.storage.DeleteCircuit(ctx, circuitID); err != nil {
		return fmt.Errorf("delete circuit: %w", err)
	}

	if err := s.publishDelete(ctx, circuitID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish circuit delete event",
			"circuit_id", circuitID, "error", err)
		// Don't fail the request - the circuit is deleted locally
	}

	return nil
}

func (s *CircuitService) publishUpsert(ctx context.Context, c core.Circuit) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping upsert event")
		return nil
	}
	return s.amqpClient.PublishCircuitUpsert(ctx, c)
}

func (s *CircuitService) publishDelete(ctx context.Context, circuitID string) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping delete event")
		return nil
	}
	return s.amqpClient.PublishCircuitDelete(ctx, circuitID)
}

// Close closes both storage and AMQP connections
func (s *CircuitService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close circuit service: %v", errs)
	}

	return nil
}
