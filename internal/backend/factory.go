package backend

import (
	"context"
	"fmt"
	"log/slog"

	"netcost/internal/amqp"
	"netcost/internal/core"
	"netcost/internal/inventory/memory"
	"netcost/internal/services"
	"netcost/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it, writes stay local and no events go out
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	circuitService := services.NewCircuitService(repo, amqpClient)
	adapter := &sqliteAdapter{repo: repo, circuits: circuitService}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &Result{
		Backend: adapter,
		Cleanup: circuitService.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &Result{
		Backend: store,
		Cleanup: nil,
	}, nil
}

// sqliteAdapter reads straight from the repository while routing writes
// through the circuit service so events get published.
type sqliteAdapter struct {
	repo     *storage.SQLiteRepository
	circuits *services.CircuitService
}

func (a *sqliteAdapter) ListActiveCircuits(ctx context.Context, locationID string) ([]core.Circuit, error) {
	return a.repo.ListActiveCircuits(ctx, locationID)
}

func (a *sqliteAdapter) ListProposedCircuits(ctx context.Context, proposalID, locationID string) ([]core.Circuit, error) {
	return a.repo.ListProposedCircuits(ctx, proposalID, locationID)
}

func (a *sqliteAdapter) UpsertCircuit(ctx context.Context, c core.Circuit) (string, error) {
	return a.circuits.UpsertCircuit(ctx, c)
}

func (a *sqliteAdapter) DeleteCircuit(ctx context.Context, circuitID string) error {
	return a.circuits.DeleteCircuit(ctx, circuitID)
}
