package inventory

import (
	"context"

	"netcost/internal/core"
)

// Ports for circuit data sources and sinks.
type (
	// ActiveCircuitLister returns the circuits currently under contract at a
	// location, independent of any proposal.
	ActiveCircuitLister interface {
		ListActiveCircuits(ctx context.Context, locationID string) ([]core.Circuit, error)
	}

	// ProposedCircuitLister returns the circuits a proposal would add at a
	// location.
	ProposedCircuitLister interface {
		ListProposedCircuits(ctx context.Context, proposalID, locationID string) ([]core.Circuit, error)
	}

	// CircuitWriter stores a circuit and returns its storage reference.
	CircuitWriter interface {
		UpsertCircuit(ctx context.Context, c core.Circuit) (ref string, err error)
	}

	// CircuitDeleter removes a circuit by its external ID.
	CircuitDeleter interface {
		DeleteCircuit(ctx context.Context, circuitID string) error
	}
)
