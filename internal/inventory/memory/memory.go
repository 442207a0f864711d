package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"netcost/internal/core"
)

// Store is an in-memory circuit inventory used for local development and
// tests. It can be seeded from a JSON file in the data directory.
type Store struct {
	mu       sync.Mutex
	circuits []core.Circuit
	nextRef  int
}

func New(circuits []core.Circuit) *Store {
	return &Store{circuits: append([]core.Circuit(nil), circuits...)}
}

// seedCircuit mirrors core.Circuit with the wire-friendly field shapes used
// in seed files: dates as YYYY-MM-DD strings, cost as cents.
type seedCircuit struct {
	ID               string `json:"id"`
	LocationID       string `json:"location_id"`
	ProposalID       string `json:"proposal_id,omitempty"`
	Set              string `json:"set"`
	Type             string `json:"type"`
	MonthlyCostCents int64  `json:"monthly_cost_cents"`
	ContractStart    string `json:"contract_start,omitempty"`
	ContractEnd      string `json:"contract_end,omitempty"`
}

// NewFromFiles builds a store seeded from <base>/seed_circuits.json when it
// exists; a missing or unreadable seed file yields an empty store. Records
// with malformed dates are kept with the bad date treated as absent.
func NewFromFiles(base string) *Store {
	raw, err := os.ReadFile(filepath.Join(base, "seed_circuits.json"))
	if err != nil {
		return New(nil)
	}

	var seeds []seedCircuit
	if err := json.Unmarshal(raw, &seeds); err != nil {
		slog.Warn("Failed to parse circuit seed file", "error", err, "base", base)
		return New(nil)
	}

	circuits := make([]core.Circuit, 0, len(seeds))
	for _, s := range seeds {
		start, err := core.ParseDate(s.ContractStart)
		if err != nil {
			slog.Warn("Seed circuit has malformed start date, treating as absent",
				"id", s.ID, "contract_start", s.ContractStart)
		}
		end, err := core.ParseDate(s.ContractEnd)
		if err != nil {
			slog.Warn("Seed circuit has malformed end date, treating as absent",
				"id", s.ID, "contract_end", s.ContractEnd)
		}
		circuits = append(circuits, core.Circuit{
			ID:            s.ID,
			LocationID:    s.LocationID,
			ProposalID:    s.ProposalID,
			Set:           core.CircuitSet(s.Set),
			Type:          s.Type,
			MonthlyCost:   core.Money{Cents: s.MonthlyCostCents},
			ContractStart: start,
			ContractEnd:   end,
		})
	}
	return New(circuits)
}

// ListActiveCircuits implements inventory.ActiveCircuitLister.
func (s *Store) ListActiveCircuits(_ context.Context, locationID string) ([]core.Circuit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Circuit
	for _, c := range s.circuits {
		if c.Set == core.ExistingSet && c.LocationID == locationID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListProposedCircuits implements inventory.ProposedCircuitLister.
func (s *Store) ListProposedCircuits(_ context.Context, proposalID, locationID string) ([]core.Circuit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Circuit
	for _, c := range s.circuits {
		if c.Set == core.ProposedSet && c.ProposalID == proposalID && c.LocationID == locationID {
			out = append(out, c)
		}
	}
	return out, nil
}

// UpsertCircuit implements inventory.CircuitWriter. Circuits are matched on
// their external ID; a new circuit gets a synthetic reference.
func (s *Store) UpsertCircuit(_ context.Context, c core.Circuit) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.circuits {
		if s.circuits[i].ID == c.ID && c.ID != "" {
			s.circuits[i] = c
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	s.circuits = append(s.circuits, c)
	s.nextRef = len(s.circuits)
	return fmt.Sprintf("mem:%d", s.nextRef), nil
}

// DeleteCircuit implements inventory.CircuitDeleter.
func (s *Store) DeleteCircuit(_ context.Context, circuitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.circuits {
		if s.circuits[i].ID == circuitID {
			s.circuits = append(s.circuits[:i], s.circuits[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("circuit %s not found", circuitID)
}
