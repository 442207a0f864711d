package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"netcost/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const circuitColumns = `circuit_id, location_id, proposal_id, circuit_set, circuit_type,
	monthly_cost_cents, contract_start, contract_end`

// ListActiveCircuits implements inventory.ActiveCircuitLister.
func (r *SQLiteRepository) ListActiveCircuits(ctx context.Context, locationID string) ([]core.Circuit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+circuitColumns+`
		FROM circuits
		WHERE location_id = ? AND circuit_set = ? AND deleted_at IS NULL
		ORDER BY circuit_id`,
		locationID, core.ExistingSet.String())
	if err != nil {
		return nil, fmt.Errorf("list active circuits: %w", err)
	}
	defer rows.Close()

	return scanCircuits(ctx, rows)
}

// ListProposedCircuits implements inventory.ProposedCircuitLister.
func (r *SQLiteRepository) ListProposedCircuits(ctx context.Context, proposalID, locationID string) ([]core.Circuit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+circuitColumns+`
		FROM circuits
		WHERE proposal_id = ? AND location_id = ? AND circuit_set = ? AND deleted_at IS NULL
		ORDER BY circuit_id`,
		proposalID, locationID, core.ProposedSet.String())
	if err != nil {
		return nil, fmt.Errorf("list proposed circuits: %w", err)
	}
	defer rows.Close()

	return scanCircuits(ctx, rows)
}

// UpsertCircuit implements inventory.CircuitWriter, matching on the external
// circuit ID. Soft-deleted rows are revived by an upsert.
func (r *SQLiteRepository) UpsertCircuit(ctx context.Context, c core.Circuit) (string, error) {
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("validate circuit: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO circuits (circuit_id, location_id, proposal_id, circuit_set, circuit_type,
			monthly_cost_cents, contract_start, contract_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (circuit_id) DO UPDATE SET
			location_id = excluded.location_id,
			proposal_id = excluded.proposal_id,
			circuit_set = excluded.circuit_set,
			circuit_type = excluded.circuit_type,
			monthly_cost_cents = excluded.monthly_cost_cents,
			contract_start = excluded.contract_start,
			contract_end = excluded.contract_end,
			updated_at = CURRENT_TIMESTAMP,
			deleted_at = NULL`,
		c.ID, c.LocationID, nullIfEmpty(c.ProposalID), c.Set.String(), c.Type,
		c.MonthlyCost.Cents, nullIfEmpty(c.ContractStart.String()), nullIfEmpty(c.ContractEnd.String()))
	if err != nil {
		return "", fmt.Errorf("upsert circuit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return c.ID, nil
	}

	slog.InfoContext(ctx, "Circuit saved to SQLite",
		"circuit_id", c.ID,
		"location_id", c.LocationID,
		"set", c.Set.String(),
		"type", c.Type,
		"monthly_cost_cents", c.MonthlyCost.Cents)

	return strconv.FormatInt(id, 10), nil
}

// DeleteCircuit implements inventory.CircuitDeleter as a soft delete.
func (r *SQLiteRepository) DeleteCircuit(ctx context.Context, circuitID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE circuits
		SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE circuit_id = ? AND deleted_at IS NULL`,
		circuitID)
	if err != nil {
		return fmt.Errorf("delete circuit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("circuit %s not found", circuitID)
	}

	slog.InfoContext(ctx, "Circuit soft deleted", "circuit_id", circuitID)
	return nil
}

// CountCircuits returns the number of live circuits, used by readiness checks.
func (r *SQLiteRepository) CountCircuits(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM circuits WHERE deleted_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count circuits: %w", err)
	}
	return n, nil
}

// scanCircuits converts rows into circuits. A malformed stored date is
// treated as absent rather than failing the whole listing: the projection
// then simply never counts that circuit, which matches how missing dates
// behave everywhere else.
func scanCircuits(ctx context.Context, rows *sql.Rows) ([]core.Circuit, error) {
	var out []core.Circuit
	for rows.Next() {
		var (
			c          core.Circuit
			proposalID sql.NullString
			set        string
			start, end sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.LocationID, &proposalID, &set, &c.Type,
			&c.MonthlyCost.Cents, &start, &end); err != nil {
			return nil, fmt.Errorf("scan circuit: %w", err)
		}
		c.ProposalID = proposalID.String
		c.Set = core.CircuitSet(set)

		var err error
		if c.ContractStart, err = core.ParseDate(start.String); err != nil {
			slog.WarnContext(ctx, "Circuit has malformed contract start, treating as absent",
				"circuit_id", c.ID, "contract_start", start.String)
		}
		if c.ContractEnd, err = core.ParseDate(end.String); err != nil {
			slog.WarnContext(ctx, "Circuit has malformed contract end, treating as absent",
				"circuit_id", c.ID, "contract_end", end.String)
		}

		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate circuits: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
