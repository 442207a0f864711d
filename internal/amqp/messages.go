package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindCircuitUpsert = "circuit.upsert"
	KindCircuitDelete = "circuit.delete"
)

// Envelope wraps every circuit event so a single queue can carry both kinds.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// CircuitUpsertMessage carries a full circuit record from the upstream
// inventory system. Dates travel as YYYY-MM-DD strings; either may be empty.
type CircuitUpsertMessage struct {
	CircuitID        string `json:"circuit_id"`
	LocationID       string `json:"location_id"`
	ProposalID       string `json:"proposal_id,omitempty"`
	Set              string `json:"set"`
	Type             string `json:"type"`
	MonthlyCostCents int64  `json:"monthly_cost_cents"`
	ContractStart    string `json:"contract_start,omitempty"`
	ContractEnd      string `json:"contract_end,omitempty"`
}

// CircuitDeleteMessage signals that a circuit left the upstream inventory.
type CircuitDeleteMessage struct {
	CircuitID string `json:"circuit_id"`
}

// NewEnvelope wraps a payload of the given kind, stamping the current time.
func NewEnvelope(kind string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Envelope{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// ToJSON converts the envelope to JSON bytes
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON creates an envelope from JSON bytes
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeUpsert extracts the upsert payload from an envelope.
func (e *Envelope) DecodeUpsert() (*CircuitUpsertMessage, error) {
	if e.Kind != KindCircuitUpsert {
		return nil, fmt.Errorf("envelope kind %q is not %q", e.Kind, KindCircuitUpsert)
	}
	var msg CircuitUpsertMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal upsert payload: %w", err)
	}
	return &msg, nil
}

// DecodeDelete extracts the delete payload from an envelope.
func (e *Envelope) DecodeDelete() (*CircuitDeleteMessage, error) {
	if e.Kind != KindCircuitDelete {
		return nil, fmt.Errorf("envelope kind %q is not %q", e.Kind, KindCircuitDelete)
	}
	var msg CircuitDeleteMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal delete payload: %w", err)
	}
	return &msg, nil
}
