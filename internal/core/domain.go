package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

const (
	MPLS      CircuitType = "MPLS"
	DIA       CircuitType = "DIA"
	Broadband CircuitType = "Broadband"
	LTE       CircuitType = "LTE"
)

const (
	ExistingSet CircuitSet = "existing"
	ProposedSet CircuitSet = "proposed"
)

type (
	// CircuitType is the recognized circuit category vocabulary. Only these
	// four types contribute to projection totals.
	CircuitType string

	// CircuitSet distinguishes circuits already under contract from circuits
	// attached to a proposal under evaluation.
	CircuitSet string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Circuit is a billable connectivity item at a location. ContractStart and
	// ContractEnd are optional: a zero ContractStart means the circuit is never
	// counted as active, a zero ContractEnd means active indefinitely from the
	// start date onward.
	Circuit struct {
		ID            string
		LocationID    string
		ProposalID    string // set only for proposed circuits
		Set           CircuitSet
		Type          string // raw label as supplied; classified via ParseCircuitType
		MonthlyCost   Money
		ContractStart Date
		ContractEnd   Date
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownCircuitType = errors.New("unknown circuit type")
	ErrInvalidCircuitSet  = errors.New("invalid circuit set")
	ErrEmptyLocation      = errors.New("empty location id")
	ErrEmptyProposal      = errors.New("empty proposal id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date is absent. Zero-value dates model the
// optional contract bounds.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ParseDate parses a YYYY-MM-DD string. Empty input yields an empty Date and
// no error; malformed input yields an empty Date and the parse error so
// callers can choose to degrade instead of failing.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// NormalizeTypeLabel strips every non-letter rune from a raw type label, so
// "MPLS - Backup" and "mpls" normalize to comparable keys.
func NormalizeTypeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, label)
}

// ParseCircuitType classifies a raw type label into the recognized enum.
// Matching is case-insensitive on the normalized label; anything else returns
// ErrUnknownCircuitType so callers fail closed.
func ParseCircuitType(label string) (CircuitType, error) {
	switch strings.ToLower(NormalizeTypeLabel(label)) {
	case "mpls":
		return MPLS, nil
	case "dia":
		return DIA, nil
	case "broadband":
		return Broadband, nil
	case "lte":
		return LTE, nil
	default:
		return "", ErrUnknownCircuitType
	}
}

// IsValid reports whether the set is one of the two recognized values.
func (s CircuitSet) IsValid() bool {
	return s == ExistingSet || s == ProposedSet
}

func (s CircuitSet) String() string {
	return string(s)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Circuit) Validate() error {
	if !c.Set.IsValid() {
		return ErrInvalidCircuitSet
	}
	if strings.TrimSpace(c.LocationID) == "" {
		return ErrEmptyLocation
	}
	if c.Set == ProposedSet && strings.TrimSpace(c.ProposalID) == "" {
		return ErrEmptyProposal
	}
	if err := c.MonthlyCost.Validate(); err != nil {
		return err
	}
	if len(c.Type) > 100 {
		return errors.New("type label too long (max 100 characters)")
	}
	// Contract dates stay unvalidated on purpose: an inverted range simply
	// never matches the activity check.
	return nil
}
