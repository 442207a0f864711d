// Package projection computes the monthly cost projection that feeds the
// stacked cost chart: for a horizon of consecutive calendar months it buckets
// each circuit's monthly cost by circuit type and by existing/proposed set.
//
// Everything here is a pure function of the inputs and the anchor date. No
// state is kept between calls and nothing is cached; callers that want
// caching layer it on top.
package projection

import (
	"strconv"
	"time"

	"netcost/internal/core"
)

// DefaultHorizonMonths is the chart horizon: three years of consecutive
// calendar months starting at the anchor date.
const DefaultHorizonMonths = 36

// MonthPoint is one month of aggregated totals, shaped for direct consumption
// by a stacked bar chart. Label carries the four-digit year on January
// entries and is empty otherwise, giving sparse year markers on the axis.
// All amounts are cents.
type MonthPoint struct {
	Label             string `json:"label"`
	ExistingMPLS      int64  `json:"existingMpls"`
	ExistingDIA       int64  `json:"existingDia"`
	ExistingBroadband int64  `json:"existingBroadband"`
	ExistingLTE       int64  `json:"existingLte"`
	ProposedMPLS      int64  `json:"proposedMpls"`
	ProposedDIA       int64  `json:"proposedDia"`
	ProposedBroadband int64  `json:"proposedBroadband"`
	ProposedLTE       int64  `json:"proposedLte"`
}

// add accumulates cents into the slot for (set, type). The explicit switch is
// the whole classification surface: a set or type not named here contributes
// nothing, so unrecognized input fails closed instead of growing the output.
func (p *MonthPoint) add(set core.CircuitSet, t core.CircuitType, cents int64) {
	switch set {
	case core.ExistingSet:
		switch t {
		case core.MPLS:
			p.ExistingMPLS += cents
		case core.DIA:
			p.ExistingDIA += cents
		case core.Broadband:
			p.ExistingBroadband += cents
		case core.LTE:
			p.ExistingLTE += cents
		}
	case core.ProposedSet:
		switch t {
		case core.MPLS:
			p.ProposedMPLS += cents
		case core.DIA:
			p.ProposedDIA += cents
		case core.Broadband:
			p.ProposedBroadband += cents
		case core.LTE:
			p.ProposedLTE += cents
		}
	}
}

// monthAnchors returns n consecutive month anchors starting at start. Anchor i
// is start advanced by i calendar months; Go's AddDate normalization handles
// day overflow (Jan 31 + 1 month rolls into early March), which is the
// accepted calendar-arithmetic behavior here.
func monthAnchors(start time.Time, n int) []time.Time {
	anchors := make([]time.Time, n)
	for i := range anchors {
		anchors[i] = start.AddDate(0, i, 0)
	}
	return anchors
}

// monthLabel returns the four-digit year for January anchors, "" otherwise.
func monthLabel(anchor time.Time) string {
	if anchor.Month() == time.January {
		return strconv.Itoa(anchor.Year())
	}
	return ""
}

// isActive reports whether a circuit's contract range covers the anchor date.
// Both bounds are inclusive, and activity is sampled once per month at the
// anchor's day-of-month rather than integrated over the whole month. A
// circuit without a start date is never active; one without an end date stays
// active indefinitely. An inverted range (start after end) never matches.
func isActive(c core.Circuit, anchor time.Time) bool {
	if c.ContractStart.IsEmpty() {
		return false
	}
	if c.ContractStart.After(anchor) {
		return false
	}
	if c.ContractEnd.IsEmpty() {
		return true
	}
	return !anchor.After(c.ContractEnd.Time)
}

// Project aggregates both circuit collections over the default 36-month
// horizon starting at start. See ProjectHorizon.
func Project(existing, proposed []core.Circuit, start time.Time) []MonthPoint {
	return ProjectHorizon(existing, proposed, start, DefaultHorizonMonths)
}

// ProjectHorizon returns exactly months entries, one per consecutive calendar
// month from start, in ascending month order. For each month every circuit
// active at that month's anchor contributes its monthly cost to the slot for
// its set and recognized type; circuits with unclassifiable type labels are
// dropped silently. The existing set ignores a circuit's own Set field: the
// caller's collection decides which side of the comparison it lands on.
func ProjectHorizon(existing, proposed []core.Circuit, start time.Time, months int) []MonthPoint {
	points := make([]MonthPoint, 0, months)
	for _, anchor := range monthAnchors(start, months) {
		p := MonthPoint{Label: monthLabel(anchor)}
		accumulate(&p, core.ExistingSet, existing, anchor)
		accumulate(&p, core.ProposedSet, proposed, anchor)
		points = append(points, p)
	}
	return points
}

func accumulate(p *MonthPoint, set core.CircuitSet, circuits []core.Circuit, anchor time.Time) {
	for _, c := range circuits {
		if !isActive(c, anchor) {
			continue
		}
		t, err := core.ParseCircuitType(c.Type)
		if err != nil {
			// Unrecognized type: defined no-op, not an error.
			continue
		}
		p.add(set, t, c.MonthlyCost.Cents)
	}
}
