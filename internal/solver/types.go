// Package solver assigns date-interval bookings to typed, exclusive-use
// rooms. Hard constraints (room type, availability, forced rooms) are never
// violated; ranked soft preferences are minimised lexicographically under a
// per-group time/node budget, so the caller always gets the best assignment
// found so far.
package solver

import (
	"strconv"
	"time"
)

// Interval is a half-open date range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. A checkout on
// the same day as another checkin is not an overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Valid reports whether the interval spans at least one day.
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Booking is one requested stay. ForcedRoom, when non-empty, is a hard
// restriction to exactly that room.
type Booking struct {
	ID         string
	Family     string
	RoomType   string
	Stay       Interval
	ForcedRoom string
}

// Room is one assignable unit of a given type.
type Room struct {
	ID       string
	RoomType string
}

// Rank extracts the first number embedded in the room label. Rooms without a
// parseable number never match rank-based soft rules.
func (r Room) Rank() (int, bool) {
	return rankOf(r.ID)
}

func rankOf(label string) (int, bool) {
	start := -1
	for i, c := range label {
		if c >= '0' && c <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Budget bounds a single search-engine run. Each relaxation level consumes
// its own budget.
type Budget struct {
	TimeLimit time.Duration
	NodeLimit int
}

// UnassignedReason explains why a booking received no room.
type UnassignedReason string

const (
	// ReasonForcedUnsatisfiable marks a booking whose forced room is
	// absent, of the wrong type, or unavailable for the whole stay.
	ReasonForcedUnsatisfiable UnassignedReason = "forced_unsatisfiable"
	// ReasonNoFeasibleRoom marks a booking with no legal candidate at all
	// on the best branch found.
	ReasonNoFeasibleRoom UnassignedReason = "no_feasible_resource"
	// ReasonBudgetExhausted marks a booking that still had candidates when
	// the search budget ran out.
	ReasonBudgetExhausted UnassignedReason = "budget_exhausted_unplaced"
	// ReasonInvalidBooking marks a booking rejected before search for a
	// malformed shape (empty room type, end <= start).
	ReasonInvalidBooking UnassignedReason = "invalid_booking"
)

// Unassigned is the diagnostic record for one unplaced booking.
type Unassigned struct {
	BookingID string           `json:"bookingId"`
	Reason    UnassignedReason `json:"reason"`
	Detail    string           `json:"detail,omitempty"`
}

// GroupStats summarises one room-type group's search outcome.
type GroupStats struct {
	RoomType string  `json:"roomType"`
	Bookings int     `json:"bookings"`
	Assigned int     `json:"assigned"`
	Penalty  Penalty `json:"penalty"`
	Complete bool    `json:"complete"`
	Level    int     `json:"level"`
	Nodes    int     `json:"nodes"`
}

// Result is the merged outcome over all groups. Assignment maps booking ID
// to room ID; every booking appears either there or in Unassigned.
type Result struct {
	Assignment map[string]string `json:"assignment"`
	Unassigned []Unassigned      `json:"unassigned"`
	Groups     []GroupStats      `json:"groups"`
}

// Violation is one broken invariant found by Validate.
type Violation struct {
	BookingID string `json:"bookingId"`
	Code      string `json:"code"`
	Detail    string `json:"detail"`
}

// Violation codes reported by Validate.
const (
	ViolationUnknownBooking  = "unknown_booking"
	ViolationUnknownRoom     = "unknown_room"
	ViolationTypeMismatch    = "type_mismatch"
	ViolationDoubleBooked    = "double_booked"
	ViolationForcedMismatch  = "forced_mismatch"
	ViolationInvalidInterval = "invalid_interval"
)
