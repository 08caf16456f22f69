package dto

import (
	"github.com/yuvalweil/RoomAssignmentSolver/internal/solver"
)

// DateFormat is the wire format for stay dates, matching the source
// spreadsheets (day first).
const DateFormat = "02/01/2006"

// SolveRequest runs the solver over the stored bookings and rooms.
// Budget overrides are optional; zero values fall back to configuration.
type SolveRequest struct {
	Persist          bool    `json:"persist"`
	TimeLimitSeconds float64 `json:"timeLimitSeconds" validate:"omitempty,gt=0,lte=600"`
	NodeLimit        int     `json:"nodeLimit" validate:"omitempty,gt=0"`
}

// PreviewRequest is a what-if solve: one booking's forced room is
// overridden on a private copy of the inputs and nothing is persisted.
// An empty ForcedRoom clears the booking's pin.
type PreviewRequest struct {
	BookingID        string  `json:"bookingId" validate:"required"`
	ForcedRoom       string  `json:"forcedRoom"`
	TimeLimitSeconds float64 `json:"timeLimitSeconds" validate:"omitempty,gt=0,lte=600"`
	NodeLimit        int     `json:"nodeLimit" validate:"omitempty,gt=0"`
}

// AssignmentEntry is one placed booking in a solve response.
type AssignmentEntry struct {
	BookingID  string `json:"bookingId"`
	Family     string `json:"family"`
	RoomType   string `json:"roomType"`
	Room       string `json:"room"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
	ForcedRoom string `json:"forcedRoom,omitempty"`
}

// SolveResponse returns the merged assignment plus per-booking diagnostics
// and per-group search statistics.
type SolveResponse struct {
	RunID      string              `json:"runId,omitempty"`
	Assigned   []AssignmentEntry   `json:"assigned"`
	Unassigned []solver.Unassigned `json:"unassigned"`
	Groups     []solver.GroupStats `json:"groups"`
}

// ValidateRequest re-checks a caller-constructed assignment (manual
// overrides) against the hard invariants without re-running the search.
type ValidateRequest struct {
	Assignment map[string]string `json:"assignment" validate:"required,min=1"`
}

// ValidateResponse lists every broken invariant; Valid is true when none.
type ValidateResponse struct {
	Valid      bool               `json:"valid"`
	Violations []solver.Violation `json:"violations"`
}

// DiagnosticsResponse wraps the soft-penalty breakdown for one booking-room
// pairing.
type DiagnosticsResponse struct {
	Breakdown *solver.PenaltyBreakdown `json:"breakdown"`
}
