package solver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultBudget() Budget {
	return Budget{TimeLimit: 2 * time.Second, NodeLimit: 100000}
}

func fieldRooms(ranks ...int) []Room {
	rooms := make([]Room, 0, len(ranks))
	for _, r := range ranks {
		rooms = append(rooms, Room{ID: itoa(r), RoomType: "field"})
	}
	return rooms
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestSolveRespectsHardConstraints(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Mizrahi", RoomType: "field", Stay: span(3, 7)},
		{ID: "bk-3", Family: "Peretz", RoomType: "cabin", Stay: span(1, 5)},
	}
	rooms := append(fieldRooms(6, 7), Room{ID: "C1", RoomType: "cabin"})

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	require.Len(t, result.Assignment, 3)
	assert.Empty(t, result.Unassigned)

	// overlapping field stays land in different rooms
	assert.NotEqual(t, result.Assignment["bk-1"], result.Assignment["bk-2"])
	// cabin booking gets the cabin
	assert.Equal(t, "C1", result.Assignment["bk-3"])

	assert.Empty(t, Validate(result.Assignment, bookings, rooms))
}

func TestSolveBackToBackStaysShareARoom(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Mizrahi", RoomType: "field", Stay: span(5, 9)},
	}
	rooms := fieldRooms(6)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	require.Len(t, result.Assignment, 2)
	assert.Equal(t, "6", result.Assignment["bk-1"])
	assert.Equal(t, "6", result.Assignment["bk-2"])
}

func TestSolveForcedRoomIsHonoured(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5), ForcedRoom: "7"},
	}
	rooms := fieldRooms(6, 7)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Equal(t, "7", result.Assignment["bk-1"])
}

func TestSolveForcedRoomOccupiedLeavesBookingUnassigned(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5), ForcedRoom: "6"},
		{ID: "bk-2", Family: "Mizrahi", RoomType: "field", Stay: span(3, 7), ForcedRoom: "6"},
	}
	rooms := fieldRooms(6, 7)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	require.Len(t, result.Assignment, 1)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, ReasonForcedUnsatisfiable, result.Unassigned[0].Reason)
	// the free room stays empty rather than violating the pin
	for _, roomID := range result.Assignment {
		assert.Equal(t, "6", roomID)
	}
}

func TestSolveForcedRoomMissingFromPool(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5), ForcedRoom: "99"},
	}
	rooms := fieldRooms(6)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Empty(t, result.Assignment)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, ReasonForcedUnsatisfiable, result.Unassigned[0].Reason)
	assert.Contains(t, result.Unassigned[0].Detail, "does not exist")
}

func TestSolveOverbookedTypeReportsNoFeasibleRoom(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Mizrahi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-3", Family: "Peretz", RoomType: "field", Stay: span(1, 5)},
	}
	rooms := fieldRooms(6, 7)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Len(t, result.Assignment, 2)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, ReasonNoFeasibleRoom, result.Unassigned[0].Reason)
}

func TestSolveNoRoomsOfRequestedType(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "sukkah", Stay: span(1, 5)},
	}
	rooms := fieldRooms(6)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, ReasonNoFeasibleRoom, result.Unassigned[0].Reason)
}

func TestSolveForcedRoomUnderAbsentType(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "sukkah", Stay: span(1, 5), ForcedRoom: "S1"},
		{ID: "bk-2", Family: "Mizrahi", RoomType: "sukkah", Stay: span(1, 5)},
	}
	rooms := fieldRooms(6)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Empty(t, result.Assignment)
	require.Len(t, result.Unassigned, 2)

	reasons := make(map[string]UnassignedReason, len(result.Unassigned))
	for _, u := range result.Unassigned {
		reasons[u.BookingID] = u.Reason
	}
	// a pinned booking reports the missing pin, not the empty pool
	assert.Equal(t, ReasonForcedUnsatisfiable, reasons["bk-1"])
	assert.Equal(t, ReasonNoFeasibleRoom, reasons["bk-2"])
}

func TestSolveRejectsMalformedBookings(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: Interval{Start: day(5), End: day(1)}},
		{ID: "bk-2", Family: "Levi", RoomType: "", Stay: span(1, 5)},
		{ID: "bk-3", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rooms := fieldRooms(6)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Len(t, result.Assignment, 1)
	require.Len(t, result.Unassigned, 2)
	for _, u := range result.Unassigned {
		assert.Equal(t, ReasonInvalidBooking, u.Reason)
	}
}

func TestSolveFamilyGetsAdjacentRooms(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rooms := fieldRooms(9, 10, 16)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	require.Len(t, result.Assignment, 2)

	r1, _ := Room{ID: result.Assignment["bk-1"]}.Rank()
	r2, _ := Room{ID: result.Assignment["bk-2"]}.Rank()
	diff := r1 - r2
	if diff < 0 {
		diff = -diff
	}
	assert.Equal(t, 1, diff, "family rooms should be serially adjacent")
}

func TestSolveCrossTypeContextSteersLaterGroup(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-d", Family: "Levi", RoomType: "double", Stay: span(1, 5)},
		{ID: "bk-f", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rooms := []Room{
		{ID: "D1", RoomType: "double"},
		{ID: "3", RoomType: "field"},
		{ID: "6", RoomType: "field"},
	}

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Equal(t, "D1", result.Assignment["bk-d"])
	// double -> field rule targets ranks 1..5; the cross-type tier outranks
	// the area tier, so rank 3 beats rank 6 despite the no-singles hit
	assert.Equal(t, "3", result.Assignment["bk-f"])

	groups := make(map[string]GroupStats, len(result.Groups))
	for _, g := range result.Groups {
		groups[g.RoomType] = g
	}
	assert.True(t, groups["double"].Complete)
	assert.True(t, groups["field"].Complete)
	// completable groups never climb the relaxation ladder
	assert.Equal(t, 0, groups["double"].Level)
	assert.Equal(t, 0, groups["field"].Level)
}

func TestSolveSingleAvoidsNoSinglesRanks(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rooms := fieldRooms(2, 6)

	result, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Equal(t, "6", result.Assignment["bk-1"])
}

func TestSolveIsDeterministic(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(2, 6)},
		{ID: "bk-3", Family: "Mizrahi", RoomType: "field", Stay: span(1, 4)},
		{ID: "bk-4", Family: "Peretz", RoomType: "field", Stay: span(4, 8)},
	}
	rooms := fieldRooms(6, 7, 9, 10, 11)

	first, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	second, err := Solve(bookings, rooms, DefaultConfig(), defaultBudget())
	require.NoError(t, err)
	assert.Equal(t, first.Assignment, second.Assignment)
}

func TestSolveTinyNodeBudgetStillReturnsPartialResult(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Mizrahi", RoomType: "field", Stay: span(6, 9)},
		{ID: "bk-3", Family: "Peretz", RoomType: "field", Stay: span(10, 14)},
	}
	rooms := fieldRooms(6)

	result, err := Solve(bookings, rooms, DefaultConfig(), Budget{NodeLimit: 1})
	require.NoError(t, err)

	budgeted := 0
	for _, u := range result.Unassigned {
		if u.Reason == ReasonBudgetExhausted {
			budgeted++
		}
	}
	assert.Greater(t, budgeted, 0)
	assert.Empty(t, Validate(result.Assignment, bookings, rooms))

	require.Len(t, result.Groups, 1)
	assert.False(t, result.Groups[0].Complete)
}

// Under a 3-node budget each relaxation level records the same three field
// placements before the cut. Level 0 spends its one branch on the
// serial-adjacent rank 4 and pays the cross-type rule twice; level 1 orders
// by the remaining tiers, lands both free bookings on the rule targets, and
// replays cheaper at full weight, so the ladder reports it.
func TestSolveRelaxedLevelWinsUnderNodeBudget(t *testing.T) {
	cfg := Config{CrossTypeRules: []CrossTypeRule{
		{WhenType: "double", ThenType: "field", TargetRanks: []int{9, 10}},
	}}
	bookings := []Booking{
		{ID: "bk-d", Family: "Levi", RoomType: "double", Stay: span(1, 9)},
		{ID: "bk-f", Family: "Levi", RoomType: "field", Stay: span(1, 9), ForcedRoom: "5"},
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 9)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(1, 9)},
		{ID: "bk-3", Family: "Mizrahi", RoomType: "field", Stay: span(1, 9)},
	}
	rooms := append(fieldRooms(4, 5, 9, 10), Room{ID: "2", RoomType: "double"})

	result, err := Solve(bookings, rooms, cfg, Budget{NodeLimit: 3})
	require.NoError(t, err)

	groups := make(map[string]GroupStats, len(result.Groups))
	for _, g := range result.Groups {
		groups[g.RoomType] = g
	}

	// the single-booking double group completes at the strictest level
	assert.True(t, groups["double"].Complete)
	assert.Equal(t, 0, groups["double"].Level)

	field := groups["field"]
	assert.False(t, field.Complete)
	assert.Greater(t, field.Level, 0, "budget-cut group should settle on a relaxed level")
	assert.Equal(t, 1, field.Level)
	// climbing the ladder never costs placements
	assert.Equal(t, 3, field.Assigned)
	assert.Equal(t, Penalty{1, 1, 0}, field.Penalty)

	// the kept assignment is the level-1 one: both free bookings on the
	// cross-type targets instead of one hugging the forced room's rank
	assert.Equal(t, "5", result.Assignment["bk-f"])
	assert.Equal(t, "9", result.Assignment["bk-1"])
	assert.Equal(t, "10", result.Assignment["bk-2"])

	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, "bk-3", result.Unassigned[0].BookingID)
	assert.Equal(t, ReasonBudgetExhausted, result.Unassigned[0].Reason)
}

func TestSolveCyclicRuleTableFails(t *testing.T) {
	cfg := Config{CrossTypeRules: []CrossTypeRule{
		{WhenType: "field", ThenType: "double", TargetRanks: []int{1}},
		{WhenType: "double", ThenType: "field", TargetRanks: []int{1}},
	}}
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "double", Stay: span(1, 5)},
	}
	rooms := []Room{{ID: "6", RoomType: "field"}, {ID: "D1", RoomType: "double"}}

	_, err := Solve(bookings, rooms, cfg, defaultBudget())
	require.Error(t, err)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidateFindsViolations(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Mizrahi", RoomType: "field", Stay: span(3, 7)},
		{ID: "bk-3", Family: "Peretz", RoomType: "cabin", Stay: span(1, 5), ForcedRoom: "C1"},
	}
	rooms := []Room{
		{ID: "6", RoomType: "field"},
		{ID: "C1", RoomType: "cabin"},
		{ID: "C2", RoomType: "cabin"},
	}

	violations := Validate(map[string]string{
		"bk-1":  "6",
		"bk-2":  "6",    // overlaps bk-1
		"bk-3":  "C2",   // forced to C1
		"bk-99": "ghost", // unknown booking
	}, bookings, rooms)

	codes := make(map[string]bool, len(violations))
	for _, v := range violations {
		codes[v.Code] = true
	}
	assert.True(t, codes[ViolationDoubleBooked])
	assert.True(t, codes[ViolationForcedMismatch])
	assert.True(t, codes[ViolationUnknownBooking])
}

func TestValidateTypeMismatch(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rooms := []Room{{ID: "C1", RoomType: "cabin"}}

	violations := Validate(map[string]string{"bk-1": "C1"}, bookings, rooms)
	require.Len(t, violations, 1)
	assert.Equal(t, ViolationTypeMismatch, violations[0].Code)
}

func TestExplainItemisesPenalty(t *testing.T) {
	bookings := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rooms := fieldRooms(9, 10, 16)
	assignment := map[string]string{"bk-1": "9", "bk-2": "16"}

	breakdown, err := Explain("bk-2", "16", bookings, rooms, assignment, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, breakdown.Serial, "rank 16 is not adjacent to rank 9")
	assert.Equal(t, 0, breakdown.CrossType)

	adjacent, err := Explain("bk-2", "10", bookings, rooms, assignment, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, adjacent.Serial)
	assert.True(t, adjacent.Total.Less(breakdown.Total))
}

func TestExplainUnknownBooking(t *testing.T) {
	_, err := Explain("bk-404", "6", nil, nil, nil, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
