package solver

import (
	"fmt"
	"sort"
)

// Solve maps bookings onto the room pool. Groups are partitioned by room
// type and solved in the order the cross-type rule table dictates; each
// group walks the relaxation ladder until fully assigned or the ladder is
// exhausted. The only error condition is a broken rule configuration —
// every well-formed input yields a Result, worst case an empty assignment
// with full diagnostics.
func Solve(bookings []Booking, rooms []Room, cfg Config, budget Budget) (*Result, error) {
	rs, err := compileRules(cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{Assignment: make(map[string]string)}

	var valid []Booking
	for _, b := range bookings {
		switch {
		case b.ID == "":
			result.Unassigned = append(result.Unassigned, Unassigned{BookingID: b.ID, Reason: ReasonInvalidBooking, Detail: "missing booking id"})
		case b.RoomType == "":
			result.Unassigned = append(result.Unassigned, Unassigned{BookingID: b.ID, Reason: ReasonInvalidBooking, Detail: "missing room type"})
		case !b.Stay.Valid():
			result.Unassigned = append(result.Unassigned, Unassigned{BookingID: b.ID, Reason: ReasonInvalidBooking, Detail: "check-out must be after check-in"})
		default:
			valid = append(valid, b)
			continue
		}
	}

	rankIdx := make(map[string]int, len(rooms))
	poolByType := make(map[string][]Room)
	for _, r := range rooms {
		poolByType[r.RoomType] = append(poolByType[r.RoomType], r)
		if rank, ok := r.Rank(); ok {
			rankIdx[r.ID] = rank
		}
	}
	for _, pool := range poolByType {
		sortPool(pool, rankIdx)
	}

	groupsByType := make(map[string][]Booking)
	var types []string
	for _, b := range valid {
		if _, seen := groupsByType[b.RoomType]; !seen {
			types = append(types, b.RoomType)
		}
		groupsByType[b.RoomType] = append(groupsByType[b.RoomType], b)
	}

	order, err := solveOrder(types, cfg.CrossTypeRules)
	if err != nil {
		return nil, err
	}

	// family -> room type -> decided room ranks, grown as groups finalize.
	external := make(map[string]map[string][]int)

	for _, roomType := range order {
		group := groupsByType[roomType]
		pool := poolByType[roomType]

		if len(pool) == 0 {
			for _, b := range group {
				reason := ReasonNoFeasibleRoom
				detail := fmt.Sprintf("no rooms of type %q", roomType)
				if b.ForcedRoom != "" {
					reason = ReasonForcedUnsatisfiable
					detail = fmt.Sprintf("forced room %q does not exist under type %q", b.ForcedRoom, roomType)
				}
				result.Unassigned = append(result.Unassigned, Unassigned{
					BookingID: b.ID,
					Reason:    reason,
					Detail:    detail,
				})
			}
			result.Groups = append(result.Groups, GroupStats{RoomType: roomType, Bookings: len(group)})
			continue
		}

		// Forced rooms that do not exist under the type are rejected before
		// the search starts; they never occupy a search node.
		var runnable []Booking
		for _, b := range group {
			if b.ForcedRoom != "" && !poolHas(pool, b.ForcedRoom) {
				result.Unassigned = append(result.Unassigned, Unassigned{
					BookingID: b.ID,
					Reason:    ReasonForcedUnsatisfiable,
					Detail:    fmt.Sprintf("forced room %q does not exist under type %q", b.ForcedRoom, roomType),
				})
				continue
			}
			runnable = append(runnable, b)
		}

		outcome, fullPenalty, level := solveGroup(runnable, pool, rs, rankIdx, external, budget)

		byID := make(map[string]Booking, len(runnable))
		for _, b := range runnable {
			byID[b.ID] = b
		}
		for _, b := range runnable {
			roomID, ok := outcome.assignment[b.ID]
			if !ok {
				continue
			}
			result.Assignment[b.ID] = roomID
			if rank, ranked := rankIdx[roomID]; ranked {
				if external[b.Family] == nil {
					external[b.Family] = make(map[string][]int)
				}
				external[b.Family][roomType] = append(external[b.Family][roomType], rank)
			}
		}
		for _, id := range outcome.gaps {
			reason := ReasonNoFeasibleRoom
			detail := "no free room covers the stay"
			if byID[id].ForcedRoom != "" {
				reason = ReasonForcedUnsatisfiable
				detail = fmt.Sprintf("forced room %q is occupied during the stay", byID[id].ForcedRoom)
			}
			result.Unassigned = append(result.Unassigned, Unassigned{BookingID: id, Reason: reason, Detail: detail})
		}
		for _, id := range outcome.unplaced {
			result.Unassigned = append(result.Unassigned, Unassigned{
				BookingID: id,
				Reason:    ReasonBudgetExhausted,
				Detail:    "search budget exhausted before placement",
			})
		}

		result.Groups = append(result.Groups, GroupStats{
			RoomType: roomType,
			Bookings: len(group),
			Assigned: outcome.assignedCount,
			Penalty:  fullPenalty,
			Complete: outcome.complete,
			Level:    level,
			Nodes:    outcome.nodes,
		})
	}

	return result, nil
}

// solveGroup walks the relaxation ladder, strictest level first, stopping
// at the first level that fully assigns the group. Each level gets a fresh
// budget. When no level completes, the level assigning the most bookings
// wins; ties break on the full-weight penalty recomputed over the level's
// assignment, which keeps levels comparable.
func solveGroup(group []Booking, pool []Room, rs *ruleSet, rank map[string]int, external map[string]map[string][]int, budget Budget) (searchOutcome, Penalty, int) {
	var best searchOutcome
	var bestFull Penalty
	bestLevel := 0
	have := false

	for level := 0; level < relaxationLevels; level++ {
		sc := newScorer(rs, maskForLevel(level), group, rank, external)
		out := runSearch(group, pool, sc, budget)
		full := replayPenalty(group, out.assignment, rs, rank, external)
		if !have || out.assignedCount > best.assignedCount ||
			(out.assignedCount == best.assignedCount && full.Less(bestFull)) {
			best = out
			bestFull = full
			bestLevel = level
			have = true
		}
		if out.complete {
			break
		}
	}
	return best, bestFull, bestLevel
}

// replayPenalty rescores an assignment at full weight by replaying it in
// group input order. Deterministic, so outcomes from different relaxation
// levels compare on the same scale.
func replayPenalty(group []Booking, assignment map[string]string, rs *ruleSet, rank map[string]int, external map[string]map[string][]int) Penalty {
	sc := newScorer(rs, maskForLevel(0), group, rank, external)
	var total Penalty
	for _, b := range group {
		roomID, ok := assignment[b.ID]
		if !ok {
			continue
		}
		total = total.Add(sc.Score(b, Room{ID: roomID, RoomType: b.RoomType}))
		sc.assigned[b.ID] = roomID
	}
	return total
}

func sortPool(pool []Room, rank map[string]int) {
	sort.SliceStable(pool, func(i, j int) bool {
		ri, iok := rank[pool[i].ID]
		rj, jok := rank[pool[j].ID]
		if iok != jok {
			return iok // ranked rooms before rank-less ones
		}
		if iok && ri != rj {
			return ri < rj
		}
		return pool[i].ID < pool[j].ID
	})
}

func poolHas(pool []Room, roomID string) bool {
	for _, r := range pool {
		if r.ID == roomID {
			return true
		}
	}
	return false
}

// Validate re-checks the assignment invariants without running a search:
// referenced bookings and rooms exist, room types match, forced rooms are
// honoured, stays are valid, and no room is double-booked. Intended for
// manual overrides constructed outside the solver.
func Validate(assignment map[string]string, bookings []Booking, rooms []Room) []Violation {
	bookingByID := make(map[string]Booking, len(bookings))
	for _, b := range bookings {
		bookingByID[b.ID] = b
	}
	roomByID := make(map[string]Room, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
	}

	ids := make([]string, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var violations []Violation
	perRoom := make(map[string][]Booking)
	for _, id := range ids {
		roomID := assignment[id]
		b, ok := bookingByID[id]
		if !ok {
			violations = append(violations, Violation{BookingID: id, Code: ViolationUnknownBooking, Detail: "booking not found"})
			continue
		}
		room, ok := roomByID[roomID]
		if !ok {
			violations = append(violations, Violation{BookingID: id, Code: ViolationUnknownRoom, Detail: fmt.Sprintf("room %q not found", roomID)})
			continue
		}
		if !b.Stay.Valid() {
			violations = append(violations, Violation{BookingID: id, Code: ViolationInvalidInterval, Detail: "check-out must be after check-in"})
			continue
		}
		if room.RoomType != b.RoomType {
			violations = append(violations, Violation{
				BookingID: id,
				Code:      ViolationTypeMismatch,
				Detail:    fmt.Sprintf("room %q has type %q, booking needs %q", roomID, room.RoomType, b.RoomType),
			})
		}
		if b.ForcedRoom != "" && b.ForcedRoom != roomID {
			violations = append(violations, Violation{
				BookingID: id,
				Code:      ViolationForcedMismatch,
				Detail:    fmt.Sprintf("booking is forced to room %q but assigned %q", b.ForcedRoom, roomID),
			})
		}
		perRoom[roomID] = append(perRoom[roomID], b)
	}

	roomIDs := make([]string, 0, len(perRoom))
	for roomID := range perRoom {
		roomIDs = append(roomIDs, roomID)
	}
	sort.Strings(roomIDs)
	for _, roomID := range roomIDs {
		held := perRoom[roomID]
		for i := 0; i < len(held); i++ {
			for j := i + 1; j < len(held); j++ {
				if held[i].Stay.Overlaps(held[j].Stay) {
					violations = append(violations, Violation{
						BookingID: held[j].ID,
						Code:      ViolationDoubleBooked,
						Detail:    fmt.Sprintf("room %q also holds booking %q over an overlapping stay", roomID, held[i].ID),
					})
				}
			}
		}
	}
	return violations
}

// PenaltyBreakdown itemises the soft penalty one booking-room pairing
// incurs against a decided assignment.
type PenaltyBreakdown struct {
	BookingID string  `json:"bookingId"`
	RoomID    string  `json:"roomId"`
	Serial    int     `json:"serial"`
	CrossType int     `json:"crossType"`
	Area      int     `json:"area"`
	Total     Penalty `json:"total"`
}

// Explain scores placing the booking into the given room with every other
// entry of the assignment treated as decided context. The room may differ
// from the booking's current assignment, which makes hypothetical
// placements inspectable.
func Explain(bookingID, roomID string, bookings []Booking, rooms []Room, assignment map[string]string, cfg Config) (*PenaltyBreakdown, error) {
	rs, err := compileRules(cfg)
	if err != nil {
		return nil, err
	}

	var target *Booking
	for i := range bookings {
		if bookings[i].ID == bookingID {
			target = &bookings[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("booking %q not found", bookingID)
	}

	rankIdx := make(map[string]int, len(rooms))
	for _, r := range rooms {
		if rank, ok := r.Rank(); ok {
			rankIdx[r.ID] = rank
		}
	}

	var group []Booking
	for _, b := range bookings {
		if b.RoomType == target.RoomType {
			group = append(group, b)
		}
	}

	external := make(map[string]map[string][]int)
	for _, b := range bookings {
		if b.RoomType == target.RoomType || b.ID == bookingID {
			continue
		}
		assignedRoom, ok := assignment[b.ID]
		if !ok {
			continue
		}
		if rank, ranked := rankIdx[assignedRoom]; ranked {
			if external[b.Family] == nil {
				external[b.Family] = make(map[string][]int)
			}
			external[b.Family][b.RoomType] = append(external[b.Family][b.RoomType], rank)
		}
	}

	sc := newScorer(rs, maskForLevel(0), group, rankIdx, external)
	for _, b := range group {
		if b.ID == bookingID {
			continue
		}
		if assignedRoom, ok := assignment[b.ID]; ok {
			sc.assigned[b.ID] = assignedRoom
		}
	}

	pen := sc.Score(*target, Room{ID: roomID, RoomType: target.RoomType})
	return &PenaltyBreakdown{
		BookingID: bookingID,
		RoomID:    roomID,
		Serial:    pen[TierSerial],
		CrossType: pen[TierCrossType],
		Area:      pen[TierArea],
		Total:     pen,
	}, nil
}
