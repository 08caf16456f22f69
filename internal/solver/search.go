package solver

import (
	"sort"
	"time"
)

// searchOutcome is the best assignment one engine run found for a group.
type searchOutcome struct {
	assignment    map[string]string
	penalties     map[string]Penalty
	gaps          []string // zero-candidate bookings on the recorded branch
	unplaced      []string // bookings still unvisited when the budget ran out
	assignedCount int
	total         Penalty
	complete      bool
	nodes         int
	budgetHit     bool
}

// engine is the backtracking search over a single room-type group.
// Most-constrained bookings are expanded first, candidates in ascending
// penalty order; holds are always paired with releases so no partial state
// leaks between sibling branches. The engine is branch-and-bound: it keeps
// exploring after the first complete assignment and records the best seen,
// which it returns immediately once the node or time budget is hit.
type engine struct {
	group []Booking
	gen   *candidateGenerator
	sc    *scorer

	nodeLimit   int
	deadline    time.Time
	hasDeadline bool

	nodes   int
	stopped bool

	visited   []bool
	remaining int
	penalties map[string]Penalty
	total     Penalty
	gaps      []string

	best *searchOutcome
}

func runSearch(group []Booking, pool []Room, sc *scorer, budget Budget) searchOutcome {
	e := &engine{
		group:     group,
		gen:       &candidateGenerator{pool: pool, occ: NewOccupancy()},
		sc:        sc,
		nodeLimit: budget.NodeLimit,
		visited:   make([]bool, len(group)),
		remaining: len(group),
		penalties: make(map[string]Penalty, len(group)),
	}
	if budget.TimeLimit > 0 {
		e.deadline = time.Now().Add(budget.TimeLimit)
		e.hasDeadline = true
	}

	e.expand()

	out := *e.best
	out.nodes = e.nodes
	out.budgetHit = e.stopped
	return out
}

func (e *engine) expand() {
	if e.stopped {
		return
	}
	// Budget accounting happens once per node, not per candidate.
	e.nodes++
	if (e.nodeLimit > 0 && e.nodes > e.nodeLimit) || (e.hasDeadline && time.Now().After(e.deadline)) {
		e.stopped = true
		e.record()
		return
	}

	// Bound: even if every remaining booking were placed, this branch could
	// not assign more than the best already found.
	if e.best != nil && len(e.sc.assigned)+e.remaining < e.best.assignedCount {
		return
	}

	idx := e.selectMostConstrained()
	if idx < 0 {
		e.record()
		return
	}
	b := e.group[idx]

	cands := e.gen.candidates(b)
	if len(cands) == 0 {
		// Unassignable on this branch; keep assigning the rest.
		e.visited[idx] = true
		e.remaining--
		e.gaps = append(e.gaps, b.ID)
		e.expand()
		e.gaps = e.gaps[:len(e.gaps)-1]
		e.remaining++
		e.visited[idx] = false
		return
	}

	ordered := e.orderCandidates(b, cands)
	for _, cand := range ordered {
		if e.stopped {
			return
		}
		e.gen.occ.Hold(cand.room.ID, b.Stay)
		e.sc.assigned[b.ID] = cand.room.ID
		e.penalties[b.ID] = cand.pen
		prevTotal := e.total
		e.total = e.total.Add(cand.pen)
		e.visited[idx] = true
		e.remaining--

		e.expand()

		e.remaining++
		e.visited[idx] = false
		e.total = prevTotal
		delete(e.penalties, b.ID)
		delete(e.sc.assigned, b.ID)
		e.gen.occ.Release(cand.room.ID, b.Stay)
	}
}

// selectMostConstrained picks the unvisited booking with the fewest legal
// candidates; ties break by earliest stay start, then input order.
func (e *engine) selectMostConstrained() int {
	bestIdx := -1
	bestCount := 0
	for i, b := range e.group {
		if e.visited[i] {
			continue
		}
		count := e.gen.countCandidates(b)
		if bestIdx < 0 || count < bestCount ||
			(count == bestCount && b.Stay.Start.Before(e.group[bestIdx].Stay.Start)) {
			bestIdx = i
			bestCount = count
		}
	}
	return bestIdx
}

type scoredCandidate struct {
	room   Room
	pen    Penalty
	rank   int
	ranked bool
}

// orderCandidates sorts by ascending penalty, then ascending rank (rooms
// without a rank last), then room ID, so exploration order is reproducible.
func (e *engine) orderCandidates(b Booking, cands []Room) []scoredCandidate {
	scored := make([]scoredCandidate, len(cands))
	for i, room := range cands {
		rank, ranked := e.sc.rank[room.ID]
		scored[i] = scoredCandidate{room: room, pen: e.sc.Score(b, room), rank: rank, ranked: ranked}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].pen != scored[j].pen {
			return scored[i].pen.Less(scored[j].pen)
		}
		if scored[i].ranked != scored[j].ranked {
			return scored[i].ranked
		}
		if scored[i].ranked && scored[i].rank != scored[j].rank {
			return scored[i].rank < scored[j].rank
		}
		return scored[i].room.ID < scored[j].room.ID
	})
	return scored
}

// record snapshots the current partial assignment when it beats the best so
// far: strictly more bookings assigned, or equally many with a strictly
// smaller penalty tuple. The recorded best never regresses.
func (e *engine) record() {
	count := len(e.sc.assigned)
	if e.best != nil {
		if count < e.best.assignedCount {
			return
		}
		if count == e.best.assignedCount && !e.total.Less(e.best.total) {
			return
		}
	}

	snap := &searchOutcome{
		assignment:    make(map[string]string, count),
		penalties:     make(map[string]Penalty, count),
		assignedCount: count,
		total:         e.total,
		complete:      count == len(e.group),
	}
	for id, roomID := range e.sc.assigned {
		snap.assignment[id] = roomID
		snap.penalties[id] = e.penalties[id]
	}
	snap.gaps = append([]string(nil), e.gaps...)
	for i, b := range e.group {
		if !e.visited[i] {
			snap.unplaced = append(snap.unplaced, b.ID)
		}
	}
	e.best = snap
}
