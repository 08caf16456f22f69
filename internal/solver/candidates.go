package solver

// candidateGenerator computes, for one room-type group, the rooms a booking
// could legally take given the current occupancy. Hard constraints only:
// type match is implied by the pool, availability is re-checked at every
// search node, and a forced room restricts the output to exactly that room
// or nothing.
type candidateGenerator struct {
	pool []Room // rooms of the group's type, rank order
	occ  *Occupancy
}

// candidates returns the legal rooms for b in pool order. A booking whose
// forced room is missing from the pool or occupied yields an empty slice:
// it cannot be assigned by any path, even if other rooms are free.
func (g *candidateGenerator) candidates(b Booking) []Room {
	if b.ForcedRoom != "" {
		for _, room := range g.pool {
			if room.ID != b.ForcedRoom {
				continue
			}
			if g.occ.IsFree(room.ID, b.Stay) {
				return []Room{room}
			}
			return nil
		}
		return nil
	}
	var out []Room
	for _, room := range g.pool {
		if g.occ.IsFree(room.ID, b.Stay) {
			out = append(out, room)
		}
	}
	return out
}

// countCandidates is the MRV probe: it only needs the candidate count, so
// forced bookings short-circuit.
func (g *candidateGenerator) countCandidates(b Booking) int {
	if b.ForcedRoom != "" {
		for _, room := range g.pool {
			if room.ID == b.ForcedRoom {
				if g.occ.IsFree(room.ID, b.Stay) {
					return 1
				}
				return 0
			}
		}
		return 0
	}
	n := 0
	for _, room := range g.pool {
		if g.occ.IsFree(room.ID, b.Stay) {
			n++
		}
	}
	return n
}
