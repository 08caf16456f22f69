package solver

import "sort"

// Occupancy tracks, per room, the intervals currently held by decided
// bookings. Intervals on one room never overlap; Hold and Release are the
// commit/undo pair the search engine drives at every node. The structure
// knows nothing about room types or preferences.
type Occupancy struct {
	held map[string][]Interval
}

// NewOccupancy returns an empty occupancy model.
func NewOccupancy() *Occupancy {
	return &Occupancy{held: make(map[string][]Interval)}
}

// insertionPoint returns the index of the first held interval starting at or
// after iv.Start. Held intervals are kept sorted by start.
func (o *Occupancy) insertionPoint(intervals []Interval, iv Interval) int {
	return sort.Search(len(intervals), func(i int) bool {
		return !intervals[i].Start.Before(iv.Start)
	})
}

// IsFree reports whether the room has no held interval overlapping iv.
func (o *Occupancy) IsFree(roomID string, iv Interval) bool {
	intervals := o.held[roomID]
	i := o.insertionPoint(intervals, iv)
	if i > 0 && intervals[i-1].End.After(iv.Start) {
		return false
	}
	if i < len(intervals) && intervals[i].Start.Before(iv.End) {
		return false
	}
	return true
}

// Hold reserves iv on the room. It returns false without side effects when
// the room is not free; callers check IsFree (or trust the candidate
// generator) first — this is an invariant-preserving primitive, not
// user-facing validation.
func (o *Occupancy) Hold(roomID string, iv Interval) bool {
	if !o.IsFree(roomID, iv) {
		return false
	}
	intervals := o.held[roomID]
	i := o.insertionPoint(intervals, iv)
	intervals = append(intervals, Interval{})
	copy(intervals[i+1:], intervals[i:])
	intervals[i] = iv
	o.held[roomID] = intervals
	return true
}

// Release removes a previously held interval from the room. Releasing an
// interval that was never held is a no-op.
func (o *Occupancy) Release(roomID string, iv Interval) {
	intervals := o.held[roomID]
	i := o.insertionPoint(intervals, iv)
	if i >= len(intervals) || !intervals[i].Start.Equal(iv.Start) || !intervals[i].End.Equal(iv.End) {
		return
	}
	o.held[roomID] = append(intervals[:i], intervals[i+1:]...)
}

// HeldCount returns the number of intervals currently held on the room.
func (o *Occupancy) HeldCount(roomID string) int {
	return len(o.held[roomID])
}
