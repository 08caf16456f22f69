package solver

// Penalty tiers, in priority order. A violation in a higher tier can never
// be offset by gains in a lower one.
const (
	TierSerial    = 0
	TierCrossType = 1
	TierArea      = 2
	numTiers      = 3
)

// Area sub-weights. They rank outcomes within the single area tuple
// component; no-singles dominates, cluster splits and last-resort singles
// outweigh band crossings and group-target misses.
const (
	areaNoSinglesCost  = 5
	areaClusterCost    = 2
	areaLastResortCost = 2
	areaBandCost       = 1
	areaTargetCost     = 1
)

// Penalty is an ordered tuple of non-negative soft-violation counts, one
// per tier, compared lexicographically.
type Penalty [numTiers]int

// Less reports whether p is strictly better than q: smaller in the first
// differing component, regardless of later components.
func (p Penalty) Less(q Penalty) bool {
	for i := 0; i < numTiers; i++ {
		if p[i] != q[i] {
			return p[i] < q[i]
		}
	}
	return false
}

// Add returns the component-wise sum.
func (p Penalty) Add(q Penalty) Penalty {
	var sum Penalty
	for i := 0; i < numTiers; i++ {
		sum[i] = p[i] + q[i]
	}
	return sum
}

// IsZero reports whether no tier is violated.
func (p Penalty) IsZero() bool {
	return p == Penalty{}
}

// tierMask marks which tiers a relaxation level keeps active. Level 0 keeps
// everything, level 1 waives serial adjacency, level 2 additionally waives
// cross-type co-location. Hard constraints are never waived.
type tierMask [numTiers]bool

func maskForLevel(level int) tierMask {
	var m tierMask
	for i := 0; i < numTiers; i++ {
		m[i] = i >= level
	}
	return m
}

// relaxationLevels is the ladder depth tried per group, strictest first.
const relaxationLevels = 3

// scorer computes the SoftPenalty of placing a booking into a room given
// the decided-so-far context. It is pure: the same candidate and context
// always yield the same tuple, which keeps candidate ordering deterministic.
type scorer struct {
	rules *ruleSet
	mask  tierMask

	// group is the room-type group being solved, in input order.
	group []Booking
	// familySize counts bookings per family within the group.
	familySize map[string]int
	// assigned/assignedRank expose in-group decisions; assignedRank holds
	// only ranked rooms.
	assigned map[string]string
	rank     map[string]int // roomID -> rank, ranked rooms only
	// external exposes finalized groups: family -> roomType -> decided
	// room ranks.
	external map[string]map[string][]int
}

func newScorer(rules *ruleSet, mask tierMask, group []Booking, rank map[string]int, external map[string]map[string][]int) *scorer {
	familySize := make(map[string]int, len(group))
	for _, b := range group {
		familySize[b.Family]++
	}
	return &scorer{
		rules:      rules,
		mask:       mask,
		group:      group,
		familySize: familySize,
		assigned:   make(map[string]string, len(group)),
		rank:       rank,
		external:   external,
	}
}

// decidedFamilyRanks lists ranks of the family's already-decided rooms in
// this group, excluding the booking being scored.
func (sc *scorer) decidedFamilyRanks(b Booking) []int {
	var ranks []int
	for _, other := range sc.group {
		if other.ID == b.ID || other.Family != b.Family {
			continue
		}
		roomID, ok := sc.assigned[other.ID]
		if !ok {
			continue
		}
		if r, ok := sc.rank[roomID]; ok {
			ranks = append(ranks, r)
		}
	}
	return ranks
}

// Score returns the masked penalty tuple for assigning b to room.
func (sc *scorer) Score(b Booking, room Room) Penalty {
	var p Penalty
	roomRank, ranked := sc.rank[room.ID]

	if sc.mask[TierSerial] {
		p[TierSerial] = sc.serialPenalty(b, roomRank, ranked)
	}
	if sc.mask[TierCrossType] {
		p[TierCrossType] = sc.crossTypePenalty(b, roomRank, ranked)
	}
	if sc.mask[TierArea] {
		p[TierArea] = sc.areaPenalty(b, roomRank, ranked)
	}
	return p
}

// serialPenalty is zero when the room rank is numerically adjacent to
// another decided room of the same family in this group, or when the family
// has no decided rooms yet.
func (sc *scorer) serialPenalty(b Booking, roomRank int, ranked bool) int {
	decided := sc.decidedFamilyRanks(b)
	if len(decided) == 0 {
		return 0
	}
	if !ranked {
		return 1
	}
	for _, d := range decided {
		diff := roomRank - d
		if diff == 1 || diff == -1 {
			return 0
		}
	}
	return 1
}

// crossTypePenalty adds one unit per applicable rule whose target rank set
// the candidate misses. Applicable means the family has a decided booking
// of the rule's whenType (in a previously finalized group) at a rank inside
// the rule's whenRanks.
func (sc *scorer) crossTypePenalty(b Booking, roomRank int, ranked bool) int {
	rules := sc.rules.rulesByThen[b.RoomType]
	if len(rules) == 0 {
		return 0
	}
	byType := sc.external[b.Family]
	if byType == nil {
		return 0
	}
	penalty := 0
	for _, rule := range rules {
		decided := byType[rule.WhenType]
		applicable := false
		for _, d := range decided {
			if len(rule.WhenRanks) == 0 || containsInt(rule.WhenRanks, d) {
				applicable = true
				break
			}
		}
		if !applicable {
			continue
		}
		if !ranked || !containsInt(rule.TargetRanks, roomRank) {
			penalty++
		}
	}
	return penalty
}

func (sc *scorer) areaPenalty(b Booking, roomRank int, ranked bool) int {
	area, ok := sc.rules.areas[b.RoomType]
	if !ok || !ranked {
		return 0
	}
	penalty := 0
	decided := sc.decidedFamilyRanks(b)
	size := sc.familySize[b.Family]

	if size == 1 {
		if containsInt(area.NoSingles, roomRank) {
			penalty += areaNoSinglesCost
		}
		if containsInt(area.SinglesLastResort, roomRank) {
			penalty += areaLastResortCost
		}
	}

	if area.BandBoundary > 0 && len(decided) > 0 {
		lowBand := roomRank <= area.BandBoundary
		for _, d := range decided {
			if (d <= area.BandBoundary) != lowBand {
				penalty += areaBandCost
				break
			}
		}
	}

	if targets, ok := area.GroupTargets[size]; ok && !containsInt(targets, roomRank) {
		penalty += areaTargetCost
	}

	for _, cluster := range area.Clusters {
		if !containsInt(cluster, roomRank) {
			continue
		}
		if sc.clusterHeldByOtherFamily(b, cluster) {
			penalty += areaClusterCost
		}
	}
	return penalty
}

// clusterHeldByOtherFamily reports whether a different family already holds
// part of the cluster within this group.
func (sc *scorer) clusterHeldByOtherFamily(b Booking, cluster []int) bool {
	for _, other := range sc.group {
		if other.Family == b.Family {
			continue
		}
		roomID, ok := sc.assigned[other.ID]
		if !ok {
			continue
		}
		if r, ok := sc.rank[roomID]; ok && containsInt(cluster, r) {
			return true
		}
	}
	return false
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
