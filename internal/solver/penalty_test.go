package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPenaltyLexicographicOrder(t *testing.T) {
	assert.True(t, Penalty{0, 0, 9}.Less(Penalty{0, 1, 0}), "higher tier dominates")
	assert.True(t, Penalty{0, 1, 0}.Less(Penalty{1, 0, 0}))
	assert.False(t, Penalty{1, 0, 0}.Less(Penalty{0, 5, 5}))
	assert.False(t, Penalty{1, 2, 3}.Less(Penalty{1, 2, 3}), "equal tuples are not less")
}

func TestPenaltyAddAndZero(t *testing.T) {
	sum := Penalty{1, 0, 2}.Add(Penalty{0, 3, 1})
	assert.Equal(t, Penalty{1, 3, 3}, sum)
	assert.True(t, Penalty{}.IsZero())
	assert.False(t, sum.IsZero())
}

func TestMaskForLevelWaivesTiersInOrder(t *testing.T) {
	assert.Equal(t, tierMask{true, true, true}, maskForLevel(0))
	assert.Equal(t, tierMask{false, true, true}, maskForLevel(1))
	assert.Equal(t, tierMask{false, false, true}, maskForLevel(2))
}

func TestScorerSerialAdjacency(t *testing.T) {
	rs, err := compileRules(DefaultConfig())
	require.NoError(t, err)

	group := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rank := map[string]int{"9": 9, "10": 10, "16": 16}
	sc := newScorer(rs, maskForLevel(0), group, rank, nil)
	sc.assigned["bk-1"] = "9"

	adjacent := sc.Score(group[1], Room{ID: "10", RoomType: "field"})
	distant := sc.Score(group[1], Room{ID: "16", RoomType: "field"})
	assert.Equal(t, 0, adjacent[TierSerial])
	assert.Equal(t, 1, distant[TierSerial])
}

func TestScorerSerialWaivedAtLevelOne(t *testing.T) {
	rs, err := compileRules(DefaultConfig())
	require.NoError(t, err)

	group := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rank := map[string]int{"9": 9, "16": 16}
	sc := newScorer(rs, maskForLevel(1), group, rank, nil)
	sc.assigned["bk-1"] = "9"

	distant := sc.Score(group[1], Room{ID: "16", RoomType: "field"})
	assert.Equal(t, 0, distant[TierSerial])
}

func TestScorerCrossTypeUsesExternalContext(t *testing.T) {
	rs, err := compileRules(DefaultConfig())
	require.NoError(t, err)

	group := []Booking{
		{ID: "bk-f", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rank := map[string]int{"3": 3, "6": 6}
	external := map[string]map[string][]int{
		"Levi": {"double": {1}},
	}
	sc := newScorer(rs, maskForLevel(0), group, rank, external)

	inTarget := sc.Score(group[0], Room{ID: "3", RoomType: "field"})
	outOfTarget := sc.Score(group[0], Room{ID: "6", RoomType: "field"})
	assert.Equal(t, 0, inTarget[TierCrossType])
	assert.Equal(t, 1, outOfTarget[TierCrossType])
}

func TestScorerAreaSinglesAndClusters(t *testing.T) {
	rs, err := compileRules(DefaultConfig())
	require.NoError(t, err)

	single := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rank := map[string]int{"2": 2, "6": 6, "15": 15}
	sc := newScorer(rs, maskForLevel(0), single, rank, nil)

	noSingles := sc.Score(single[0], Room{ID: "2", RoomType: "field"})
	assert.Equal(t, areaNoSinglesCost, noSingles[TierArea])

	lastResort := sc.Score(single[0], Room{ID: "15", RoomType: "field"})
	assert.Equal(t, areaNoSinglesCost+areaLastResortCost, lastResort[TierArea])

	clean := sc.Score(single[0], Room{ID: "6", RoomType: "field"})
	assert.Equal(t, 0, clean[TierArea])
}

func TestScorerClusterSplitPenalty(t *testing.T) {
	rs, err := compileRules(DefaultConfig())
	require.NoError(t, err)

	group := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-3", Family: "Mizrahi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-4", Family: "Mizrahi", RoomType: "field", Stay: span(1, 5)},
	}
	rank := map[string]int{"9": 9, "10": 10, "11": 11, "13": 13}
	sc := newScorer(rs, maskForLevel(0), group, rank, nil)
	sc.assigned["bk-1"] = "9"

	// rank 10 sits in a cluster already started by the Levi family
	split := sc.Score(group[2], Room{ID: "10", RoomType: "field"})
	assert.GreaterOrEqual(t, split[TierArea], areaClusterCost)

	outside := sc.Score(group[2], Room{ID: "13", RoomType: "field"})
	assert.Less(t, outside[TierArea], split[TierArea])
}

func TestScorerBandCrossing(t *testing.T) {
	rs, err := compileRules(DefaultConfig())
	require.NoError(t, err)

	group := []Booking{
		{ID: "bk-1", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
		{ID: "bk-2", Family: "Levi", RoomType: "field", Stay: span(1, 5)},
	}
	rank := map[string]int{"7": 7, "9": 9, "10": 10}
	sc := newScorer(rs, maskForLevel(0), group, rank, nil)
	sc.assigned["bk-1"] = "9"

	crossing := sc.Score(group[1], Room{ID: "7", RoomType: "field"})
	sameBand := sc.Score(group[1], Room{ID: "10", RoomType: "field"})
	assert.Greater(t, crossing[TierArea], sameBand[TierArea])
}
