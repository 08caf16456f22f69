package solver

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// CrossTypeRule is one row of the cross-type co-location table: when a
// family already has a decided booking of WhenType whose room rank is in
// WhenRanks (empty = any rank), rooms for the family's ThenType bookings
// should fall in TargetRanks. The table is configuration, not logic.
type CrossTypeRule struct {
	WhenType    string `json:"whenType" mapstructure:"when_type"`
	WhenRanks   []int  `json:"whenRanks" mapstructure:"when_ranks"`
	ThenType    string `json:"thenType" mapstructure:"then_type"`
	TargetRanks []int  `json:"targetRanks" mapstructure:"target_ranks"`
}

// AreaPolicy carries the area/cluster preferences of one room type.
type AreaPolicy struct {
	RoomType string `json:"roomType" mapstructure:"room_type"`
	// BandBoundary splits the type's ranks into two bands; same-family
	// groups should not straddle it. Zero disables the band rule.
	BandBoundary int `json:"bandBoundary" mapstructure:"band_boundary"`
	// GroupTargets maps a family's same-type group size to the preferred
	// rank set for that size.
	GroupTargets map[int][]int `json:"groupTargets" mapstructure:"group_targets"`
	// Clusters are runs of adjacent ranks that should stay within one
	// family rather than being split across families.
	Clusters [][]int `json:"clusters" mapstructure:"clusters"`
	// NoSingles lists ranks that single-booking families must avoid;
	// SinglesLastResort lists ranks to use for singles only when nothing
	// better is free.
	NoSingles         []int `json:"noSingles" mapstructure:"no_singles"`
	SinglesLastResort []int `json:"singlesLastResort" mapstructure:"singles_last_resort"`
}

// Config is the solver's static rule configuration.
type Config struct {
	CrossTypeRules []CrossTypeRule `json:"crossTypeRules" mapstructure:"cross_type_rules"`
	AreaPolicies   []AreaPolicy    `json:"areaPolicies" mapstructure:"area_policies"`
}

// DefaultConfig returns the built-in rule tables. Rank sets mirror the
// source site's layout; deployments override them through configuration.
func DefaultConfig() Config {
	return Config{
		CrossTypeRules: []CrossTypeRule{
			{WhenType: "double", ThenType: "field", TargetRanks: []int{1, 2, 3, 4, 5}},
			{WhenType: "group", ThenType: "field", TargetRanks: []int{4, 5, 6, 7}},
			{WhenType: "sukkah", ThenType: "field", TargetRanks: []int{4, 5, 6, 7}},
			{WhenType: "cabin", ThenType: "family", TargetRanks: []int{4, 5, 6, 8}},
			{WhenType: "group", ThenType: "family", TargetRanks: []int{4, 5, 6, 8}},
			{WhenType: "sukkah", ThenType: "family", TargetRanks: []int{4, 5, 6, 8}},
		},
		AreaPolicies: []AreaPolicy{
			{
				RoomType:     "field",
				BandBoundary: 8,
				GroupTargets: map[int][]int{
					2: {9, 10, 11, 13, 14, 16, 18},
					3: {9, 10, 11},
				},
				Clusters:          [][]int{{9, 10, 11}, {10, 11}, {13, 14}, {16, 18}},
				NoSingles:         []int{2, 3, 4, 5, 15},
				SinglesLastResort: []int{15},
			},
		},
	}
}

// LoadConfig reads a rule Config from a JSON file. An empty path returns
// the built-in tables.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read rules file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, &ConfigurationError{Reason: fmt.Sprintf("parse rules file %s: %v", path, err)}
	}
	if _, err := compileRules(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigurationError is a fatal rule-table problem, raised before any
// search starts.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "solver configuration: " + e.Reason
}

// ruleSet is the compiled form of a Config.
type ruleSet struct {
	rulesByThen map[string][]CrossTypeRule
	areas       map[string]AreaPolicy
}

func compileRules(cfg Config) (*ruleSet, error) {
	rs := &ruleSet{
		rulesByThen: make(map[string][]CrossTypeRule),
		areas:       make(map[string]AreaPolicy),
	}
	for i, rule := range cfg.CrossTypeRules {
		if rule.WhenType == "" || rule.ThenType == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("rule %d: whenType and thenType are required", i)}
		}
		if rule.WhenType == rule.ThenType {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("rule %d: whenType equals thenType %q", i, rule.WhenType)}
		}
		if len(rule.TargetRanks) == 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("rule %d: empty targetRanks", i)}
		}
		rs.rulesByThen[rule.ThenType] = append(rs.rulesByThen[rule.ThenType], rule)
	}
	for _, area := range cfg.AreaPolicies {
		if area.RoomType == "" {
			return nil, &ConfigurationError{Reason: "area policy without roomType"}
		}
		rs.areas[area.RoomType] = area
	}
	return rs, nil
}

// solveOrder fixes the order room-type groups are solved in: a type that
// rules consult as already-decided context is solved before the types that
// consult it. Cycles in the rule table are a configuration error. Types
// unrelated by any rule keep a deterministic lexicographic order.
func solveOrder(types []string, rules []CrossTypeRule) ([]string, error) {
	present := make(map[string]bool, len(types))
	for _, t := range types {
		present[t] = true
	}

	// whenType -> thenType edges, restricted to types actually present.
	successors := make(map[string][]string)
	indegree := make(map[string]int, len(types))
	for _, t := range types {
		indegree[t] = 0
	}
	seen := make(map[[2]string]bool)
	for _, rule := range rules {
		if !present[rule.WhenType] || !present[rule.ThenType] {
			continue
		}
		edge := [2]string{rule.WhenType, rule.ThenType}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		successors[rule.WhenType] = append(successors[rule.WhenType], rule.ThenType)
		indegree[rule.ThenType]++
	}

	ready := make([]string, 0, len(types))
	for t, deg := range indegree {
		if deg == 0 {
			ready = append(ready, t)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(types))
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		order = append(order, t)
		next := successors[t]
		sort.Strings(next)
		for _, succ := range next {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
		sort.Strings(ready)
	}
	if len(order) != len(types) {
		var stuck []string
		for t, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, t)
			}
		}
		sort.Strings(stuck)
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cyclic cross-type rule dependency involving %v", stuck)}
	}
	return order, nil
}
