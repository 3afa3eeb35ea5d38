package batch

import (
	"math"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
)

// Failure records a battle that aborted with an internal error.
type Failure struct {
	Index   int    `json:"index"`
	Seed    int64  `json:"seed"`
	Message string `json:"message"`
}

// UnitStats accumulates one unit's fate across battles.
type UnitStats struct {
	Player          battlefield.PlayerID `json:"player"`
	Battles         int                  `json:"battles"`
	Survived        int                  `json:"survived"`
	StartingModels  int                  `json:"starting_models"`
	SurvivingModels int                  `json:"surviving_models"`
}

// SurvivalRate is the fraction of battles the unit survived.
func (u UnitStats) SurvivalRate() float64 {
	if u.Battles == 0 {
		return 0
	}
	return float64(u.Survived) / float64(u.Battles)
}

// Stats aggregates battle results. Every field is an integer sum so Merge is
// commutative and associative; derived figures are computed on read.
type Stats struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	WinsA     int `json:"wins_a"`
	WinsB     int `json:"wins_b"`
	Draws     int `json:"draws"`

	// Decisions counts completed battles per battle.Decision.
	Decisions [4]int   `json:"decisions"`
	TurnsSum  int64    `json:"turns_sum"`
	VPSum     [2]int64 `json:"vp_sum"`
	VPSqSum   [2]int64 `json:"vp_sq_sum"`

	Units    map[string]UnitStats `json:"units"`
	Failures []Failure            `json:"failures,omitempty"`
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{Units: make(map[string]UnitStats)}
}

// Add folds one completed battle into s.
func (s *Stats) Add(res *battle.Result) {
	s.Completed++
	switch res.Winner {
	case battlefield.PlayerA:
		s.WinsA++
	case battlefield.PlayerB:
		s.WinsB++
	default:
		s.Draws++
	}
	if int(res.Decision) >= 0 && int(res.Decision) < len(s.Decisions) {
		s.Decisions[res.Decision]++
	}
	s.TurnsSum += int64(res.Turns)
	for p, vp := range res.VP {
		s.VPSum[p] += int64(vp)
		s.VPSqSum[p] += int64(vp) * int64(vp)
	}
	if s.Units == nil {
		s.Units = make(map[string]UnitStats)
	}
	for _, c := range res.Casualties {
		u := s.Units[c.UnitID]
		u.Player = c.Player
		u.Battles++
		if !c.Destroyed {
			u.Survived++
		}
		u.StartingModels += c.StartingModels
		u.SurvivingModels += c.SurvivingModels
		s.Units[c.UnitID] = u
	}
}

// AddFailure records a failed battle. Failed battles are excluded from every
// average.
func (s *Stats) AddFailure(f Failure) {
	s.Failed++
	s.Failures = append(s.Failures, f)
}

// Merge adds o into s.
func (s *Stats) Merge(o *Stats) {
	s.Completed += o.Completed
	s.Failed += o.Failed
	s.WinsA += o.WinsA
	s.WinsB += o.WinsB
	s.Draws += o.Draws
	for i := range s.Decisions {
		s.Decisions[i] += o.Decisions[i]
	}
	s.TurnsSum += o.TurnsSum
	for p := range s.VPSum {
		s.VPSum[p] += o.VPSum[p]
		s.VPSqSum[p] += o.VPSqSum[p]
	}
	if s.Units == nil {
		s.Units = make(map[string]UnitStats, len(o.Units))
	}
	for id, ou := range o.Units {
		u := s.Units[id]
		u.Player = ou.Player
		u.Battles += ou.Battles
		u.Survived += ou.Survived
		u.StartingModels += ou.StartingModels
		u.SurvivingModels += ou.SurvivingModels
		s.Units[id] = u
	}
	s.Failures = append(s.Failures, o.Failures...)
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Index < s.Failures[j].Index })
}

// WinRate returns the fraction of completed battles won by p.
func (s *Stats) WinRate(p battlefield.PlayerID) float64 {
	if s.Completed == 0 {
		return 0
	}
	wins := s.WinsA
	if p == battlefield.PlayerB {
		wins = s.WinsB
	}
	return float64(wins) / float64(s.Completed)
}

// MeanTurns returns the average battle length.
func (s *Stats) MeanTurns() float64 {
	if s.Completed == 0 {
		return 0
	}
	return float64(s.TurnsSum) / float64(s.Completed)
}

// MeanVP returns p's mean final VP.
func (s *Stats) MeanVP(p battlefield.PlayerID) float64 {
	if s.Completed == 0 {
		return 0
	}
	return float64(s.VPSum[p]) / float64(s.Completed)
}

// VarianceVP returns the population variance of p's final VP.
func (s *Stats) VarianceVP(p battlefield.PlayerID) float64 {
	if s.Completed == 0 {
		return 0
	}
	mean := s.MeanVP(p)
	return math.Max(0, float64(s.VPSqSum[p])/float64(s.Completed)-mean*mean)
}

// StdDevVP returns the standard deviation of p's final VP.
func (s *Stats) StdDevVP(p battlefield.PlayerID) float64 {
	return math.Sqrt(s.VarianceVP(p))
}
