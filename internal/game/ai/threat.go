package ai

import "github.com/cory-johannsen/skirmish/internal/game/unit"

// ThreatScorer rates how dangerous or valuable a unit is as a target.
// Implementations must be deterministic.
type ThreatScorer interface {
	Threat(u *unit.Unit) float64
}

// DefaultThreat weights points value, characters and raw weapon output.
type DefaultThreat struct{}

const (
	characterThreat = 50.0
	outputThreat    = 10.0
)

// Threat implements ThreatScorer.
func (DefaultThreat) Threat(u *unit.Unit) float64 {
	if u.IsDestroyed() {
		return 0
	}
	score := float64(u.Points)
	if u.IsCharacter() {
		score += characterThreat
	}
	best := 0.0
	for i := range u.Weapons {
		best = max(best, u.Weapons[i].MeanOutput())
	}
	return score + outputThreat*best*float64(u.ModelsRemaining())
}
