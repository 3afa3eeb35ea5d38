// Package geometry answers the spatial questions of a battle: distance,
// line of sight, cover, movement paths and engagement range.
package geometry

import (
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
)

// DefaultEngagementRange is the distance in inches at which units are locked in combat.
const DefaultEngagementRange = 1.0

// Service evaluates geometry queries against one battlefield. It is read-only
// and safe for concurrent use.
type Service struct {
	bf              *battlefield.Battlefield
	terrain         []battlefield.TerrainFeature
	engagementRange float64
}

// NewService returns a Service for bf. A non-positive engagementRange selects
// DefaultEngagementRange.
//
// Precondition: bf has been validated.
func NewService(bf *battlefield.Battlefield, engagementRange float64) *Service {
	if engagementRange <= 0 {
		engagementRange = DefaultEngagementRange
	}
	return &Service{bf: bf, terrain: bf.ActiveTerrain(), engagementRange: engagementRange}
}

// Battlefield returns the battlefield the service answers for.
func (s *Service) Battlefield() *battlefield.Battlefield { return s.bf }

// EngagementRange returns the engagement distance in inches.
func (s *Service) EngagementRange() float64 { return s.engagementRange }

// Distance returns the distance between a and b.
func (s *Service) Distance(a, b battlefield.Point) float64 {
	return a.Distance(b)
}

// LineOfSight reports whether no Obscuring footprint touches the segment a-b.
func (s *Service) LineOfSight(a, b battlefield.Point) bool {
	for _, f := range s.terrain {
		if f.Category.BlocksLOS() && f.Footprint.IntersectsSegment(a, b) {
			return false
		}
	}
	return true
}

// InCover reports whether a defender at def gains cover against an attacker
// at att: it stands within a cover feature, or the attack line crosses one
// the attacker is not itself standing in.
func (s *Service) InCover(def, att battlefield.Point) bool {
	for _, f := range s.terrain {
		if !f.Category.GrantsCover() {
			continue
		}
		if f.Footprint.Contains(def) {
			return true
		}
		if !f.Footprint.Contains(att) && f.Footprint.IntersectsSegment(att, def) {
			return true
		}
	}
	return false
}

// PathClear reports whether a straight move from a to b crosses no Impassable
// terrain and ends on the table.
func (s *Service) PathClear(a, b battlefield.Point) bool {
	if !s.bf.InBounds(b) {
		return false
	}
	for _, f := range s.terrain {
		if f.Category.BlocksMovement() && f.Footprint.IntersectsSegment(a, b) {
			return false
		}
	}
	return true
}

// Engaged reports whether two positions are within engagement range.
func (s *Service) Engaged(a, b battlefield.Point) bool {
	return a.Distance(b) <= s.engagementRange
}

// InBounds reports whether p is on the table.
func (s *Service) InBounds(p battlefield.Point) bool { return s.bf.InBounds(p) }

// Clamp moves p onto the table.
func (s *Service) Clamp(p battlefield.Point) battlefield.Point { return s.bf.Clamp(p) }
