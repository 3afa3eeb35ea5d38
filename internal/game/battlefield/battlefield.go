// Package battlefield models the table a battle is fought on: its size,
// terrain, objectives and deployment zones.
//
// A Battlefield is immutable once validated and may be shared read-only by
// any number of concurrently running battles.
package battlefield

import (
	"fmt"
)

// Battlefield is the static description of the table.
type Battlefield struct {
	Name       string           `yaml:"name" json:"name"`
	Width      float64          `yaml:"width" json:"width"`
	Length     float64          `yaml:"length" json:"length"`
	Terrain    []TerrainFeature `yaml:"terrain" json:"terrain"`
	Objectives []Objective      `yaml:"objectives" json:"objectives"`
	Deployment []DeploymentZone `yaml:"deployment" json:"deployment"`
}

// InBounds reports whether p lies on the table.
func (b *Battlefield) InBounds(p Point) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Length
}

// Clamp returns p moved onto the table.
func (b *Battlefield) Clamp(p Point) Point {
	return Point{X: min(max(p.X, 0), b.Width), Y: min(max(p.Y, 0), b.Length)}
}

// Zone returns the deployment zone of player.
func (b *Battlefield) Zone(player PlayerID) (DeploymentZone, bool) {
	for _, z := range b.Deployment {
		if z.Player == player {
			return z, true
		}
	}
	return DeploymentZone{}, false
}

// ActiveTerrain returns the features that take part in geometry queries.
// Degenerate footprints are excluded.
func (b *Battlefield) ActiveTerrain() []TerrainFeature {
	out := make([]TerrainFeature, 0, len(b.Terrain))
	for _, f := range b.Terrain {
		if !f.Footprint.Degenerate() {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the battlefield invariants.
//
// Postcondition: returns the warnings for accepted-but-ignored input
// (degenerate terrain), or an error naming the first offending element.
func (b *Battlefield) Validate() ([]string, error) {
	if b.Width <= 0 || b.Length <= 0 {
		return nil, fmt.Errorf("battlefield dimensions must be positive, got %gx%g", b.Width, b.Length)
	}

	var warnings []string
	seen := make(map[string]bool, len(b.Terrain))
	for _, f := range b.Terrain {
		if f.ID == "" {
			return nil, fmt.Errorf("terrain feature %q: id must not be empty", f.Name)
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("terrain feature %q: duplicate id", f.ID)
		}
		seen[f.ID] = true
		if f.Footprint.Degenerate() {
			warnings = append(warnings, fmt.Sprintf("terrain feature %q has a degenerate footprint and is ignored", f.ID))
			continue
		}
		if !b.containsFootprint(f.Footprint) {
			return nil, fmt.Errorf("terrain feature %q lies outside the battlefield", f.ID)
		}
	}

	seen = make(map[string]bool, len(b.Objectives))
	for _, o := range b.Objectives {
		if o.ID == "" {
			return nil, fmt.Errorf("objective %q: id must not be empty", o.Name)
		}
		if seen[o.ID] {
			return nil, fmt.Errorf("objective %q: duplicate id", o.ID)
		}
		seen[o.ID] = true
		if !b.InBounds(o.Position) {
			return nil, fmt.Errorf("objective %q at %s lies outside the battlefield", o.ID, o.Position)
		}
		if o.Value < 0 {
			return nil, fmt.Errorf("objective %q: value must not be negative", o.ID)
		}
		if o.ControlRadius < 0 {
			return nil, fmt.Errorf("objective %q: control radius must not be negative", o.ID)
		}
	}

	for _, p := range Players {
		z, ok := b.Zone(p)
		if !ok {
			return nil, fmt.Errorf("deployment zone for player %s is missing", p)
		}
		usable := 0
		for i, r := range z.Regions {
			if r.Degenerate() {
				warnings = append(warnings, fmt.Sprintf("deployment zone %s region %d is degenerate and is ignored", p, i))
				continue
			}
			if !b.containsFootprint(r) {
				return nil, fmt.Errorf("deployment zone %s region %d lies outside the battlefield", p, i)
			}
			usable++
		}
		if usable == 0 {
			return nil, fmt.Errorf("deployment zone for player %s has no usable region", p)
		}
	}
	if len(b.Deployment) != 2 {
		return nil, fmt.Errorf("battlefield must define exactly 2 deployment zones, got %d", len(b.Deployment))
	}
	return warnings, nil
}

func (b *Battlefield) containsFootprint(f Footprint) bool {
	lo, hi := f.Bounds()
	return b.InBounds(lo) && b.InBounds(hi)
}
