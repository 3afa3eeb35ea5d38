package battle

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/geometry"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

const (
	// deployAttempts bounds the rejection sampling per unit.
	deployAttempts = 500
	// deployResolution is the number of sample steps per inch.
	deployResolution = 4
	// deploySpacing keeps auto-deployed units this far from every other unit.
	deploySpacing = 2.0
)

var errNoDeploymentSpace = errors.New("no free position in deployment zone")

type placement struct {
	u    *unit.Unit
	auto bool
}

// deploy places every unit. Units with a recorded position must stand inside
// their zone; the rest are placed by seeded rejection sampling, in roster
// order, after all fixed units.
func deploy(bf *battlefield.Battlefield, geo *geometry.Service, units []placement, src dice.Source) error {
	var placed []*unit.Unit
	for _, p := range units {
		if p.auto {
			continue
		}
		zone, _ := bf.Zone(p.u.Player)
		if !bf.InBounds(p.u.Position) || !zone.Contains(p.u.Position) {
			return &SetupError{Kind: KindDeployment, Subject: p.u.ID,
				Err: fmt.Errorf("position %s is outside player %s's deployment zone", p.u.Position, p.u.Player)}
		}
		if blocked(geo, p.u.Position) {
			return &SetupError{Kind: KindDeployment, Subject: p.u.ID,
				Err: fmt.Errorf("position %s is inside impassable terrain", p.u.Position)}
		}
		placed = append(placed, p.u)
	}

	for _, p := range units {
		if !p.auto {
			continue
		}
		zone, _ := bf.Zone(p.u.Player)
		pos, ok := sample(bf, geo, zone, placed, src)
		if !ok {
			return &SetupError{Kind: KindDeployment, Subject: p.u.ID, Err: errNoDeploymentSpace}
		}
		p.u.Position = pos
		placed = append(placed, p.u)
	}
	return nil
}

func sample(bf *battlefield.Battlefield, geo *geometry.Service, zone battlefield.DeploymentZone, placed []*unit.Unit, src dice.Source) (battlefield.Point, bool) {
	lo, hi := zone.Bounds()
	lo, hi = bf.Clamp(lo), bf.Clamp(hi)
	nx := int((hi.X-lo.X)*deployResolution) + 1
	ny := int((hi.Y-lo.Y)*deployResolution) + 1
	for range deployAttempts {
		p := battlefield.Point{
			X: lo.X + float64(src.Intn(nx))/deployResolution,
			Y: lo.Y + float64(src.Intn(ny))/deployResolution,
		}
		if !zone.Contains(p) || !bf.InBounds(p) || blocked(geo, p) || crowded(p, placed) {
			continue
		}
		return p, true
	}
	return battlefield.Point{}, false
}

func blocked(geo *geometry.Service, p battlefield.Point) bool {
	for _, t := range geo.Battlefield().ActiveTerrain() {
		if t.Category.BlocksMovement() && t.Footprint.Contains(p) {
			return true
		}
	}
	return false
}

func crowded(p battlefield.Point, placed []*unit.Unit) bool {
	for _, u := range placed {
		if u.Position.Distance(p) < deploySpacing {
			return true
		}
	}
	return false
}
