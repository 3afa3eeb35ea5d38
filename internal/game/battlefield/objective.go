package battlefield

// DefaultControlRadius is the objective control range in inches when neither
// the objective nor the configuration overrides it.
const DefaultControlRadius = 3.0

// Objective is a scoring marker. Its controller is battle state and is kept by
// the phase controller, not here.
type Objective struct {
	ID            string  `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	Position      Point   `yaml:"position" json:"position"`
	Value         int     `yaml:"value" json:"value"`
	ControlRadius float64 `yaml:"control_radius,omitempty" json:"control_radius,omitempty"`
}

// Radius returns the objective's control radius, or def when unset.
func (o Objective) Radius(def float64) float64 {
	if o.ControlRadius > 0 {
		return o.ControlRadius
	}
	if def > 0 {
		return def
	}
	return DefaultControlRadius
}

// DeploymentZone is the region a player's units must start in. A zone with
// several regions is the union of them.
type DeploymentZone struct {
	Player  PlayerID    `yaml:"player" json:"player"`
	Regions []Footprint `yaml:"regions" json:"regions"`
}

// Contains reports whether p lies in any region of the zone.
func (z DeploymentZone) Contains(p Point) bool {
	for _, r := range z.Regions {
		if !r.Degenerate() && r.Contains(p) {
			return true
		}
	}
	return false
}

// Bounds returns the bounding box of all non-degenerate regions.
func (z DeploymentZone) Bounds() (lo, hi Point) {
	first := true
	for _, r := range z.Regions {
		if r.Degenerate() {
			continue
		}
		rlo, rhi := r.Bounds()
		if first {
			lo, hi, first = rlo, rhi, false
			continue
		}
		lo = Point{X: min(lo.X, rlo.X), Y: min(lo.Y, rlo.Y)}
		hi = Point{X: max(hi.X, rhi.X), Y: max(hi.Y, rhi.Y)}
	}
	return lo, hi
}
