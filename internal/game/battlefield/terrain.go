package battlefield

import (
	"fmt"
	"strings"
)

// Category classifies what a terrain feature does to movement, sight and saves.
type Category int

const (
	LightCover Category = iota
	HeavyCover
	Obscuring
	Impassable
)

var categoryNames = map[Category]string{
	LightCover: "light_cover",
	HeavyCover: "heavy_cover",
	Obscuring:  "obscuring",
	Impassable: "impassable",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.ReplaceAll(string(text), "-", "_"))
	for k, v := range categoryNames {
		if v == name {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown terrain category %q", string(text))
}

// BlocksLOS reports whether the category blocks line of sight.
func (c Category) BlocksLOS() bool { return c == Obscuring }

// BlocksMovement reports whether units may not cross the feature.
func (c Category) BlocksMovement() bool { return c == Impassable }

// GrantsCover reports whether a defender in or behind the feature gains a save bonus.
func (c Category) GrantsCover() bool { return c == LightCover || c == HeavyCover }

// TerrainFeature is one piece of terrain on the table.
type TerrainFeature struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Category  Category  `yaml:"category" json:"category"`
	Footprint Footprint `yaml:"footprint" json:"footprint"`
	Height    float64   `yaml:"height" json:"height"`
}
