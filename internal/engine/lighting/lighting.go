// Package lighting describes the studio light rig.
package lighting

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
)

// Type is the kind of light.
type Type uint8

const (
	Ambient Type = iota
	Directional
)

func (t Type) String() string {
	if t == Ambient {
		return "ambient"
	}
	return "directional"
}

// Light is one light of the rig. Directional lights shine from Position
// towards the origin.
type Light struct {
	Name      string
	Type      Type
	Position  mgl64.Vec3
	Color     string
	Intensity float64
}

// Direction returns the unit vector the light travels along, zero for ambient light.
func (l Light) Direction() mgl64.Vec3 {
	if l.Type == Ambient || l.Position.Len() == 0 {
		return mgl64.Vec3{}
	}
	return l.Position.Mul(-1).Normalize()
}

// Tags returns the light parameters as string tags for scene nodes.
func (l Light) Tags() map[string]string {
	return map[string]string{
		"light":     l.Type.String(),
		"color":     l.Color,
		"intensity": strconv.FormatFloat(l.Intensity, 'f', -1, 64),
	}
}

// StudioRig returns the default rig: soft ambient fill, a key light from above
// and front and back fills.
func StudioRig() []Light {
	return []Light{
		{Name: "ambient", Type: Ambient, Color: "#ffffff", Intensity: 0.6},
		{Name: "sun", Type: Directional, Position: mgl64.Vec3{10, 10, 10}, Color: "#ffffff", Intensity: 0.8},
		{Name: "front", Type: Directional, Position: mgl64.Vec3{0, 5, 10}, Color: "#ffffff", Intensity: 0.5},
		{Name: "back", Type: Directional, Position: mgl64.Vec3{0, 5, -10}, Color: "#ffffff", Intensity: 0.2},
	}
}
