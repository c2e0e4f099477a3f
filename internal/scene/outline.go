package scene

import "github.com/go-gl/mathgl/mgl64"

// Selection tint, 0x2194ce.
var (
	OutlineColor     = mgl64.Vec3{0x21 / 255.0, 0x94 / 255.0, 0xce / 255.0}
	OutlineIntensity = 0.3
)

func outlineOf(mat *Material) *Material {
	o := mat.Clone()
	o.Emissive = OutlineColor
	o.EmissiveIntensity = OutlineIntensity
	return o
}

// applyOutline tints every mesh of n and its descendants. Already outlined meshes are skipped.
func applyOutline(n *Node) {
	for _, m := range n.AllMeshes() {
		if m.base != nil {
			continue
		}
		m.base = m.Material
		m.Material = outlineOf(m.base)
	}
}

// clearOutline puts back the exact material pointers saved by applyOutline.
func clearOutline(n *Node) {
	for _, m := range n.AllMeshes() {
		if m.base == nil {
			continue
		}
		m.Material = m.base
		m.base = nil
	}
}
