package lighting

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudioRig(t *testing.T) {
	rig := StudioRig()
	require.Len(t, rig, 4)
	assert.Equal(t, Ambient, rig[0].Type)
	assert.Equal(t, mgl64.Vec3{}, rig[0].Direction())

	d := rig[1].Direction()
	assert.InDelta(t, 1, d.Len(), 1e-12)
	assert.Less(t, d.Y(), 0.0, "the key light shines downwards")

	tags := rig[1].Tags()
	assert.Equal(t, "directional", tags["light"])
	assert.Equal(t, "0.8", tags["intensity"])
}
