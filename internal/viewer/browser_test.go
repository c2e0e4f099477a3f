package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/van-studio/internal/assets"
	"github.com/Faultbox/van-studio/internal/config"
	"github.com/Faultbox/van-studio/internal/design"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/internal/studio"
	"github.com/Faultbox/van-studio/pkg/geom"
)

type catalogLoader struct{ cat *assets.Catalog }

func (l catalogLoader) LoadModel(_ context.Context, kind scene.NodeKind, id string) (*scene.Node, error) {
	n := scene.NewNode(kind, id)
	n.ModelID = id
	n.Meshes = []*scene.Mesh{{
		ID:       "body",
		Bounds:   geom.NewAABB(mgl64.Vec3{-0.5, 0, -0.5}, mgl64.Vec3{0.5, 1, 0.5}),
		Material: &scene.Material{Color: "#cccccc"},
	}}
	return n, nil
}

func (l catalogLoader) LoadMaterial(_ context.Context, id string) (*scene.Material, error) {
	return &scene.Material{Color: "#ffffff", MaterialID: id}, nil
}

func (l catalogLoader) Catalog() *assets.Catalog { return l.cat }

func newBrowser(t *testing.T) (*Browser, *studio.Studio, *[]string) {
	t.Helper()
	cat := &assets.Catalog{
		Vehicles:  []assets.Vehicle{{ID: "sprinter"}, {ID: "transit"}},
		Furniture: []assets.Furniture{{ID: "table"}, {ID: "bench"}},
		Materials: []assets.Material{{ID: "walnut"}},
	}
	cfg := config.Default()
	cfg.Store.User = "viewer"
	s := studio.New(cfg, studio.Deps{
		Loader: catalogLoader{cat},
		Store:  design.NewFileStore(t.TempDir()),
	})
	t.Cleanup(s.Close)

	var notes []string
	b := NewBrowser(s, func(msg string, err error) {
		if err != nil {
			notes = append(notes, msg)
		}
	})
	b.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return b, s, &notes
}

func settle(s *studio.Studio) {
	s.Wait()
	s.Update(time.Now())
}

func TestBrowserCyclesCatalog(t *testing.T) {
	b, s, _ := newBrowser(t)

	require.True(t, b.KeyDown(studio.KeyEvent{Key: "v"}))
	settle(s)
	assert.Equal(t, "sprinter", s.Scene().Vehicle().ModelID)

	b.KeyDown(studio.KeyEvent{Key: "v"})
	settle(s)
	assert.Equal(t, "transit", s.Scene().Vehicle().ModelID)

	b.KeyDown(studio.KeyEvent{Key: "v"})
	settle(s)
	assert.Equal(t, "sprinter", s.Scene().Vehicle().ModelID, "wraps around")

	b.KeyDown(studio.KeyEvent{Key: "n"})
	settle(s)
	sel := s.Scene().Selected()
	require.NotNil(t, sel)
	assert.Equal(t, "table", sel.ModelID)

	b.KeyDown(studio.KeyEvent{Key: "m"})
	settle(s)
	assert.Equal(t, "walnut", sel.Mesh("body").BaseMaterial().MaterialID)

	b.KeyDown(studio.KeyEvent{Key: "c"})
	assert.Equal(t, Palette[0], sel.Mesh("body").BaseMaterial().Color)
	assert.Empty(t, sel.Mesh("body").BaseMaterial().MaterialID)

	assert.False(t, b.KeyDown(studio.KeyEvent{Key: "z"}), "left to the studio")
}

func TestBrowserDesignKeys(t *testing.T) {
	b, s, notes := newBrowser(t)

	b.KeyDown(studio.KeyEvent{Key: "d", Ctrl: true})
	assert.Equal(t, []string{"Cannot duplicate"}, *notes)

	b.KeyDown(studio.KeyEvent{Key: "n"})
	settle(s)
	require.True(t, b.KeyDown(studio.KeyEvent{Key: "s", Ctrl: true}))
	assert.Equal(t, "Design 2024-06-01 09:30", s.DesignName())

	b.KeyDown(studio.KeyEvent{Key: "n", Ctrl: true})
	assert.Empty(t, s.Scene().Objects())

	b.KeyDown(studio.KeyEvent{Key: "o", Ctrl: true})
	settle(s)
	assert.Len(t, s.Scene().Objects(), 1)
	assert.Equal(t, "Design 2024-06-01 09:30", s.DesignName())
}
