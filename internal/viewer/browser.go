package viewer

import (
	"context"
	"time"

	"github.com/Faultbox/van-studio/internal/assets"
	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/studio"
)

// Palette offered by the colour key, matching the swatches of the web editor.
var Palette = []string{"#ffffff", "#8b4513", "#d2b48c", "#808080", "#2f4f4f", "#000000"}

// Browser maps catalog keys to studio actions. Without a side panel the
// catalog is walked in order: each press takes the next entry.
type Browser struct {
	studio *studio.Studio
	notify editor.NotifyFunc
	next   map[string]int
	now    func() time.Time
}

// NewBrowser creates a browser over the studio's catalog. Refused actions are
// reported through notify.
func NewBrowser(s *studio.Studio, notify editor.NotifyFunc) *Browser {
	if notify == nil {
		notify = func(string, error) {}
	}
	return &Browser{studio: s, notify: notify, next: make(map[string]int), now: time.Now}
}

func (b *Browser) catalog() *assets.Catalog {
	if c := b.studio.Catalog(); c != nil {
		return c
	}
	return &assets.Catalog{}
}

// take returns the next index for a list of n entries, or -1 when empty.
func (b *Browser) take(list string, n int) int {
	if n == 0 {
		return -1
	}
	i := b.next[list] % n
	b.next[list] = i + 1
	return i
}

// KeyDown handles catalog and design keys and reports whether ev was one.
func (b *Browser) KeyDown(ev studio.KeyEvent) bool {
	s := b.studio
	ctx := context.Background()
	if ev.Ctrl {
		switch ev.Key {
		case "s":
			name := s.DesignName()
			if name == "" {
				name = "Design " + b.now().Format("2006-01-02 15:04")
			}
			_, _ = s.SaveDesign(ctx, name)
		case "o":
			list, err := s.ListDesigns(ctx)
			if err == nil && len(list) > 0 {
				s.LoadDesign(ctx, list[b.take("designs", len(list))].ID, nil)
			}
		case "n":
			s.NewDesign()
		case "d":
			if _, err := s.Duplicate(); err != nil {
				b.notify("Cannot duplicate", err)
			}
		default:
			return false
		}
		return true
	}

	cat := b.catalog()
	switch ev.Key {
	case "v":
		if i := b.take("vehicles", len(cat.Vehicles)); i >= 0 {
			s.LoadVehicle(cat.Vehicles[i].ID, nil)
		}
	case "n":
		if i := b.take("furniture", len(cat.Furniture)); i >= 0 {
			s.AddFurniture(cat.Furniture[i].ID, nil)
		}
	case "m":
		if i := b.take("materials", len(cat.Materials)); i >= 0 {
			s.ApplyMaterial(cat.Materials[i].ID, nil)
		}
	case "c":
		if err := s.RemoveMaterial(Palette[b.take("colors", len(Palette))]); err != nil {
			b.notify("Cannot change colour", err)
		}
	case "t":
		s.ToggleGrid()
	case "k":
		s.ToggleMeasurements()
	default:
		return false
	}
	return true
}
