package assets

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/van-studio/internal/scene"
)

// Dimensions is the interior size of a vehicle in metres.
type Dimensions struct {
	Length float64 `yaml:"length"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Vehicle is a van shell the user can build in.
type Vehicle struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	File       string     `yaml:"file"`
	Thumbnail  string     `yaml:"thumbnail"`
	Dimensions Dimensions `yaml:"dimensions"`
}

// Furniture is a placeable item.
type Furniture struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	File      string `yaml:"file"`
	Thumbnail string `yaml:"thumbnail"`
	Category  string `yaml:"category"`
}

// Material is a texture that can be applied to furniture meshes.
type Material struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Texture   string `yaml:"texture"`
	Thumbnail string `yaml:"thumbnail"`
	// Color tints the texture; white when empty.
	Color string `yaml:"color"`
}

// Catalog lists everything the studio offers.
type Catalog struct {
	Vehicles  []Vehicle   `yaml:"vehicles"`
	Furniture []Furniture `yaml:"furniture"`
	Materials []Material  `yaml:"materials"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := map[string]string{}
	check := func(section, id, file string) error {
		if id == "" {
			return fmt.Errorf("catalog %s: entry without id", section)
		}
		if file == "" {
			return fmt.Errorf("catalog %s %q: no file", section, id)
		}
		key := section + "/" + id
		if _, dup := seen[key]; dup {
			return fmt.Errorf("catalog %s: duplicate id %q", section, id)
		}
		seen[key] = file
		return nil
	}
	for _, v := range c.Vehicles {
		if err := check("vehicles", v.ID, v.File); err != nil {
			return err
		}
	}
	for _, f := range c.Furniture {
		if err := check("furniture", f.ID, f.File); err != nil {
			return err
		}
	}
	for _, m := range c.Materials {
		if err := check("materials", m.ID, m.Texture); err != nil {
			return err
		}
	}
	return nil
}

// Vehicle looks up a vehicle by id.
func (c *Catalog) Vehicle(id string) (Vehicle, bool) {
	for _, v := range c.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// Item looks up a furniture item by id.
func (c *Catalog) Item(id string) (Furniture, bool) {
	for _, f := range c.Furniture {
		if f.ID == id {
			return f, true
		}
	}
	return Furniture{}, false
}

// Material looks up a material by id.
func (c *Catalog) Material(id string) (Material, bool) {
	for _, m := range c.Materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}

// FurnitureIn returns the items of a category in catalog order. An empty
// category returns everything.
func (c *Catalog) FurnitureIn(category string) []Furniture {
	if category == "" {
		return append([]Furniture(nil), c.Furniture...)
	}
	var out []Furniture
	for _, f := range c.Furniture {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// Categories returns the distinct furniture categories, sorted.
func (c *Catalog) Categories() []string {
	set := map[string]bool{}
	for _, f := range c.Furniture {
		if f.Category != "" {
			set[f.Category] = true
		}
	}
	out := make([]string, 0, len(set))
	for cat := range set {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// entry resolves a model id of the given kind to its file and display name.
func (c *Catalog) entry(kind scene.NodeKind, id string) (file, name, category string, err error) {
	switch kind {
	case scene.KindVehicle:
		v, ok := c.Vehicle(id)
		if !ok {
			return "", "", "", fmt.Errorf("unknown vehicle %q", id)
		}
		return v.File, v.Name, "", nil
	case scene.KindFurniture:
		f, ok := c.Item(id)
		if !ok {
			return "", "", "", fmt.Errorf("unknown furniture %q", id)
		}
		return f.File, f.Name, f.Category, nil
	default:
		return "", "", "", fmt.Errorf("no catalog section for %s", kind)
	}
}
