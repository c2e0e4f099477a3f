package config

import (
	"flag"
	"strings"
)

// Overrides are command-line values layered over the config file. Zero values
// leave the file's setting alone.
type Overrides struct {
	ConfigPath string
	Debug      bool
	Windowed   bool
	Fullscreen bool
	Width      int
	Height     int
	Catalog    string
	Roots      []string
	DesignsDir string
	User       string
	NoSnap     bool
	NoWatch    bool
}

// Register binds the overrides to fs.
func (o *Overrides) Register(fs *flag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&o.Windowed, "windowed", false, "Run in windowed mode")
	fs.BoolVar(&o.Fullscreen, "fullscreen", false, "Run in fullscreen mode")
	fs.IntVar(&o.Width, "width", 0, "Window width")
	fs.IntVar(&o.Height, "height", 0, "Window height")
	fs.StringVar(&o.Catalog, "catalog", "", "Path to the asset catalog")
	fs.Func("root", "Asset root directory (repeatable, or comma separated)", func(v string) error {
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				o.Roots = append(o.Roots, r)
			}
		}
		return nil
	})
	fs.StringVar(&o.DesignsDir, "designs", "", "Directory holding saved designs")
	fs.StringVar(&o.User, "user", "", "User the designs belong to")
	fs.BoolVar(&o.NoSnap, "no-snap", false, "Start with rotation snapping off")
	fs.BoolVar(&o.NoWatch, "no-watch", false, "Do not reload the catalog when it changes")
}

// ParseFlags reads the process arguments into a fresh Overrides.
func ParseFlags() *Overrides {
	o := &Overrides{}
	o.Register(flag.CommandLine)
	flag.Parse()
	return o
}

// Apply writes every set override into cfg.
func (o *Overrides) Apply(cfg *Config) {
	if o == nil {
		return
	}
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	switch {
	case o.Fullscreen:
		cfg.Viewer.Fullscreen = true
	case o.Windowed:
		cfg.Viewer.Fullscreen = false
	}
	if o.Width > 0 {
		cfg.Viewer.Width = o.Width
	}
	if o.Height > 0 {
		cfg.Viewer.Height = o.Height
	}
	if o.Catalog != "" {
		cfg.Assets.Catalog = o.Catalog
	}
	if len(o.Roots) > 0 {
		cfg.Assets.Roots = append([]string(nil), o.Roots...)
	}
	if o.DesignsDir != "" {
		cfg.Store.DesignsDir = o.DesignsDir
	}
	if o.User != "" {
		cfg.Store.User = o.User
	}
	if o.NoSnap {
		cfg.Editor.SnapRotation = false
	}
	if o.NoWatch {
		cfg.Assets.WatchCatalog = false
	}
}
