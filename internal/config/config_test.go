package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1280, cfg.Viewer.Width)
	assert.Equal(t, 720, cfg.Viewer.Height)
	assert.Equal(t, 45.0, cfg.Viewer.FOV)
	assert.True(t, cfg.Viewer.VSync)

	assert.True(t, cfg.Editor.SnapRotation)
	assert.Equal(t, 5.0, cfg.Editor.SnapAngle)
	assert.Equal(t, 20, cfg.Editor.HistoryCap)
	assert.Equal(t, 0.001, cfg.Editor.DragEpsilon)
	assert.Equal(t, [3]float64{0.5, 0, 0.5}, cfg.Editor.DuplicateOffset)
	assert.Equal(t, 50*time.Millisecond, cfg.Editor.ShowDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Editor.ReselectSuppress)
	assert.Equal(t, 300*time.Millisecond, cfg.Editor.TransformSuppress)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
viewer:
  width: 1920
  height: 1080
  fullscreen: true
  fov: 60

editor:
  snap_rotation: false
  snap_angle: 15
  history_cap: 50
  duplicate_offset: [1, 0, 1]
  toolbar_fade: 150ms

assets:
  catalog: "/srv/catalog.yaml"
  roots: ["/srv/models", "/srv/textures"]

store:
  designs_dir: "/var/lib/vanstudio"
  user: "alice"

logging:
  level: "debug"
  log_file: "studio.log"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath))

	assert.Equal(t, 1920, cfg.Viewer.Width)
	assert.True(t, cfg.Viewer.Fullscreen)
	assert.Equal(t, 60.0, cfg.Viewer.FOV)
	assert.True(t, cfg.Viewer.VSync, "absent keys keep defaults")

	assert.False(t, cfg.Editor.SnapRotation)
	assert.Equal(t, 15.0, cfg.Editor.SnapAngle)
	assert.Equal(t, 50, cfg.Editor.HistoryCap)
	assert.Equal(t, [3]float64{1, 0, 1}, cfg.Editor.DuplicateOffset)
	assert.Equal(t, 150*time.Millisecond, cfg.Editor.FadeDuration)

	assert.Equal(t, []string{"/srv/models", "/srv/textures"}, cfg.Assets.Roots)
	assert.Equal(t, "alice", cfg.Store.User)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	invalidYAML := `
viewer:
  width: not a number
  invalid syntax here
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0o644))

	assert.Error(t, loadFromFile(Default(), configPath))
}

func TestLoadFromFileMissing(t *testing.T) {
	assert.Error(t, loadFromFile(Default(), "/nonexistent/path/config.yaml"))
}

func TestLoadFileValidates(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("editor:\n  snap_angle: 0\n  history_cap: 0\n"), 0o644))

	_, err := LoadFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snap angle")
	assert.Contains(t, err.Error(), "history cap")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero width", func(c *Config) { c.Viewer.Width = 0 }, false},
		{"fov too wide", func(c *Config) { c.Viewer.FOV = 180 }, false},
		{"negative snap", func(c *Config) { c.Editor.SnapAngle = -5 }, false},
		{"sensitivity above one", func(c *Config) { c.Editor.RotationSensitivity = 1.5 }, false},
		{"empty user", func(c *Config) { c.Store.User = "" }, false},
		{"no restore workers", func(c *Config) { c.Editor.RestoreConcurrency = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir), "ConfigDir should be absolute, got %s", dir)
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	assert.Empty(t, findConfigFile())

	require.NoError(t, os.WriteFile("vanstudio.yaml", []byte("viewer:\n  width: 800\n"), 0o644))
	assert.Equal(t, "./vanstudio.yaml", findConfigFile())
}

func TestOverridesApply(t *testing.T) {
	tests := []struct {
		name   string
		ov     *Overrides
		verify func(*testing.T, *Config)
	}{
		{
			name:   "nil overrides",
			ov:     nil,
			verify: func(t *testing.T, cfg *Config) { assert.Equal(t, Default(), cfg) },
		},
		{
			name:   "debug",
			ov:     &Overrides{Debug: true},
			verify: func(t *testing.T, cfg *Config) { assert.Equal(t, "debug", cfg.Logging.Level) },
		},
		{
			name:   "fullscreen beats windowed",
			ov:     &Overrides{Fullscreen: true, Windowed: true},
			verify: func(t *testing.T, cfg *Config) { assert.True(t, cfg.Viewer.Fullscreen) },
		},
		{
			name: "size",
			ov:   &Overrides{Width: 2560, Height: 1440},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2560, cfg.Viewer.Width)
				assert.Equal(t, 1440, cfg.Viewer.Height)
			},
		},
		{
			name: "store",
			ov:   &Overrides{DesignsDir: "/tmp/designs", User: "bob"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/tmp/designs", cfg.Store.DesignsDir)
				assert.Equal(t, "bob", cfg.Store.User)
			},
		},
		{
			name: "editor and assets",
			ov:   &Overrides{NoSnap: true, NoWatch: true, Roots: []string{"a", "b"}},
			verify: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Editor.SnapRotation)
				assert.False(t, cfg.Assets.WatchCatalog)
				assert.Equal(t, []string{"a", "b"}, cfg.Assets.Roots)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.ov.Apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestRegisterParsesArgs(t *testing.T) {
	fs := flag.NewFlagSet("vanstudio", flag.ContinueOnError)
	var o Overrides
	o.Register(fs)

	require.NoError(t, fs.Parse([]string{"-width", "800", "-root", "assets, more", "-root", "extra", "-user", "dana"}))
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, []string{"assets", "more", "extra"}, o.Roots)
	assert.Equal(t, "dana", o.User)
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("viewer:\n  width: 1600\n  height: 900\n"), 0o644))

	cfg, err := Load(&Overrides{ConfigPath: configPath, Width: 1920})
	require.NoError(t, err)
	assert.Equal(t, 1920, cfg.Viewer.Width, "flag beats file")
	assert.Equal(t, 900, cfg.Viewer.Height, "file beats default")
}

func TestLoadFromEnvironment(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  user: erin\n"), 0o644))
	t.Setenv(EnvConfig, configPath)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "erin", cfg.Store.User)

	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "gone.yaml"))
	_, err = Load(nil)
	assert.Error(t, err, "an explicit path must exist")
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Store.User = "carol"
	cfg.Editor.SnapAngle = 10

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
