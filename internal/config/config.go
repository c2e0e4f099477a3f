// Package config handles studio configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all studio settings.
type Config struct {
	Viewer  ViewerConfig  `yaml:"viewer"`
	Editor  EditorConfig  `yaml:"editor"`
	Assets  AssetsConfig  `yaml:"assets"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ViewerConfig holds window and camera settings for the interactive viewer.
type ViewerConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Fullscreen    bool    `yaml:"fullscreen"`
	VSync         bool    `yaml:"vsync"`
	FOV           float64 `yaml:"fov"` // vertical, degrees
	ScreenshotDir string  `yaml:"screenshot_dir"`
}

// EditorConfig holds manipulation and history settings.
type EditorConfig struct {
	SnapRotation        bool          `yaml:"snap_rotation"`
	SnapAngle           float64       `yaml:"snap_angle"` // degrees
	RotationSensitivity float64       `yaml:"rotation_sensitivity"`
	HistoryCap          int           `yaml:"history_cap"`
	DragEpsilon         float64       `yaml:"drag_epsilon"`
	DuplicateOffset     [3]float64    `yaml:"duplicate_offset,flow"`
	RestoreConcurrency  int           `yaml:"restore_concurrency"`
	ShowDelay           time.Duration `yaml:"toolbar_show_delay"`
	ReselectSuppress    time.Duration `yaml:"toolbar_reselect_suppress"`
	TransformSuppress   time.Duration `yaml:"toolbar_transform_suppress"`
	FadeDuration        time.Duration `yaml:"toolbar_fade"`
}

// AssetsConfig holds catalog and asset source settings.
type AssetsConfig struct {
	Catalog      string        `yaml:"catalog"`
	Roots        []string      `yaml:"roots"`
	CacheMB      int           `yaml:"cache_mb"`
	WatchCatalog bool          `yaml:"watch_catalog"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// StoreConfig holds design persistence settings.
type StoreConfig struct {
	DesignsDir string `yaml:"designs_dir"`
	User       string `yaml:"user"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			Width:         1280,
			Height:        720,
			VSync:         true,
			FOV:           45,
			ScreenshotDir: "screenshots",
		},
		Editor: EditorConfig{
			SnapRotation:        true,
			SnapAngle:           5,
			RotationSensitivity: 1,
			HistoryCap:          20,
			DragEpsilon:         0.001,
			DuplicateOffset:     [3]float64{0.5, 0, 0.5},
			RestoreConcurrency:  4,
			ShowDelay:           50 * time.Millisecond,
			ReselectSuppress:    100 * time.Millisecond,
			TransformSuppress:   300 * time.Millisecond,
			FadeDuration:        300 * time.Millisecond,
		},
		Assets: AssetsConfig{
			Catalog:      "catalog.yaml",
			Roots:        []string{"assets"},
			CacheMB:      256,
			WatchCatalog: true,
			FetchTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			DesignsDir: "designs",
			User:       "local",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings the editor cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewer size %dx%d must be positive", c.Viewer.Width, c.Viewer.Height))
	}
	if c.Viewer.FOV <= 0 || c.Viewer.FOV >= 180 {
		errs = append(errs, fmt.Errorf("viewer fov %.1f out of range (0, 180)", c.Viewer.FOV))
	}
	if c.Editor.SnapAngle <= 0 {
		errs = append(errs, fmt.Errorf("snap angle %.2f must be positive", c.Editor.SnapAngle))
	}
	if c.Editor.RotationSensitivity <= 0 || c.Editor.RotationSensitivity > 1 {
		errs = append(errs, fmt.Errorf("rotation sensitivity %.2f out of range (0, 1]", c.Editor.RotationSensitivity))
	}
	if c.Editor.HistoryCap < 1 {
		errs = append(errs, fmt.Errorf("history cap %d must be at least 1", c.Editor.HistoryCap))
	}
	if c.Editor.RestoreConcurrency < 1 {
		errs = append(errs, fmt.Errorf("restore concurrency %d must be at least 1", c.Editor.RestoreConcurrency))
	}
	if c.Store.User == "" {
		errs = append(errs, errors.New("store user must be set"))
	}
	return errors.Join(errs...)
}
