package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfig names a config file when no --config flag is given.
const EnvConfig = "VANSTUDIO_CONFIG"

const (
	localConfigName = "vanstudio.yaml"
	userConfigName  = "config.yaml"
)

// Load resolves defaults < file < overrides and validates the result. The file
// is o.ConfigPath, then $VANSTUDIO_CONFIG, then the first of ./vanstudio.yaml
// and the user config that exists. An explicit path must exist.
func Load(o *Overrides) (*Config, error) {
	cfg := Default()

	path, explicit := "", false
	if o != nil && o.ConfigPath != "" {
		path, explicit = o.ConfigPath, true
	} else if env := os.Getenv(EnvConfig); env != "" {
		path, explicit = env, true
	} else {
		path = findConfigFile()
	}

	if path != "" {
		err := loadFromFile(cfg, path)
		if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	o.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads path over the defaults without consulting the environment.
func LoadFile(path string) (*Config, error) {
	return Load(&Overrides{ConfigPath: path})
}

func findConfigFile() string {
	for _, path := range []string{
		"./" + localConfigName,
		filepath.Join(ConfigDir(), userConfigName),
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory for this OS.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "VanStudio")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "VanStudio")
		}
		return filepath.Join(home, "AppData", "Roaming", "VanStudio")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "van-studio")
	}
	return filepath.Join(home, ".config", "van-studio")
}

// loadFromFile merges a YAML file into cfg; absent keys keep their values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// Save writes the config to the user config directory.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), userConfigName))
}

// SaveTo replaces path atomically, creating parent directories.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
