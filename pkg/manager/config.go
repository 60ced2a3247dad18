package manager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotExist is returned when no configuration file can be found.
var ErrConfigNotExist = errors.New("no config file was found")

// ConfigFiles are tried in order when no path is given.
var ConfigFiles = []string{
	".refresh.yml",
	".refresh.yaml",
	"refresh.yml",
	"refresh.yaml",
}

// Config describes what to watch, how to build and how to run the app.
type Config struct {
	AppRoot            string        `yaml:"app_root"`
	IgnoredFolders     []string      `yaml:"ignored_folders"`
	IncludedExtensions []string      `yaml:"included_extensions"`
	IncludedPatterns   []string      `yaml:"included_patterns,omitempty"`
	ReloadPatterns     []string      `yaml:"reload_patterns,omitempty"`
	BuildTargetPath    string        `yaml:"build_target_path"`
	BuildPath          string        `yaml:"build_path"`
	BuildFlags         []string      `yaml:"build_flags"`
	BuildDelay         time.Duration `yaml:"build_delay"`
	BinaryName         string        `yaml:"binary_name"`
	CommandFlags       []string      `yaml:"command_flags"`
	CommandEnv         []string      `yaml:"command_env"`
	EnableColors       bool          `yaml:"enable_colors"`
	LiveReload         bool          `yaml:"livereload"`
	LiveReloadAddr     string        `yaml:"livereload_addr,omitempty"`
	ReadinessURL       string        `yaml:"readiness_url,omitempty"`
	NATSURL            string        `yaml:"nats_url,omitempty"`

	// Debug runs the binary under dlv and disables rebuilds on change.
	Debug bool `yaml:"-"`
	// Path is the file the configuration was loaded from.
	Path string `yaml:"-"`

	Stdin  io.Reader `yaml:"-"`
	Stdout io.Writer `yaml:"-"`
	Stderr io.Writer `yaml:"-"`
}

// DefaultConfig returns the configuration used without a config file and
// written by refresh init.
func DefaultConfig() *Config {
	return &Config{
		AppRoot:            ".",
		IgnoredFolders:     []string{"vendor", "log", "logs", "tmp", "node_modules", "bin", "templates"},
		IncludedExtensions: []string{".go"},
		BuildTargetPath:    "",
		BuildPath:          os.TempDir(),
		BuildFlags:         []string{},
		BuildDelay:         100 * time.Millisecond,
		BinaryName:         "refresh-build",
		CommandFlags:       []string{},
		CommandEnv:         []string{},
		EnableColors:       true,
		LiveReload:         true,
		LiveReloadAddr:     "127.0.0.1:0",
	}
}

// Load reads path on top of the current values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.Path = path
	return nil
}

// Dump writes the configuration as YAML.
func (c *Config) Dump(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FullBuildPath is where the binary is written.
func (c *Config) FullBuildPath() string {
	name := c.BinaryName
	if runtime.GOOS == "windows" && filepath.Ext(name) != ".exe" {
		name += ".exe"
	}
	return filepath.Join(c.BuildPath, name)
}

// LoadConfig returns the defaults overlaid with path, or with the first of
// ConfigFiles that exists when path is empty. When nothing is found the
// defaults are returned together with ErrConfigNotExist.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path != "" {
		if err := c.Load(path); err != nil {
			return nil, err
		}
		return c, nil
	}

	for _, f := range ConfigFiles {
		err := c.Load(f)
		if err != nil && errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	return c, ErrConfigNotExist
}
