// Package manifest handles rite.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/rite/loader"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "rite.toml"

// Config represents a rite.toml configuration.
type Config struct {
	Loader  LoaderConfig  `toml:"loader"`
	Log     LogConfig     `toml:"log"`
	Catalog CatalogConfig `toml:"catalog"`

	// Dir is the directory containing the rite.toml file (set at load time).
	Dir string `toml:"-"`
}

// LoaderConfig configures image parsing.
type LoaderConfig struct {
	MaxDepth         int   `toml:"max-depth"`
	Strings          bool  `toml:"strings"`
	Floats           bool  `toml:"floats"`
	VerifyRecordSize bool  `toml:"verify-record-size"`
	MemoryLimit      int64 `toml:"memory-limit"`
}

// LogConfig configures commonlog output.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// CatalogConfig locates the image catalog database.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no rite.toml exists.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			MaxDepth: loader.DefaultMaxDepth,
			Strings:  true,
			Floats:   true,
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(".rite", "catalog.db"),
		},
	}
}

// Load parses a rite.toml file from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the named file. Keys absent from the file keep their
// default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a rite.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	if c.Loader.MaxDepth < 1 {
		return fmt.Errorf("loader.max-depth must be at least 1, got %d", c.Loader.MaxDepth)
	}
	if c.Loader.MemoryLimit < 0 {
		return fmt.Errorf("loader.memory-limit must not be negative, got %d", c.Loader.MemoryLimit)
	}
	return nil
}

// LoaderOptions converts the [loader] table into parse options. A
// positive memory limit installs a fresh Budget, returned so callers can
// report its usage; it is nil otherwise.
func (c *Config) LoaderOptions() ([]loader.Option, *loader.Budget) {
	opts := []loader.Option{loader.WithMaxDepth(c.Loader.MaxDepth)}
	if !c.Loader.Strings {
		opts = append(opts, loader.WithoutStrings())
	}
	if !c.Loader.Floats {
		opts = append(opts, loader.WithoutFloats())
	}
	if c.Loader.VerifyRecordSize {
		opts = append(opts, loader.WithRecordSizeCheck())
	}
	var budget *loader.Budget
	if c.Loader.MemoryLimit > 0 {
		budget = loader.NewBudget(c.Loader.MemoryLimit)
		opts = append(opts, loader.WithAllocator(budget))
	}
	return opts, budget
}

// CatalogPath returns the catalog database path, resolved against Dir
// when relative.
func (c *Config) CatalogPath() string {
	if filepath.IsAbs(c.Catalog.Path) || c.Dir == "" {
		return c.Catalog.Path
	}
	return filepath.Join(c.Dir, c.Catalog.Path)
}

// LogFile returns the log file path or nil for stderr, in the form
// commonlog.Configure expects.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}
	return &path
}
