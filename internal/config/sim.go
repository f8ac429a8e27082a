package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical simulation defaults file.
const DefaultConfigPath = "config/sim.defaults.json"

// SimConfig is the per-run configuration. Every field is optional; the Get*
// methods supply defaults so partial files are safe.
type SimConfig struct {
	Target          *string `json:"target,omitempty" yaml:"target,omitempty"`
	Home            *int    `json:"home,omitempty" yaml:"home,omitempty"`
	Seed            *int64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	MaxActions      *int    `json:"max_actions,omitempty" yaml:"max_actions,omitempty"`
	Pace            *string `json:"pace,omitempty" yaml:"pace,omitempty"` // duration string like "30ms"
	RockCount       *int    `json:"rock_count,omitempty" yaml:"rock_count,omitempty"`
	GuaranteeTarget *bool   `json:"guarantee_target,omitempty" yaml:"guarantee_target,omitempty"`

	Layout *Layout `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrInt64(v int64) *int64    { return &v }

// EmptySimConfig returns a SimConfig with all fields nil.
func EmptySimConfig() *SimConfig {
	return &SimConfig{}
}

// DefaultSimConfig returns a SimConfig with every field populated from the
// built-in defaults.
func DefaultSimConfig() *SimConfig {
	return &SimConfig{
		Target:          ptrString("1222"),
		Home:            ptrInt(0),
		Seed:            ptrInt64(1),
		MaxActions:      ptrInt(20000),
		Pace:            ptrString("0s"),
		RockCount:       ptrInt(0),
		GuaranteeTarget: ptrBool(true),
		Layout:          DefaultLayout(),
	}
}

// LoadSimConfig loads a SimConfig from a .json, .yaml or .yml file.
func LoadSimConfig(path string) (*SimConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySimConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded, intended for
// test setup.
func MustLoadDefaultConfig() *SimConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/shelfbot/
	}
	for _, path := range candidates {
		if cfg, err := LoadSimConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *SimConfig) Validate() error {
	if c.Target != nil {
		if _, err := ParseBarcode(*c.Target); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	if c.Layout != nil {
		if err := c.Layout.Validate(); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}
	if c.Home != nil {
		if *c.Home < 0 || *c.Home >= len(c.GetLayout().Homes) {
			return fmt.Errorf("home must be between 0 and %d, got %d", len(c.GetLayout().Homes)-1, *c.Home)
		}
	}
	if c.MaxActions != nil && *c.MaxActions <= 0 {
		return fmt.Errorf("max_actions must be positive, got %d", *c.MaxActions)
	}
	if c.Pace != nil && *c.Pace != "" {
		if _, err := time.ParseDuration(*c.Pace); err != nil {
			return fmt.Errorf("invalid pace '%s': %w", *c.Pace, err)
		}
	}
	if c.RockCount != nil && *c.RockCount < 0 {
		return fmt.Errorf("rock_count must be non-negative, got %d", *c.RockCount)
	}
	return nil
}

// GetTarget returns the parsed target barcode or the default (1,2,2,2).
func (c *SimConfig) GetTarget() Barcode {
	if c.Target == nil {
		return Barcode{1, 2, 2, 2}
	}
	b, err := ParseBarcode(*c.Target)
	if err != nil {
		return Barcode{1, 2, 2, 2}
	}
	return b
}

// GetHome returns the home index or the default.
func (c *SimConfig) GetHome() int {
	if c.Home == nil {
		return 0
	}
	return *c.Home
}

// GetSeed returns the placement seed or the default.
func (c *SimConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetMaxActions returns the action budget or the default.
func (c *SimConfig) GetMaxActions() int {
	if c.MaxActions == nil {
		return 20000
	}
	return *c.MaxActions
}

// GetPace parses and returns the observer pause as a time.Duration.
func (c *SimConfig) GetPace() time.Duration {
	if c.Pace == nil || *c.Pace == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Pace)
	if err != nil {
		return 0
	}
	return d
}

// GetRockCount returns the number of hallway rocks or the default.
func (c *SimConfig) GetRockCount() int {
	if c.RockCount == nil {
		return 0
	}
	return *c.RockCount
}

// GetGuaranteeTarget returns whether placement must include the target box.
func (c *SimConfig) GetGuaranteeTarget() bool {
	if c.GuaranteeTarget == nil {
		return true
	}
	return *c.GuaranteeTarget
}

// GetLayout returns the configured layout or DefaultLayout.
func (c *SimConfig) GetLayout() *Layout {
	if c.Layout == nil {
		return DefaultLayout()
	}
	return c.Layout
}
