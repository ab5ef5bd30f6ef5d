// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ingredients"
	"github.com/iwvelando/feedmix/pkg/constants"
	"github.com/iwvelando/feedmix/pkg/validation"
)

// Configuration holds all configuration for feedmix.
type Configuration struct {
	Catalog     string                   `yaml:"catalog,omitempty"`
	Ingredients []formulation.Ingredient `yaml:"ingredients,omitempty"`
	Solver      SolverConfig             `yaml:"solver,omitempty"`
	Rations     []Ration                 `yaml:"rations"`
	Logging     LoggingConfig            `yaml:"logging,omitempty"`
	Output      OutputConfig             `yaml:"output,omitempty"`

	// baseDir anchors a relative catalog path to the config file location.
	baseDir string
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, txt
}

// SolverConfig selects the LP backend.
type SolverConfig struct {
	Method string `yaml:"method,omitempty"`
}

// Ration is one named formulation run.
type Ration struct {
	Name        string
	Active      bool
	Ingredients []string
	Targets     formulation.NutrientTargets
	Bounds      BoundsConfig
}

// BoundsConfig selects a bounds preset, optionally overriding its fields.
// Leaving everything empty selects the floor preset.
type BoundsConfig struct {
	Preset string   `yaml:"preset,omitempty" json:"preset,omitempty"`
	Mode   string   `yaml:"mode,omitempty" json:"mode,omitempty"`
	Min    *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// DefaultBoundsPreset is used when a ration leaves its bounds empty.
const DefaultBoundsPreset = formulation.PresetFloor

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	configuration, err := decode(v)
	if err != nil {
		return nil, err
	}
	configuration.baseDir = filepath.Dir(configPath)

	return configuration, nil
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
// A relative catalog path is resolved against the working directory.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	for i := range configuration.Rations {
		configuration.Rations[i].Targets = TargetsWithDefaults(configuration.Rations[i].Targets)
	}
	return &configuration, nil
}

// TargetsWithDefaults fills omitted targets. An entirely empty block takes
// the interactive defaults; a missing total weight alone falls back to 1 kg.
func TargetsWithDefaults(t formulation.NutrientTargets) formulation.NutrientTargets {
	if t == (formulation.NutrientTargets{}) {
		return formulation.DefaultTargets()
	}
	if t.TotalWeightKg == 0 {
		t.TotalWeightKg = constants.DefaultTotalWeightKg
	}
	return t
}

// CatalogPath returns the catalog path resolved against the config file
// directory, or "" when no catalog is configured.
func (c *Configuration) CatalogPath() string {
	if c.Catalog == "" {
		return ""
	}
	if filepath.IsAbs(c.Catalog) || c.baseDir == "" {
		return c.Catalog
	}
	return filepath.Join(c.baseDir, c.Catalog)
}

// LoadCatalog reads the configured CSV catalog, if any, and adds the inline
// ingredients. Inline entries replace catalog entries of the same name.
func (c *Configuration) LoadCatalog(logger *zap.Logger) (*ingredients.Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var catalog *ingredients.Catalog
	var err error
	if path := c.CatalogPath(); path != "" {
		catalog, err = ingredients.LoadCatalog(path)
	} else {
		catalog, err = ingredients.NewCatalog()
	}
	if err != nil {
		return nil, err
	}

	for _, ing := range c.Ingredients {
		if _, exists := catalog.Lookup(ing.Name); exists {
			logger.Warn("inline ingredient replaces catalog entry",
				zap.String("op", "config.LoadCatalog"),
				zap.String("ingredient", ing.Name),
			)
		}
		if err := catalog.Add(ing); err != nil {
			return nil, fmt.Errorf("inline ingredient %q: %w", ing.Name, err)
		}
	}

	return catalog, nil
}

// ActiveRations returns the active rations in configuration order.
func (c *Configuration) ActiveRations() []Ration {
	var active []Ration
	for _, ration := range c.Rations {
		if ration.Active {
			active = append(active, ration)
		}
	}
	return active
}

// FindRation returns the ration with the given name.
func (c *Configuration) FindRation(name string) (Ration, bool) {
	for _, ration := range c.Rations {
		if strings.EqualFold(ration.Name, name) {
			return ration, true
		}
	}
	return Ration{}, false
}

// Policy resolves the bounds configuration into a validated policy.
func (b BoundsConfig) Policy() (formulation.BoundsPolicy, error) {
	preset := b.Preset
	if preset == "" && b.Mode == "" {
		preset = DefaultBoundsPreset
	}

	var policy formulation.BoundsPolicy
	if preset != "" {
		p, err := formulation.PolicyByName(preset)
		if err != nil {
			return formulation.BoundsPolicy{}, err
		}
		policy = p
	} else {
		policy = formulation.Unbounded()
	}

	if b.Mode != "" {
		policy.Mode = formulation.BoundsMode(strings.ToLower(strings.TrimSpace(b.Mode)))
	}
	if b.Min != nil {
		policy.Min = *b.Min
	}
	if b.Max != nil {
		policy.Max = *b.Max
	}

	if err := policy.Validate(); err != nil {
		return formulation.BoundsPolicy{}, err
	}
	return policy, nil
}

// Request resolves the ration against a catalog.
func (r Ration) Request(catalog *ingredients.Catalog) (formulation.Request, error) {
	if catalog == nil {
		return formulation.Request{}, fmt.Errorf("ration %q: no ingredient catalog", r.Name)
	}
	selected, err := catalog.Select(r.Ingredients)
	if err != nil {
		return formulation.Request{}, fmt.Errorf("ration %q: %w", r.Name, err)
	}
	policy, err := r.Bounds.Policy()
	if err != nil {
		return formulation.Request{}, fmt.Errorf("ration %q: %w", r.Name, err)
	}
	return formulation.Request{
		Ingredients: selected,
		Targets:     r.Targets,
		Bounds:      policy,
	}, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	validator := validation.ConfigValidator{OutputFormat: c.Output.Format}
	for _, ration := range c.Rations {
		validator.Rations = append(validator.Rations, validation.RationConfig{
			Name:        ration.Name,
			Active:      ration.Active,
			Ingredients: ration.Ingredients,
		})
	}
	warnings := validator.ValidateAll()

	for _, ration := range c.Rations {
		if !ration.Active {
			continue
		}
		if _, err := ration.Bounds.Policy(); err != nil {
			warnings = append(warnings, fmt.Sprintf("Ration '%s' has unusable bounds: %v", ration.Name, err))
		}
		if err := ration.Targets.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("Ration '%s' has unusable targets: %v", ration.Name, err))
		}
	}

	if c.Catalog == "" && len(c.Ingredients) == 0 {
		warnings = append(warnings, "No catalog or inline ingredients configured")
	}

	return warnings
}
