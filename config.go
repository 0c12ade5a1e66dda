package sortnet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

var ErrInvalidConfig = errors.New("invalid config")

// ToolConfig holds the settings shared by every sortnet tool.
type ToolConfig struct {
	Persistence *PersistenceConfig `toml:"persistence" yaml:"persistence"`
	Seed        int64              `toml:"seed" yaml:"seed"`
	LogLevel    string             `toml:"log_level" yaml:"log_level"`
	MetricsAddr string             `toml:"metrics_addr" yaml:"metrics_addr"`
}

type PopulationConfig struct {
	Width          uint `toml:"width" yaml:"width"`
	MaxComparators uint `toml:"max_comparators" yaml:"max_comparators"`
	Generations    uint `toml:"generations" yaml:"generations"`
	PopulationSize uint `toml:"population_size" yaml:"population_size"`
	// PreferSmaller breaks fitness ties in favour of shorter networks.
	PreferSmaller   bool             `toml:"prefer_smaller" yaml:"prefer_smaller"`
	EvaluatorConfig *EvaluatorConfig `toml:"eval" yaml:"eval"`
	ParasiteConfig  *ParasiteConfig  `toml:"parasites" yaml:"parasites"`
}

type EvaluatorConfig struct {
	SampleCount        uint `toml:"sample_count" yaml:"sample_count"`
	ValueRange         uint `toml:"value_range" yaml:"value_range"`
	MaxExhaustiveWidth uint `toml:"max_exhaustive_width" yaml:"max_exhaustive_width"`
	VerifySamples      uint `toml:"verify_samples" yaml:"verify_samples"`
	Workers            int  `toml:"workers" yaml:"workers"`
}

type ParasiteConfig struct {
	// Force evolves a parasite population even when the exhaustive 0/1 set
	// is small enough to use directly.
	Force             bool    `toml:"force" yaml:"force"`
	PopulationSize    uint    `toml:"population_size" yaml:"population_size"`
	MutationChance    float64 `toml:"mutation_chance" yaml:"mutation_chance"`
	ImmigrantFraction float64 `toml:"immigrant_fraction" yaml:"immigrant_fraction"`
	// Binary restricts parasites to 0/1 vectors, which suffice by the
	// zero-one principle. Otherwise they are permutations of ValueRange.
	Binary     bool `toml:"binary" yaml:"binary"`
	ValueRange uint `toml:"value_range" yaml:"value_range"`
}

// DefaultPopulationConfig matches the single population reference run:
// 16 lines, 65 comparators, 200 generations of 50 networks.
func DefaultPopulationConfig() *PopulationConfig {
	c := &PopulationConfig{
		Width:          16,
		MaxComparators: 65,
		Generations:    200,
		PopulationSize: 50,
	}
	c.ApplyDefaults()
	return c
}

// DefaultCoevolutionConfig matches the parasite reference run: 16 lines,
// 61 comparators, 100 generations of 512 networks.
func DefaultCoevolutionConfig() *PopulationConfig {
	c := &PopulationConfig{
		Width:          16,
		MaxComparators: 61,
		Generations:    100,
		PopulationSize: 512,
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in missing sub-configs and zero values.
func (c *PopulationConfig) ApplyDefaults() {
	if c.EvaluatorConfig == nil {
		c.EvaluatorConfig = &EvaluatorConfig{}
	}
	ec := c.EvaluatorConfig
	if ec.SampleCount == 0 {
		ec.SampleCount = DefaultSampleCount
	}
	if ec.ValueRange == 0 {
		ec.ValueRange = DefaultValueRange
	}
	if ec.MaxExhaustiveWidth == 0 {
		ec.MaxExhaustiveWidth = DefaultMaxExhaustiveWidth
	}
	if ec.VerifySamples == 0 {
		ec.VerifySamples = DefaultVerifySamples
	}
	if ec.Workers == 0 {
		ec.Workers = 1
	}

	if c.ParasiteConfig == nil {
		c.ParasiteConfig = &ParasiteConfig{Binary: true}
	}
	pc := c.ParasiteConfig
	if pc.PopulationSize == 0 {
		pc.PopulationSize = DefaultParasiteCount
	}
	if pc.MutationChance == 0 {
		pc.MutationChance = DefaultParasiteMutation
	}
	if pc.ImmigrantFraction == 0 {
		pc.ImmigrantFraction = DefaultImmigrantFraction
	}
	if pc.ValueRange == 0 {
		pc.ValueRange = ec.ValueRange
	}
}

func (c *PopulationConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: population config cannot be nil", ErrInvalidConfig)
	}
	if c.PopulationSize < 2 {
		return fmt.Errorf("%w: population_size must be at least 2, got %d", ErrInvalidConfig, c.PopulationSize)
	}
	if c.Generations == 0 {
		return fmt.Errorf("%w: generations must be positive", ErrInvalidConfig)
	}
	if c.EvaluatorConfig == nil || c.ParasiteConfig == nil {
		return fmt.Errorf("%w: eval and parasites sections must be set (call ApplyDefaults)", ErrInvalidConfig)
	}
	if c.EvaluatorConfig.ValueRange < c.Width {
		return fmt.Errorf("%w: eval.value_range %d cannot supply %d distinct values",
			ErrInvalidConfig, c.EvaluatorConfig.ValueRange, c.Width)
	}
	if c.EvaluatorConfig.MaxExhaustiveWidth > MaxExhaustiveWidthCeiling {
		return fmt.Errorf("%w: eval.max_exhaustive_width %d is above the ceiling of %d",
			ErrInvalidConfig, c.EvaluatorConfig.MaxExhaustiveWidth, MaxExhaustiveWidthCeiling)
	}
	if c.EvaluatorConfig.SampleCount == 0 {
		return fmt.Errorf("%w: eval.sample_count must be positive", ErrInvalidConfig)
	}
	pc := c.ParasiteConfig
	if pc.PopulationSize < 2 {
		return fmt.Errorf("%w: parasites.population_size must be at least 2", ErrInvalidConfig)
	}
	if pc.MutationChance < 0 || pc.MutationChance > 1 {
		return fmt.Errorf("%w: parasites.mutation_chance must be within [0, 1]", ErrInvalidConfig)
	}
	if pc.ImmigrantFraction < 0 || pc.ImmigrantFraction >= 1 {
		return fmt.Errorf("%w: parasites.immigrant_fraction must be within [0, 1)", ErrInvalidConfig)
	}
	if !pc.Binary && pc.ValueRange < c.Width {
		return fmt.Errorf("%w: parasites.value_range %d cannot supply %d distinct values",
			ErrInvalidConfig, pc.ValueRange, c.Width)
	}
	return nil
}

func LoadToolConfig(path string) (*ToolConfig, error) {
	var config ToolConfig
	if err := decodeConfigFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to load tool config: %w", err)
	}
	return &config, nil
}

// LoadPopulationConfig reads a population config and fills in defaults.
func LoadPopulationConfig(path string) (*PopulationConfig, error) {
	var config PopulationConfig
	if err := decodeConfigFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to load population config: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
}

// YAML is picked by extension, everything else is read as TOML.
func decodeConfigFile(path string, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.UnmarshalStrict(data, v)
	default:
		_, err := toml.DecodeFile(path, v)
		return err
	}
}
