// Package config loads tool settings from an optional YAML file layered
// over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"card-retouch/internal/fill"
	"card-retouch/internal/mask"
)

// Config is the full tool configuration.
type Config struct {
	LogLevel        string `yaml:"log_level"`
	HistoryCapacity int    `yaml:"history_capacity"`

	// Optional ONNX inpainting models. Missing files disable the
	// corresponding algorithms instead of failing startup.
	NeuralModelA string `yaml:"neural_model_a"`
	NeuralModelB string `yaml:"neural_model_b"`

	Fill  FillConfig  `yaml:"fill"`
	Mask  MaskConfig  `yaml:"mask"`
	Blend BlendConfig `yaml:"blend"`

	// AutoPasses is how many detect-and-fill rounds batch mode runs per
	// region.
	AutoPasses int `yaml:"auto_passes"`
}

// FillConfig mirrors fill.Params in YAML form.
type FillConfig struct {
	Algorithm    string `yaml:"algorithm"`
	Radius       int    `yaml:"radius"`
	PatchSize    int    `yaml:"patch_size"`
	SearchRadius int    `yaml:"search_radius"`
	Feather      int    `yaml:"feather"`
	Iterations   int    `yaml:"iterations"`
}

// MaskConfig mirrors mask.Params in YAML form.
type MaskConfig struct {
	Advanced  bool `yaml:"advanced"`
	Tolerance int  `yaml:"tolerance"`
	Border    int  `yaml:"border"`
}

// BlendConfig holds the color influence defaults.
type BlendConfig struct {
	Influence float64 `yaml:"influence"`
	Color     string  `yaml:"color"`
	Feather   int     `yaml:"feather"`
}

// Default returns the built-in configuration.
func Default() Config {
	fp := fill.DefaultParams()
	mp := mask.DefaultParams()
	return Config{
		LogLevel:        "info",
		HistoryCapacity: 5,
		Fill: FillConfig{
			Algorithm:    string(fp.Algorithm),
			Radius:       fp.Radius,
			PatchSize:    fp.PatchSize,
			SearchRadius: fp.SearchRadius,
			Feather:      fp.Feather,
			Iterations:   fp.Iterations,
		},
		Mask: MaskConfig{
			Advanced:  mp.Advanced,
			Tolerance: mp.Tolerance,
			Border:    mp.Border,
		},
		Blend:      BlendConfig{Influence: 0, Color: "#ffffff", Feather: 2},
		AutoPasses: 2,
	}
}

// Load reads path over the defaults. An empty path returns the defaults
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges by round-tripping through the parameter
// types that consume them.
func (c Config) Validate() error {
	if _, err := c.FillParams(); err != nil {
		return err
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("history_capacity %d must be at least 1", c.HistoryCapacity)
	}
	if c.Mask.Tolerance < 0 {
		return fmt.Errorf("mask tolerance %d must not be negative", c.Mask.Tolerance)
	}
	if c.Blend.Influence < 0 || c.Blend.Influence > 1 {
		return fmt.Errorf("blend influence %f outside 0..1", c.Blend.Influence)
	}
	return nil
}

// FillParams converts the fill section to engine parameters.
func (c Config) FillParams() (fill.Params, error) {
	alg, err := fill.ParseAlgorithm(c.Fill.Algorithm)
	if err != nil {
		return fill.Params{}, err
	}
	p := fill.Params{
		Algorithm:    alg,
		Radius:       c.Fill.Radius,
		PatchSize:    c.Fill.PatchSize,
		SearchRadius: c.Fill.SearchRadius,
		Feather:      c.Fill.Feather,
		Iterations:   c.Fill.Iterations,
	}
	if err := p.Validate(); err != nil {
		return fill.Params{}, err
	}
	return p, nil
}

// MaskParams converts the mask section to builder parameters.
func (c Config) MaskParams() mask.Params {
	return mask.Params{
		Advanced:  c.Mask.Advanced,
		Tolerance: c.Mask.Tolerance,
		Border:    c.Mask.Border,
	}
}
