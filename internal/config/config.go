// Package config reads the optional hotrack configuration file.
//
// The file is JSON with comments and trailing commas allowed:
//
//	{
//	    // algorithm used by suggest
//	    "alg": "tpe",
//	    "protocol": "yaml",
//	    "jobs": 4,
//	}
//
// Values act as defaults for the command line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// ErrInvalidConfig indicates a configuration file with invalid values.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config contains the settings of the hotrack command.
type Config struct {
	// Alg is the algorithm used by suggest.
	Alg string `json:"alg,omitempty"`

	// Dir is the directory of the data files.
	Dir string `json:"dir,omitempty"`

	// Tag is appended to the base name of the data files.
	Tag string `json:"tag,omitempty"`

	// Protocol is the data file encoding, json or yaml.
	Protocol string `json:"protocol,omitempty"`

	// Trials is the default number of trials of run.
	Trials int `json:"trials,omitempty"`

	// Jobs is the default number of concurrent trials of run.
	Jobs int `json:"jobs,omitempty"`

	// Verbose enables debug logging.
	Verbose bool `json:"verbose,omitempty"`
}

// Unmarshal parses HuJSON content into v.
func Unmarshal(data []byte, v any) error {
	value, err := hujson.Parse(data)
	if err != nil {
		return err
	}
	value.Standardize()
	return json.Unmarshal(value.Pack(), v)
}

// Parse decodes and validates configuration content.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the configuration file at path. An empty path yields the
// zero configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	if c.Trials < 0 {
		return fmt.Errorf("%w: trials=%d", ErrInvalidConfig, c.Trials)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("%w: jobs=%d", ErrInvalidConfig, c.Jobs)
	}
	switch c.Protocol {
	case "", "json", "yaml", "yml":
	default:
		return fmt.Errorf("%w: protocol=%q", ErrInvalidConfig, c.Protocol)
	}
	return nil
}
