// Package config loads the settings of the blendsql command.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config lists the tables to query and how to run queries.
//
//	tables:
//	  cars: data/cars.json
//	  events: data/events.jsonl
//	parallelism: 4
//	verbose: true
type Config struct {
	// Table name to file path. Files ending in .jsonl or .ndjson are read
	// as a stream of objects, others as a JSON array. "-" is stdin.
	Tables map[string]string `yaml:"tables"`
	// How many WHERE predicates may be evaluated at the same time.
	Parallelism int `yaml:"parallelism"`
	// Log query execution details.
	Verbose bool `yaml:"verbose"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Tables:      map[string]string{},
		Parallelism: 1,
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if c.Tables == nil {
		c.Tables = map[string]string{}
	}
	return c, nil
}

// AddTable parses a "name=path" pair and adds it to the table list,
// replacing a table of the same name.
func (c *Config) AddTable(arg string) error {
	name, path, ok := strings.Cut(arg, "=")
	if !ok || name == "" || path == "" {
		return errors.Errorf("invalid table %q, expected name=path", arg)
	}
	c.Tables[name] = path
	return nil
}

// Validate checks that the settings can be used to run a query.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return errors.New("no tables configured")
	}
	stdin := 0
	for name, path := range c.Tables {
		if path == "-" {
			stdin++
		}
		if strings.TrimSpace(name) == "" {
			return errors.New("table with an empty name")
		}
	}
	if stdin > 1 {
		return errors.New("only one table can be read from stdin")
	}
	if c.Parallelism < 1 {
		return errors.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	return nil
}

// IsStream tells whether the file at path holds one JSON object per line.
func IsStream(path string) bool {
	return path == "-" || strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".ndjson")
}
