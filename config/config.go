// Package config loads the optional YAML configuration file of the
// command line tool and converts it into the options of each package.
package config

import (
	"os"
	"runtime"
	"time"

	"github.com/farmout/ulog/archive"
	"github.com/farmout/ulog/parser"
	"github.com/farmout/ulog/reporting"
	"github.com/farmout/ulog/stats"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Parser holds parser settings.
type Parser struct {
	XMLAttributeFields bool `yaml:"xml_attribute_fields"`
}

// Report holds report settings.
type Report struct {
	TopMachines int  `yaml:"top_machines"`
	SampleSize  int  `yaml:"sample_size"`
	ExitCodes   bool `yaml:"exit_codes"`
}

// Archive holds the MongoDB archive settings. The archive is disabled
// when URI is empty.
type Archive struct {
	URI            string `yaml:"uri"`
	DB             string `yaml:"db"`
	Collection     string `yaml:"collection"`
	ConnectTimeout string `yaml:"connect_timeout"`
}

// Config is the contents of the configuration file.
type Config struct {
	Workers  int     `yaml:"workers"`
	Timezone string  `yaml:"timezone"`
	LogLevel string  `yaml:"log_level"`
	Parser   Parser  `yaml:"parser"`
	Report   Report  `yaml:"report"`
	Archive  Archive `yaml:"archive"`

	location *time.Location
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	conf := &Config{}
	conf.Report.ExitCodes = true
	applyDefaults(conf)
	return conf
}

func applyDefaults(conf *Config) {
	if conf.Workers <= 0 {
		conf.Workers = runtime.NumCPU()
	}
	if conf.Timezone == "" {
		conf.Timezone = "Local"
	}
	if conf.LogLevel == "" {
		conf.LogLevel = "info"
	}

	report := reporting.DefaultOptions()
	if conf.Report.TopMachines == 0 {
		conf.Report.TopMachines = report.TopMachines
	}
	if conf.Report.SampleSize == 0 {
		conf.Report.SampleSize = report.SampleSize
	}

	if conf.Archive.URI != "" {
		archiveDefaults := archive.DefaultOptions()
		if conf.Archive.DB == "" {
			conf.Archive.DB = archiveDefaults.DB
		}
		if conf.Archive.Collection == "" {
			conf.Archive.Collection = archiveDefaults.Collection
		}
		if conf.Archive.ConnectTimeout == "" {
			conf.Archive.ConnectTimeout = archiveDefaults.ConnectTimeout.String()
		}
	}
}

// Parse reads a YAML document, applies defaults and validates the
// result. Keys that are absent keep their defaults; report.exit_codes
// defaults to true.
func Parse(data []byte) (*Config, error) {
	conf := &Config{Report: Report{ExitCodes: true}}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrap(err, "parsing configuration")
	}

	applyDefaults(conf)
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return conf, nil
}

// Load reads the configuration file at path. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		conf := Default()
		return conf, errors.Wrap(conf.Validate(), "invalid default configuration")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration file '%s'", path)
	}

	conf, err := Parse(data)
	return conf, errors.Wrapf(err, "loading '%s'", path)
}

// Validate checks the settings and resolves the time zone.
func (c *Config) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(c.Workers < 1, "workers must be positive")
	catcher.NewWhen(c.Report.TopMachines < 0, "report.top_machines cannot be negative")
	catcher.NewWhen(c.Report.SampleSize < 0, "report.sample_size cannot be negative")
	catcher.ErrorfWhen(!level.FromString(c.LogLevel).IsValid(), "invalid log level '%s'", c.LogLevel)

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		catcher.Wrapf(err, "invalid timezone '%s'", c.Timezone)
	} else {
		c.location = loc
	}

	if c.Archive.ConnectTimeout != "" {
		_, err := time.ParseDuration(c.Archive.ConnectTimeout)
		catcher.Wrapf(err, "invalid archive.connect_timeout '%s'", c.Archive.ConnectTimeout)
	}

	return catcher.Resolve()
}

// Level is the configured logging threshold.
func (c *Config) Level() level.Priority {
	return level.FromString(c.LogLevel)
}

// Location is the time zone for legacy timestamps.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			c.location = loc
		} else {
			c.location = time.Local
		}
	}
	return c.location
}

// ParserOptions converts the configuration for the parser package.
func (c *Config) ParserOptions() parser.Options {
	opts := parser.DefaultOptions()
	opts.Location = c.Location()
	opts.XMLAttributeFields = c.Parser.XMLAttributeFields
	return opts
}

// StatsOptions converts the configuration for the stats package.
func (c *Config) StatsOptions() stats.Options {
	return stats.Options{SampleSize: c.Report.SampleSize}
}

// ReportOptions converts the configuration for the reporting package.
func (c *Config) ReportOptions() reporting.Options {
	return reporting.Options{
		TopMachines: c.Report.TopMachines,
		SampleSize:  c.Report.SampleSize,
		ExitCodes:   c.Report.ExitCodes,
	}
}

// ArchiveEnabled reports whether an archive URI is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.URI != ""
}

// ArchiveOptions converts the configuration for the archive package.
func (c *Config) ArchiveOptions() archive.Options {
	opts := archive.DefaultOptions()
	if c.Archive.URI != "" {
		opts.URI = c.Archive.URI
	}
	if c.Archive.DB != "" {
		opts.DB = c.Archive.DB
	}
	if c.Archive.Collection != "" {
		opts.Collection = c.Archive.Collection
	}
	if d, err := time.ParseDuration(c.Archive.ConnectTimeout); err == nil && d > 0 {
		opts.ConnectTimeout = d
	}
	return opts
}
