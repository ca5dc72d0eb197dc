// Package config provides configuration loading, overrides and validation
// for gitstats.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidProcesses = errors.New("processes must be positive")
	ErrNegativeLimit    = errors.New("limit must not be negative")
	ErrInvalidTimeout   = errors.New("exec timeout must not be negative")
	ErrInvalidTimezone  = errors.New("unknown timezone")
	ErrInvalidLogLevel  = errors.New("unknown log level")
)

// Default configuration values.
const (
	DefaultMaxDomains      = 10
	DefaultMaxExtLength    = 10
	DefaultStyle           = "gitstats.css"
	DefaultMaxAuthors      = 20
	DefaultAuthorsTop      = 5
	DefaultCommitEnd       = "HEAD"
	DefaultLinearLinestats = true
	DefaultOutput          = "gitstats-report"
	DefaultProcesses       = 8
	DefaultExecTimeout     = 5 * time.Minute
	DefaultTimezone        = "Local"
	DefaultLogLevel        = "info"

	// CacheFileName is the cache file inside the output directory.
	CacheFileName = "gitstats.cache"
)

const (
	configName = ".gitstats"
	configType = "yaml"
	envPrefix  = "GITSTATS"
	allPeriod  = "all"
)

// Config holds all configuration of a gitstats run.
type Config struct {
	MaxDomains      int    `mapstructure:"max_domains"`
	MaxExtLength    int    `mapstructure:"max_ext_length"`
	Style           string `mapstructure:"style"`
	MaxAuthors      int    `mapstructure:"max_authors"`
	AuthorsTop      int    `mapstructure:"authors_top"`
	CommitBegin     string `mapstructure:"commit_begin"`
	CommitEnd       string `mapstructure:"commit_end"`
	TimeBegin       string `mapstructure:"time_begin"`
	TimeEnd         string `mapstructure:"time_end"`
	LinearLinestats bool   `mapstructure:"linear_linestats"`
	// AllBranches adds one report per local and origin branch.
	AllBranches bool   `mapstructure:"all_branches"`
	ProjectName string `mapstructure:"project_name"`
	// MergeAuthors maps raw author names to canonical names. Viper folds
	// map keys to lower case, so it is read from the file separately.
	MergeAuthors map[string]string `mapstructure:"-"`
	PeopleFile   string            `mapstructure:"people_file"`
	Output       string            `mapstructure:"output"`
	OutputSuffix string            `mapstructure:"output_suffix"`
	Processes    int               `mapstructure:"processes"`
	CachePath    string            `mapstructure:"cache_path"`
	ExecTimeout  time.Duration     `mapstructure:"exec_timeout"`
	Timezone     string            `mapstructure:"timezone"`
	LogLevel     string            `mapstructure:"log_level"`
	LogJSON      bool              `mapstructure:"log_json"`
	OTLPEndpoint string            `mapstructure:"otlp_endpoint"`
}

// LoadConfig loads configuration from defaults, the config file and
// GITSTATS_* environment variables. If configPath is empty, .gitstats.yaml
// is searched in the working directory and $HOME; a missing file is not an
// error. The file is validated against the embedded schema first.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	merge := map[string]string{}

	if used := viperCfg.ConfigFileUsed(); used != "" && readErr == nil {
		raw, err := readRaw(used)
		if err != nil {
			return nil, err
		}

		err = validateSchema(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", used, err)
		}

		merge = raw.mergeAuthors()
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	cfg.MergeAuthors = merge

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	var cfg Config

	// Defaults always decode.
	_ = viperCfg.Unmarshal(&cfg) //nolint:errcheck // static input.

	cfg.MergeAuthors = map[string]string{}

	return &cfg
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("max_domains", DefaultMaxDomains)
	viperCfg.SetDefault("max_ext_length", DefaultMaxExtLength)
	viperCfg.SetDefault("style", DefaultStyle)
	viperCfg.SetDefault("max_authors", DefaultMaxAuthors)
	viperCfg.SetDefault("authors_top", DefaultAuthorsTop)
	viperCfg.SetDefault("commit_begin", "")
	viperCfg.SetDefault("commit_end", DefaultCommitEnd)
	viperCfg.SetDefault("time_begin", "")
	viperCfg.SetDefault("time_end", "")
	viperCfg.SetDefault("linear_linestats", DefaultLinearLinestats)
	viperCfg.SetDefault("all_branches", false)
	viperCfg.SetDefault("project_name", "")
	viperCfg.SetDefault("people_file", "")
	viperCfg.SetDefault("output", DefaultOutput)
	viperCfg.SetDefault("output_suffix", "")
	viperCfg.SetDefault("processes", DefaultProcesses)
	viperCfg.SetDefault("cache_path", "")
	viperCfg.SetDefault("exec_timeout", DefaultExecTimeout.String())
	viperCfg.SetDefault("timezone", DefaultTimezone)
	viperCfg.SetDefault("log_level", DefaultLogLevel)
	viperCfg.SetDefault("log_json", false)
	viperCfg.SetDefault("otlp_endpoint", "")
}

// Validate checks ranges and parses the zone and log level.
func (c *Config) Validate() error {
	if c.Processes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidProcesses, c.Processes)
	}

	limits := map[string]int{
		"max_domains":    c.MaxDomains,
		"max_ext_length": c.MaxExtLength,
		"max_authors":    c.MaxAuthors,
		"authors_top":    c.AuthorsTop,
	}

	for key, v := range limits {
		if v < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativeLimit, key, v)
		}
	}

	if c.ExecTimeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.ExecTimeout)
	}

	_, err := c.Location()
	if err != nil {
		return err
	}

	_, err = c.SlogLevel()

	return err
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, DefaultTimezone) {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone)
	}

	return loc, nil
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	return level, nil
}

// CacheFile returns the cache location for a run writing to outputPath.
func (c *Config) CacheFile(outputPath string) string {
	if c.CachePath != "" {
		return c.CachePath
	}

	return filepath.Join(outputPath, CacheFileName)
}

// ReportDir returns <outputPath>/<project>/<suffix>/all, or
// .../<time_begin> to <time_end> when a time window is set. A missing end
// defaults to today.
func (c *Config) ReportDir(outputPath, project string, now time.Time) string {
	period := allPeriod

	if c.TimeBegin != "" {
		end := c.TimeEnd
		if end == "" {
			end = now.Format(time.DateOnly)
		}

		period = c.TimeBegin + " to " + end
	}

	return filepath.Join(outputPath, project, c.OutputSuffix, period)
}
