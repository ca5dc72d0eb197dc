package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Override errors.
var (
	ErrMalformedOverride = errors.New("override must be key=value")
	ErrUnknownKey        = errors.New("unknown config key")
	ErrInvalidValue      = errors.New("invalid config value")
)

type setter func(c *Config, value string) error

func intField(field func(*Config) *int) setter {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, value)
		}

		*field(c) = n

		return nil
	}
}

func boolField(field func(*Config) *bool) setter {
	return func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			// Integer flags from older configs.
			n, atoiErr := strconv.Atoi(value)
			if atoiErr != nil {
				return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
			}

			b = n != 0
		}

		*field(c) = b

		return nil
	}
}

func stringField(field func(*Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value

		return nil
	}
}

func setExecTimeout(c *Config, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		secs, atoiErr := strconv.Atoi(value)
		if atoiErr != nil {
			return fmt.Errorf("%w: %q is not a duration", ErrInvalidValue, value)
		}

		d = time.Duration(secs) * time.Second
	}

	c.ExecTimeout = d

	return nil
}

// setMergeAuthors takes "alias,canonical".
func setMergeAuthors(c *Config, value string) error {
	alias, canonical, ok := strings.Cut(value, ",")
	if !ok || alias == "" || canonical == "" {
		return fmt.Errorf("%w: merge_authors expects alias,canonical, got %q", ErrInvalidValue, value)
	}

	if c.MergeAuthors == nil {
		c.MergeAuthors = map[string]string{}
	}

	c.MergeAuthors[alias] = canonical

	return nil
}

var setters = map[string]setter{
	"max_domains":      intField(func(c *Config) *int { return &c.MaxDomains }),
	"max_ext_length":   intField(func(c *Config) *int { return &c.MaxExtLength }),
	"max_authors":      intField(func(c *Config) *int { return &c.MaxAuthors }),
	"authors_top":      intField(func(c *Config) *int { return &c.AuthorsTop }),
	"processes":        intField(func(c *Config) *int { return &c.Processes }),
	"linear_linestats": boolField(func(c *Config) *bool { return &c.LinearLinestats }),
	"all_branches":     boolField(func(c *Config) *bool { return &c.AllBranches }),
	"log_json":         boolField(func(c *Config) *bool { return &c.LogJSON }),
	"style":            stringField(func(c *Config) *string { return &c.Style }),
	"commit_begin":     stringField(func(c *Config) *string { return &c.CommitBegin }),
	"commit_end":       stringField(func(c *Config) *string { return &c.CommitEnd }),
	"time_begin":       stringField(func(c *Config) *string { return &c.TimeBegin }),
	"time_end":         stringField(func(c *Config) *string { return &c.TimeEnd }),
	"project_name":     stringField(func(c *Config) *string { return &c.ProjectName }),
	"people_file":      stringField(func(c *Config) *string { return &c.PeopleFile }),
	"output":           stringField(func(c *Config) *string { return &c.Output }),
	"output_suffix":    stringField(func(c *Config) *string { return &c.OutputSuffix }),
	"cache_path":       stringField(func(c *Config) *string { return &c.CachePath }),
	"timezone":         stringField(func(c *Config) *string { return &c.Timezone }),
	"log_level":        stringField(func(c *Config) *string { return &c.LogLevel }),
	"otlp_endpoint":    stringField(func(c *Config) *string { return &c.OTLPEndpoint }),
	"exec_timeout":     setExecTimeout,
	"merge_authors":    setMergeAuthors,
}

// OverrideKeys lists the keys ApplyOverride accepts.
func OverrideKeys() []string {
	return slices.Sorted(maps.Keys(setters))
}

// ApplyOverride parses one "key=value" override and applies it, converting
// the value to the type of the key. The config is left unchanged on error.
func (c *Config) ApplyOverride(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok || key == "" {
		return fmt.Errorf("%w: %q", ErrMalformedOverride, kv)
	}

	set, known := setters[key]
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	return set(c, value)
}

// ApplyOverrides applies overrides in order and validates the result.
func (c *Config) ApplyOverrides(kvs []string) error {
	for _, kv := range kvs {
		err := c.ApplyOverride(kv)
		if err != nil {
			return err
		}
	}

	return c.Validate()
}
