package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlematchboy/gitstats/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), ".gitstats.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	return cfgPath
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMaxDomains, cfg.MaxDomains)
	assert.Equal(t, config.DefaultMaxExtLength, cfg.MaxExtLength)
	assert.Equal(t, config.DefaultStyle, cfg.Style)
	assert.Equal(t, config.DefaultMaxAuthors, cfg.MaxAuthors)
	assert.Equal(t, config.DefaultAuthorsTop, cfg.AuthorsTop)
	assert.Equal(t, config.DefaultCommitEnd, cfg.CommitEnd)
	assert.Empty(t, cfg.CommitBegin)
	assert.True(t, cfg.LinearLinestats)
	assert.Equal(t, config.DefaultOutput, cfg.Output)
	assert.Equal(t, config.DefaultProcesses, cfg.Processes)
	assert.Equal(t, config.DefaultExecTimeout, cfg.ExecTimeout)
	assert.Equal(t, config.DefaultTimezone, cfg.Timezone)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.NotNil(t, cfg.MergeAuthors)
	assert.Empty(t, cfg.MergeAuthors)
}

func TestDefault_MatchesEmptyFile(t *testing.T) {
	t.Parallel()

	loaded, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, loaded, config.Default())
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	content := `max_domains: 3
max_ext_length: 6
max_authors: 7
authors_top: 2
commit_begin: v1.0
commit_end: main
time_begin: "2024-01-01"
linear_linestats: false
all_branches: true
project_name: Demo
output: /tmp/reports
output_suffix: nightly
processes: 2
exec_timeout: 30s
timezone: UTC
log_level: debug
log_json: true
`

	cfg, err := config.LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxDomains)
	assert.Equal(t, 6, cfg.MaxExtLength)
	assert.Equal(t, 7, cfg.MaxAuthors)
	assert.Equal(t, 2, cfg.AuthorsTop)
	assert.Equal(t, "v1.0", cfg.CommitBegin)
	assert.Equal(t, "main", cfg.CommitEnd)
	assert.Equal(t, "2024-01-01", cfg.TimeBegin)
	assert.False(t, cfg.LinearLinestats)
	assert.True(t, cfg.AllBranches)
	assert.Equal(t, "Demo", cfg.ProjectName)
	assert.Equal(t, "/tmp/reports", cfg.Output)
	assert.Equal(t, "nightly", cfg.OutputSuffix)
	assert.Equal(t, 2, cfg.Processes)
	assert.Equal(t, 30*time.Second, cfg.ExecTimeout)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.True(t, cfg.LogJSON)
}

func TestLoadConfig_MergeAuthors_KeepsCase(t *testing.T) {
	t.Parallel()

	content := `merge_authors:
  "Alice Smith": Alice
  alice: Alice
  "BOB": Bob
`

	cfg, err := config.LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Alice Smith": "Alice",
		"alice":       "Alice",
		"BOB":         "Bob",
	}, cfg.MergeAuthors)
}

func TestLoadConfig_UnknownKey_FailsSchema(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "max_domain: 3\n"))
	require.ErrorIs(t, err, config.ErrSchemaViolation)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "max_domain")
}

func TestLoadConfig_WrongType_FailsSchema(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "processes: many\n"))
	require.ErrorIs(t, err, config.ErrSchemaViolation)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ZeroProcesses_FailsSchema(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "processes: 0\n"))
	require.ErrorIs(t, err, config.ErrSchemaViolation)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "processes: [invalid yaml\n"))
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_InvalidTimezone_FailsValidation(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "timezone: Mars/Olympus_Mons\n"))
	require.ErrorIs(t, err, config.ErrInvalidTimezone)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("/nonexistent/path/gitstats.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GITSTATS_PROCESSES", "3")
	t.Setenv("GITSTATS_COMMIT_END", "release")

	cfg, err := config.LoadConfig(writeConfig(t, "processes: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Processes)
	assert.Equal(t, "release", cfg.CommitEnd)
}
