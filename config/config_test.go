package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	yamlContent := `
journal_set:
  min_journals: 2
  min_nonlocal_journals: 1
  journals:
    - kind: local
      directory: /var/lib/journalset/a
      required: true
    - kind: remote
      endpoint: journal-2.internal:9870
      shared: true
remote:
  codec: zstd
`
	reader := strings.NewReader(yamlContent)
	cfg, err := Load(reader)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 2, cfg.JournalSet.MinJournals)
	assert.Equal(t, 1, cfg.JournalSet.MinNonLocalJournals)
	require.Len(t, cfg.JournalSet.Journals, 2)
	assert.Equal(t, "local", cfg.JournalSet.Journals[0].Kind)
	assert.True(t, cfg.JournalSet.Journals[0].Required)
	assert.Equal(t, "remote", cfg.JournalSet.Journals[1].Kind)
	assert.True(t, cfg.JournalSet.Journals[1].Shared)
	assert.Equal(t, "zstd", cfg.Remote.Codec)

	// Defaults not overridden.
	assert.True(t, cfg.JournalSet.ParallelFanout)
	assert.Equal(t, "5s", cfg.Remote.DialTimeout)
}

func TestLoad_PartialConfig(t *testing.T) {
	yamlContent := `
local:
  purge_keep_segments: 8
`
	reader := strings.NewReader(yamlContent)
	cfg, err := Load(reader)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8, cfg.Local.PurgeKeepSegments)
	// Other defaults survive the partial override.
	assert.Equal(t, 1, cfg.JournalSet.MinJournals)
	assert.Equal(t, int64(32*1024*1024), cfg.Local.MaxSegmentSizeBytes)
}

func TestLoad_EmptyReader(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.JournalSet.MinJournals)

	reader := strings.NewReader("")
	cfg, err = Load(reader)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.JournalSet.MinJournals)
}

func TestLoad_InvalidYAML(t *testing.T) {
	yamlContent := `
journal_set:
  min_journals: 1
  this: is: invalid: yaml
`
	reader := strings.NewReader(yamlContent)
	_, err := Load(reader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config yaml")
}

func TestLoadFile(t *testing.T) {
	t.Run("FileExists", func(t *testing.T) {
		yamlContent := `
journal_set:
  min_journals: 3
`
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.yaml")
		err := os.WriteFile(configPath, []byte(yamlContent), 0644)
		require.NoError(t, err)

		cfg, err := LoadFile(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, 3, cfg.JournalSet.MinJournals)
	})

	t.Run("FileDoesNotExist", func(t *testing.T) {
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "non_existent_config.yaml")

		cfg, err := LoadFile(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, 1, cfg.JournalSet.MinJournals)
	})
}

func TestParseDuration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defaultDuration := 10 * time.Second

	testCases := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{"ValidSeconds", "5s", 5 * time.Second},
		{"ValidMilliseconds", "500ms", 500 * time.Millisecond},
		{"ValidMinutes", "2m", 2 * time.Minute},
		{"EmptyString", "", defaultDuration},
		{"ZeroString", "0", defaultDuration},
		{"InvalidString", "5x", defaultDuration},
		{"JustNumber", "10", defaultDuration},
		{"NilLogger", "5x", defaultDuration},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var testLogger *slog.Logger
			if tc.name != "NilLogger" {
				testLogger = logger
			}
			result := ParseDuration(tc.input, defaultDuration, testLogger)
			assert.Equal(t, tc.expected, result)
		})
	}
}
