package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"src.marktree.dev/pkg/md"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marktree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, md.DefaultOptions, cfg.MarkdownOptions())
}

func TestLoad_EmptyFileGivesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Setenv("MARKTREE_TEST_DIR", "/tmp/mt")
	cfg, err := Load(writeConfig(t, `
log:
  verbosity: 2
cache:
  enabled: true
  path: $MARKTREE_TEST_DIR/cache.db
markdown:
  rawHTML: false
`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, "/tmp/mt/cache.db", cfg.Cache.Path)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, md.Options{Strikethrough: true, Autolinks: true}, cfg.MarkdownOptions())
	assert.Equal(t, "110", cfg.Variant())
}

func TestLoad_Errors(t *testing.T) {
	for _, content := range []string{
		"markdown:\n  tables: true\n",
		"log: [1]\n",
		"log:\n  verbosity: -1\n",
		"cache:\n  enabled: true\n  path: ' '\n",
	} {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, "content %q", content)
	}
}

func TestLoad_ReportsAllProblems(t *testing.T) {
	_, err := Load(writeConfig(t, "log:\n  verbosity: -1\ncache:\n  enabled: true\n  path: ''\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.verbosity")
	assert.Contains(t, err.Error(), "cache.path")
}
