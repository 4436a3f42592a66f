// Package testutil provides shared test helpers for creating config files and dictionary fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
	"github.com/at-ishikawa/translitbot/internal/unknown"
)

// Paths points at the files created by SetupTestConfig.
type Paths struct {
	Config     string
	Dictionary string
	Unknown    string
	Output     string
}

// SetupTestConfig creates a config file that keeps every store under tmpDir.
// extra is appended verbatim, so top-level sections can be added by tests.
func SetupTestConfig(t *testing.T, tmpDir string, extra string) Paths {
	t.Helper()

	paths := Paths{
		Config:     filepath.Join(tmpDir, "config.yml"),
		Dictionary: filepath.Join(tmpDir, "data", "dictionary.yml"),
		Unknown:    filepath.Join(tmpDir, "data", "unknown.txt"),
		Output:     filepath.Join(tmpDir, "output"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Dictionary), 0755))
	require.NoError(t, os.MkdirAll(paths.Output, 0755))

	configContent := fmt.Sprintf(`dictionary:
  storage: yaml
  path: %s
unknown:
  storage: file
  path: %s
%s`, paths.Dictionary, paths.Unknown, extra)

	require.NoError(t, os.WriteFile(paths.Config, []byte(configContent), 0644))
	return paths
}

// WriteDictionary stores entries in the YAML file at path.
func WriteDictionary(t *testing.T, path string, entries ...dictionary.Entry) {
	t.Helper()
	content, err := dictionary.EncodeYAML(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, content, 0644))
}

// WriteUnknown stores phrases in the unknown list file at path.
func WriteUnknown(t *testing.T, path string, phrases ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, unknown.Encode(phrases), 0644))
}
