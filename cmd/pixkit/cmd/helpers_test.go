package cmd

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/testutil"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh command tree against an isolated config file and
// returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "pixkit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: warn\n"), 0o600))

	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFixture renders a named fixture into dir and returns its path.
func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	f, ok := testutil.FixtureByName(name)
	require.True(t, ok, "fixture %s", name)
	path := filepath.Join(dir, name+".png")
	require.NoError(t, testutil.WritePNG(path, f.Image()))
	return path
}

func loadImage(t *testing.T, path string) image.Image {
	t.Helper()
	return testutil.LoadImage(t, path)
}
