package support

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// TestContext holds the state of one scenario. Every scenario runs in its
// own sandbox directory, which is the working directory of the commands it
// runs and the base of relative paths in steps.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStdout   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	BinaryPath string
	SandboxDir string
	EnvVars    []string

	// Server state
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   []byte
	LastHTTPHeaders    http.Header
}

// NewTestContext creates a scenario context around the pixkit binary.
func NewTestContext(binaryPath string) (*TestContext, error) {
	sandbox, err := os.MkdirTemp("", "pixkit-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
	}
	return &TestContext{
		BinaryPath: binaryPath,
		SandboxDir: sandbox,
		// Keep user config files and PIXKIT_* variables out of scenarios.
		EnvVars: []string{"HOME=" + sandbox, "XDG_CONFIG_HOME=" + filepath.Join(sandbox, ".config")},
	}, nil
}

// Cleanup stops the server and removes the sandbox.
func (testCtx *TestContext) Cleanup() error {
	testCtx.stopTestHTTPServer()
	if err := os.RemoveAll(testCtx.SandboxDir); err != nil {
		return fmt.Errorf("failed to remove sandbox %s: %w", testCtx.SandboxDir, err)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// path resolves a step path against the sandbox.
func (testCtx *TestContext) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(testCtx.SandboxDir, p)
}
