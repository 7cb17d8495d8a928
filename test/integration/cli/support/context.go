// Package support holds the godog step definitions of the CLI integration
// suite. Commands run in-process through the cobra root command.
package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/footprint/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastStdout   string
	LastStderr   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	// savedEnv holds the values environment variables had before the
	// scenario changed them; a nil entry means the variable was unset.
	savedEnv map[string]*string

	// Server state
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a new test context rooted at the project directory.
func NewTestContext() (*TestContext, error) {
	workingDir, err := testutil.GetProjectRoot()
	if err != nil {
		if workingDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	tempDir, err := os.MkdirTemp("", "footprint-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	testCtx := &TestContext{
		WorkingDir: workingDir,
		TempDir:    tempDir,
		savedEnv:   map[string]*string{},
	}

	// Keep user configuration files out of the scenario.
	if err := testCtx.SetEnv("HOME", tempDir); err != nil {
		return nil, err
	}
	if err := testCtx.SetEnv("XDG_CONFIG_HOME", filepath.Join(tempDir, ".config")); err != nil {
		return nil, err
	}
	return testCtx, nil
}

// SetEnv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// Path resolves a scenario-relative file name inside the temp directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substitute expands {tmp} in step arguments.
func (testCtx *TestContext) substitute(s string) string {
	return strings.ReplaceAll(s, "{tmp}", testCtx.TempDir)
}

// Cleanup stops the server, restores the environment and removes the temp
// directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Close()
		testCtx.HTTPTestServer = nil
	}

	for name, old := range testCtx.savedEnv {
		var err error
		if old == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *old)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", name, err))
		}
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}
