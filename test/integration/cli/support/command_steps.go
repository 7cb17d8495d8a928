package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/footprint/cmd/footprint/cmd"
	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/cucumber/godog"
)

// iRunCommand runs a footprint command line in-process. The leading program
// name is optional.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "footprint" {
		args = args[1:]
	}

	root := cmd.GetRootCommand()
	cmd.ResetFlags()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	start := time.Now()
	err := root.Execute()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastStdout = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

// output is what a user would see on the terminal.
func (testCtx *TestContext) output() string {
	return testCtx.LastStdout + testCtx.LastStderr
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.output())
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.output())
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	expected = testCtx.substitute(expected)
	if !strings.Contains(testCtx.output(), expected) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expected, testCtx.output())
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.output(), unexpected) {
		return fmt.Errorf("output unexpectedly contains '%s'", unexpected)
	}
	return nil
}

// theErrorShouldMention matches case-insensitively against the returned
// error and everything printed.
func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", text)
	}
	full := testCtx.output() + " " + testCtx.LastError.Error()
	if !strings.Contains(strings.ToLower(full), strings.ToLower(text)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", text, full)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &v); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return nil
}

// lookupJSON walks a dot-separated path through a decoded JSON document.
func lookupJSON(doc any, path string) (any, error) {
	cur := doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not an object", path, key)
		}
		if cur, ok = m[key]; !ok {
			return nil, fmt.Errorf("%s: key %q not found", path, key)
		}
	}
	return cur, nil
}

func jsonFieldEquals(data []byte, path string, want int) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	v, err := lookupJSON(doc, path)
	if err != nil {
		return err
	}
	if n, ok := v.(float64); !ok || int(n) != want {
		return fmt.Errorf("%s is %v, want %d", path, v, want)
	}
	return nil
}

func (testCtx *TestContext) theJSONFieldShouldBe(path string, want int) error {
	return jsonFieldEquals([]byte(testCtx.LastStdout), path, want)
}

func (testCtx *TestContext) theReportFieldShouldBe(name, path string, want int) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	return jsonFieldEquals(data, path, want)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("file does not exist: %s", testCtx.Path(name))
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file should not exist: %s", testCtx.Path(name))
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	expected = testCtx.substitute(expected)
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("%s does not contain '%s'\nContent: %s", name, expected, data)
	}
	return nil
}

func (testCtx *TestContext) theMaskShouldHaveForegroundPixels(name string, want int) error {
	r, _, err := raster.Load(testCtx.Path(name), raster.DecodeOptions{})
	if err != nil {
		return err
	}
	defer r.Release()
	if got := r.CountNonZero(); got != want {
		return fmt.Errorf("%s has %d foreground pixels, want %d", name, got, want)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	return testCtx.SetEnv(name, testCtx.substitute(value))
}

func (testCtx *TestContext) aConfigFileWith(name string, content *godog.DocString) error {
	return os.WriteFile(testCtx.Path(name), []byte(content.Content), 0o600)
}

// RegisterCommandSteps registers command execution and assertion steps.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should be (-?\d+)$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the report "([^"]*)" field "([^"]*)" should be (-?\d+)$`, testCtx.theReportFieldShouldBe)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the mask "([^"]*)" should have (\d+) foreground pixels$`, testCtx.theMaskShouldHaveForegroundPixels)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFileWith)
	sc.Step(`^the command should finish within (\d+) seconds$`, func(secs int) error {
		if limit := time.Duration(secs) * time.Second; testCtx.LastDuration > limit {
			return fmt.Errorf("command took %s, limit %s", testCtx.LastDuration, limit)
		}
		return nil
	})
}
