//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	APIKey     string
	Endpoint   string
	TeamKey    string
	LinctlPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIKey:     os.Getenv("LINCTL_TEST_API_KEY"),
		Endpoint:   os.Getenv("LINCTL_TEST_ENDPOINT"),
		TeamKey:    os.Getenv("LINCTL_TEST_TEAM"),
		LinctlPath: getLinctlPath(),
		Verbose:    os.Getenv("LINCTL_VERBOSE") == "true",
	}
}

// getLinctlPath determines the path to the linctl binary
func getLinctlPath() string {
	if path := os.Getenv("LINCTL_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../linctl",
		"./linctl",
		"../linctl",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "linctl"
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.APIKey == "" {
		t.Skip("LINCTL_TEST_API_KEY not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.LinctlPath); err != nil {
		t.Skipf("linctl binary not found at %s, skipping integration test", config.LinctlPath)
	}
}

// CommandRunner runs linctl with an isolated HOME so config and cache never
// touch the developer's own files.
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
	home   string
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config: config,
		t:      t,
		home:   t.TempDir(),
	}
}

// CacheDir returns the default profile's cache directory.
func (runner *CommandRunner) CacheDir() string {
	return filepath.Join(runner.home, ".linctl", "cache", "default")
}

// Run executes a linctl command and returns output and the exit code.
func (runner *CommandRunner) Run(args ...string) (string, string, int) {
	cmd := exec.Command(runner.config.LinctlPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+runner.home,
		"LINCTL_API_KEY="+runner.config.APIKey,
	)

	if runner.config.Endpoint != "" {
		cmd.Env = append(cmd.Env, "LINCTL_ENDPOINT="+runner.config.Endpoint)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.LinctlPath, strings.Join(args, " "))
	}

	err := cmd.Run()
	stdout := stdoutBuf.String()
	stderr := stderrBuf.String()

	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		runner.t.Fatalf("failed to run linctl: %v", err)
	}

	if runner.config.Verbose && code != 0 {
		runner.t.Logf("Command failed with %d\nStdout: %s\nStderr: %s", code, stdout, stderr)
	}

	return stdout, stderr, code
}

// AssertJSONOutput verifies that output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	var data interface{}
	if err := json.Unmarshal([]byte(output), &data); err != nil {
		t.Errorf("Output is not valid JSON: %v\nOutput: %s", err, output)
	}
}
