//go:build integration

package integration

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveWorkflow_CacheThenOffline resolves the viewer and a team, then
// checks that a second run is answered from the cache files.
func TestResolveWorkflow_CacheThenOffline(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	stdout, stderr, code := runner.Run("resolve", "user", "me", "-o", "json")
	require.Zero(t, code, "resolve me failed: %s", stderr)
	AssertJSONOutput(t, stdout)

	stdout, stderr, code = runner.Run("list", "teams", "--all", "-o", "json")
	require.Zero(t, code, "list teams failed: %s", stderr)

	var listed struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &listed))
	require.NotEmpty(t, listed.Items, "workspace has no teams")

	teamKey := config.TeamKey
	if teamKey == "" {
		teamKey, _ = listed.Items[0]["key"].(string)
	}

	_, stderr, code = runner.Run("resolve", "team", strings.ToLower(teamKey), "-o", "json")
	require.Zero(t, code, "resolve team failed: %s", stderr)

	_, err := os.Stat(runner.CacheDir() + "/teams.json")
	require.NoError(t, err, "team catalog was not cached")

	_, stderr, code = runner.Run("resolve", "status", "Todo", "--team", teamKey, "-o", "json")
	if code == 4 {
		t.Logf("team %s has no Todo state: %s", teamKey, stderr)
	} else {
		require.Zero(t, code, "resolve status failed: %s", stderr)
	}

	stdout, _, code = runner.Run("cache", "status", "-o", "json")
	require.Zero(t, code)
	assert.Contains(t, stdout, `"teams"`)

	_, _, code = runner.Run("cache", "clear")
	require.Zero(t, code)

	_, err = os.Stat(runner.CacheDir() + "/teams.json")
	assert.True(t, os.IsNotExist(err))
}

// TestExitCodes checks the documented exit statuses against the live API.
func TestExitCodes(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	_, _, code := runner.Run("resolve", "team", "no-such-team-linctl-test")
	assert.Equal(t, 4, code)

	_, _, code = runner.Run("list", "teams", "--after", "a", "--before", "b")
	assert.Equal(t, 2, code)

	badKey := *config
	badKey.APIKey = "lin_api_invalid"

	_, _, code = NewCommandRunner(&badKey, t).Run("list", "teams")
	assert.Equal(t, 3, code)
}

// TestExportIssues_NDJSON streams a bounded export.
func TestExportIssues_NDJSON(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	stdout, stderr, code := runner.Run("export", "issues", "--limit", "5", "--page-size", "2")
	require.Zero(t, code, "export failed: %s", stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.LessOrEqual(t, len(lines), 5)

	for _, line := range lines {
		if line != "" {
			AssertJSONOutput(t, line)
		}
	}
}
