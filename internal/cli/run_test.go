package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/fixture"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// execute runs the CLI in an isolated home and working directory.
func execute(t *testing.T, script string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	args = append([]string{"--no-color", "--log-level", "error"}, args...)
	code := Execute(context.Background(), args, strings.NewReader(script), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func TestRunScriptPrintsPanel(t *testing.T) {
	res := execute(t, "add Buy milk\nadd Walk dog\n# comment\ndone 1\nls\n", "run")
	require.Equal(t, exitOK, res.code, res.stderr)

	assert.Contains(t, res.stdout, "Todos  ✔ 1  • 1  Total 2")
	assert.Contains(t, res.stdout, "Buy milk")
	assert.Contains(t, res.stdout, "Walk dog")
	assert.Contains(t, res.stdout, "1 item left")
	assert.Contains(t, res.stdout, "Clear completed")
}

func TestRunDeleteThenWaitJSON(t *testing.T) {
	script := "add A\nadd B\nadd C\ndone 2\nrm 1\nls\nwait\nclear\nwait\nls\n"
	res := execute(t, script, "--delay", "10ms", "run", "--format", "json")
	require.Equal(t, exitOK, res.code, res.stderr)

	dec := json.NewDecoder(strings.NewReader(res.stdout))
	var first, last fixture.Snapshot
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&last))

	require.Len(t, first.Items, 3)
	require.Len(t, first.Pending, 1)
	for _, it := range first.Items {
		if it.ID == first.Pending[0] {
			assert.Equal(t, "A", it.Text)
		}
	}

	require.Len(t, last.Items, 1)
	assert.Equal(t, "C", last.Items[0].Text)
	assert.Empty(t, last.Pending)
	assert.Equal(t, 1, last.Active)
	assert.Equal(t, 0, last.Completed)
}

func TestRunReportsBadLinesAndContinues(t *testing.T) {
	res := execute(t, "bogus\nadd Keep going\ndone 7\nls\n", "run")
	assert.Equal(t, exitError, res.code)

	assert.Contains(t, res.stderr, "line 1: unknown command: bogus")
	assert.Contains(t, res.stderr, "line 3: done: index out of range")
	assert.Contains(t, res.stderr, "2 script line(s) failed")
	assert.Contains(t, res.stdout, "Keep going")
}

func TestRunFilterAndSortLines(t *testing.T) {
	res := execute(t, "add b\nadd a\ndone 1\nfilter active\nsort alpha\nls\n", "run")
	require.Equal(t, exitOK, res.code, res.stderr)

	assert.Contains(t, res.stdout, "filter: active  sort: alphabetical")
	assert.Contains(t, res.stdout, " a ")
	assert.NotContains(t, res.stdout, " b ")
}

func TestRunWithSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`[
		{"text": "Read book", "completed": true},
		{"text": "Call mom"}
	]`), 0o644))

	res := execute(t, "ls\n", "--seed", seed, "run", "--format", "json")
	require.Equal(t, exitOK, res.code, res.stderr)

	var snap fixture.Snapshot
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &snap))
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 1, snap.Active)
	assert.Equal(t, 1, snap.Completed)
}

func TestRunScriptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.todo")
	require.NoError(t, os.WriteFile(path, []byte("add From file\nls\n"), 0o644))

	res := execute(t, "", "run", path)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "From file")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown subcommand", []string{"frobnicate"}},
		{"unknown flag", []string{"run", "--nope"}},
		{"bad format", []string{"run", "--format", "xml"}},
		{"too many scripts", []string{"run", "a", "b"}},
		{"bad filter", []string{"tui", "--filter", "someday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", tt.args...)
			assert.Equal(t, exitUsage, res.code, res.stderr)
			assert.NotEmpty(t, res.stderr)
		})
	}
}

func TestMissingSeedIsRuntimeError(t *testing.T) {
	res := execute(t, "ls\n", "--seed", filepath.Join(t.TempDir(), "missing.json"), "run")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "seed")
}
