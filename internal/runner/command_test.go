package runner

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandLine(t *testing.T) {
	testCases := []struct {
		line     string
		path     string
		args     []string
		expectOk bool
	}{
		{line: "xargs -P 8 -n 1 echo", path: "xargs", args: []string{"-P", "8", "-n", "1", "echo"}, expectOk: true},
		{line: `parallel echo "{} x"`, path: "parallel", args: []string{"echo", "{} x"}, expectOk: true},
		{line: "true", path: "true", args: []string{}, expectOk: true},
		{line: "   ", expectOk: false},
		{line: `echo "unterminated`, expectOk: false},
	}
	for _, tCase := range testCases {
		spec, err := ParseCommandLine("name", tCase.line, Input{})
		if !tCase.expectOk {
			assert.Error(t, err, tCase.line)
			continue
		}
		require.NoError(t, err, tCase.line)
		assert.Equal(t, tCase.path, spec.Path)
		assert.Equal(t, tCase.args, spec.Args)
		assert.Equal(t, "name", spec.Name)
	}
}

func TestNewShellCommand(t *testing.T) {
	spec := NewShellCommand("xargs", "/bin/sh", "seq 1 3 | xargs echo", Input{})
	assert.Equal(t, "/bin/sh", spec.Path)
	assert.Equal(t, []string{"-c", "seq 1 3 | xargs echo"}, spec.Args)
	assert.Equal(t, "/bin/sh -c seq 1 3 | xargs echo", spec.String())
	assert.True(t, spec.Shell)
}

func readInput(t *testing.T, in Input) string {
	t.Helper()
	rc, err := in.Open()
	require.NoError(t, err)
	if rc == nil {
		return ""
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestInputOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0644))

	assert.Equal(t, "1\n2\n3\n", readInput(t, Input{Seq: 3}))
	assert.Equal(t, "text", readInput(t, Input{Text: "text"}))
	assert.Equal(t, "a\nb\n", readInput(t, Input{File: path}))
	assert.Equal(t, "", readInput(t, Input{}))

	in := Input{Seq: 2}
	assert.Equal(t, readInput(t, in), readInput(t, in), "every run gets the full input")

	_, err := Input{File: filepath.Join(t.TempDir(), "missing")}.Open()
	assert.Error(t, err)
}
