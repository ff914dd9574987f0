package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "toolpipe.json")
	content := fmt.Sprintf(`{"data_dir": %q, "logging": {"console": false, "pretty": false}}`, dir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCallCommand_Success(t *testing.T) {
	cmd := GetRootCmd()
	cmd.SetArgs([]string{"call", "math_add", "--args", `{"a": 1, "b": 2}`, "--config", newTestConfigFile(t)})

	require.NoError(t, cmd.Execute())
}

func TestCallCommand_FailureReturnsReportedError(t *testing.T) {
	// a single invoke on a batchable tool yields a structured payload;
	// the command must return through its deferred teardown, not exit
	cmd := GetRootCmd()
	cmd.SetArgs([]string{"call", "text_upper", "--args", `{"item": "a"}`, "--config", newTestConfigFile(t)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, IsReported(err))
}

func TestBatchCommand_ItemFailureReturnsReportedError(t *testing.T) {
	cmd := GetRootCmd()
	cmd.SetArgs([]string{"batch", "text_upper", "--items", `[{"item": 5}]`, "--config", newTestConfigFile(t)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, IsReported(err))
}

func TestIsReported(t *testing.T) {
	assert.True(t, IsReported(ErrReported))
	assert.True(t, IsReported(fmt.Errorf("wrapped: %w", ErrReported)))
	assert.False(t, IsReported(fmt.Errorf("other failure")))
}
