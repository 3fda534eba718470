package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachwill/ralph/internal/config"
	"github.com/zachwill/ralph/internal/strategy"
)

// chdir switches to dir for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(originalDir) })
}

func TestInitCommand(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	initForce = false

	out := &bytes.Buffer{}
	initCmd.SetOut(out)
	require.NoError(t, runInit(initCmd, []string{}))
	assert.Contains(t, out.String(), "Initialized .ralph/")

	ralphDir := filepath.Join(tmpDir, ".ralph")

	t.Run("creates directory structure", func(t *testing.T) {
		assertDirExists(t, ralphDir)
		assertDirExists(t, filepath.Join(ralphDir, "prompts"))
	})

	t.Run("creates config.yaml with defaults", func(t *testing.T) {
		assertFileExists(t, filepath.Join(ralphDir, "config.yaml"))

		cfg, err := config.LoadConfig(tmpDir)
		require.NoError(t, err)

		assert.Equal(t, 400, cfg.Loop.MaxIterations)
		assert.Equal(t, 30*time.Minute, cfg.Loop.Timeout.Std())
		assert.Equal(t, "pi", cfg.Agent.Binary)
		assert.Equal(t, "TODO.md", cfg.Tasks.File)
		assert.Equal(t, ".ralph/prompts/work.md", cfg.Prompts.Work)
		assert.Equal(t, ".ralph/prompts/supervisor.md", cfg.Supervisor.Prompt)
	})

	t.Run("writes every prompt", func(t *testing.T) {
		for _, name := range strategy.Names {
			assertFileExists(t, filepath.Join(ralphDir, "prompts", name+".md"))
		}

		cfg, err := config.LoadConfig(tmpDir)
		require.NoError(t, err)
		_, err = strategy.Load(tmpDir, cfg.Prompts, cfg.Supervisor.Prompt)
		assert.NoError(t, err)
	})
}

func TestInitCommandFailsIfExists(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, ".ralph"), 0o755))

	initForce = false
	err := runInit(initCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	initForce = true
	defer func() { initForce = false }()
	assert.NoError(t, runInit(initCmd, []string{}))
}

func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err, "directory should exist: %s", path)
	assert.True(t, info.IsDir(), "should be a directory: %s", path)
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err, "file should exist: %s", path)
	assert.False(t, info.IsDir(), "should be a file: %s", path)
}
