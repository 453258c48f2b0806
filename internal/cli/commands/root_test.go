package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprocsync/sprocsync/internal/metadata"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "sprocsync", root.Use)
	assert.True(t, root.SilenceUsage)
	assert.True(t, root.SilenceErrors)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "sync")
	assert.Contains(t, names, "generate")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "watch")
	assert.Contains(t, names, "version")
}

func projectDir(t *testing.T, configYAML string, cache metadata.Cache) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sprocsync.yml"), []byte(configYAML), 0o644))
	if cache != nil {
		require.NoError(t, metadata.Save(filepath.Join(dir, ".sprocsync", "metadata.json"), cache))
	}
	return dir
}

func TestGenerateCommand(t *testing.T) {
	cache := metadata.Cache{
		"customer_get": {
			RoutineName: "customer_get",
			RoutineType: "PROCEDURE",
			Designation: metadata.DesignationRow1,
		},
	}
	dir := projectDir(t, "wrapper:\n  package: sproc\n", cache)

	root := NewRootCommand()
	root.SetArgs([]string{"generate", "-C", dir, "--no-color"})
	require.NoError(t, root.Execute())

	code, err := os.ReadFile(filepath.Join(dir, "sproc", "sproc.go"))
	require.NoError(t, err)
	assert.Contains(t, string(code), "package sproc")
	assert.Contains(t, string(code), "func CustomerGet(")
}

func TestGenerateCommand_EmptyCache(t *testing.T) {
	dir := projectDir(t, "", nil)

	root := NewRootCommand()
	root.SetArgs([]string{"generate", "-C", dir, "--no-color"})
	require.NoError(t, root.Execute())

	code, err := os.ReadFile(filepath.Join(dir, "sproc", "sproc.go"))
	require.NoError(t, err)
	assert.Contains(t, string(code), "package sproc")
}

func TestStatusCommand(t *testing.T) {
	cache := metadata.Cache{
		"customer_get": {
			RoutineName: "customer_get",
			RoutineType: "PROCEDURE",
			Designation: metadata.DesignationRow1,
		},
	}
	dir := projectDir(t, "", cache)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "routines"), 0o755))

	root := NewRootCommand()
	root.SetArgs([]string{"status", "-C", dir, "--no-color"})
	assert.NoError(t, root.Execute())
}

func TestSyncCommand_MissingDSN(t *testing.T) {
	dir := projectDir(t, "", nil)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "routines"), 0o755))

	t.Setenv("DATABASE_URL", "")

	root := NewRootCommand()
	root.SetArgs([]string{"sync", "-C", dir, "--no-color"})
	err := root.Execute()
	assert.ErrorContains(t, err, "no database configured")
}
