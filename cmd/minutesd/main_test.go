package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentantai21042004/minutes-flow/internal/config"
	"github.com/nguyentantai21042004/minutes-flow/internal/store"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("MINUTES_DATABASE_URL", "")
	t.Chdir(t.TempDir())

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&store.MigrationResult{}, &buf)
	assert.Equal(t, "Schema is up to date.\n", buf.String())

	buf.Reset()
	printResult(&store.MigrationResult{Applied: []string{"001", "002"}}, &buf)
	assert.Equal(t, "applied 001\napplied 002\n", buf.String())
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Paths: config.PathsConfig{
		Staging:   filepath.Join(root, "uploads"),
		Artifacts: filepath.Join(root, "downloads"),
		Failed:    filepath.Join(root, "failed"),
	}}

	require.NoError(t, ensureDirectories(cfg))
	for _, dir := range []string{cfg.Paths.Staging, cfg.Paths.Artifacts, cfg.Paths.Failed} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
