package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(os.Stderr)
	return cmd.ExecuteContext(context.Background())
}

func TestInitThenBuild(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blog")
	require.NoError(t, execute(t, "init", root))
	require.NoError(t, execute(t, "--root", root, "build"))
	assert.FileExists(t, filepath.Join(root, "public", "index.html"))
	assert.FileExists(t, filepath.Join(root, "public", "posts", "hello-world", "index.html"))
	assert.FileExists(t, filepath.Join(root, "public", "sitemap.xml"))
}

func TestBuild_OutputFlagAndDrafts(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blog")
	out := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, execute(t, "init", root))
	require.NoError(t, execute(t, "-r", root, "new", "posts", "Work in progress"))

	require.NoError(t, execute(t, "-r", root, "build", "-o", out))
	assert.NoFileExists(t, filepath.Join(out, "posts", "work-in-progress", "index.html"))

	require.NoError(t, execute(t, "-r", root, "build", "-o", out, "--drafts"))
	assert.FileExists(t, filepath.Join(out, "posts", "work-in-progress", "index.html"))
}

func TestBuild_MissingConfig(t *testing.T) {
	err := execute(t, "--root", t.TempDir(), "build")
	assert.Error(t, err)
}

func TestBuild_RefusesRootAsOutput(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blog")
	require.NoError(t, execute(t, "init", root))
	err := execute(t, "-r", root, "build", "-o", root)
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(root, "site.yaml"))
}

func TestInit_RequiresName(t *testing.T) {
	assert.Error(t, execute(t, "init"))
}
