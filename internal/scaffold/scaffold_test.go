package scaffold

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quire/internal/builder"
	"quire/internal/config"
	"quire/internal/errors"
)

func TestCreateNewSite_Builds(t *testing.T) {
	root := filepath.Join(t.TempDir(), "site")
	ctx := context.Background()
	require.NoError(t, CreateNewSite(ctx, root))

	cfg, err := config.LoadSiteConfig(filepath.Join(root, "site.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "My Site", cfg.Title)

	site, err := builder.New(config.NewLayout(root), cfg, builder.Options{})
	require.NoError(t, err)
	require.NoError(t, site.Load(ctx))
	_, err = site.Build(ctx)
	require.NoError(t, err)

	post, err := os.ReadFile(filepath.Join(root, "public", "posts", "hello-world", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(post), "<h1>Hello, world</h1>")
	assert.Contains(t, string(post), `href="http://localhost:1111/"`)
	assert.Contains(t, string(post), "Shortcodes live in templates/shortcodes.")

	section, err := os.ReadFile(filepath.Join(root, "public", "posts", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(section), "Read more")
	assert.FileExists(t, filepath.Join(root, "public", "css", "style.css"))
	assert.FileExists(t, filepath.Join(root, "public", "index.html"))
}

func TestCreateNewSite_RefusesNonEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0o644))
	err := CreateNewSite(context.Background(), root)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindIO))
}

func TestCreateNewContent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "site")
	ctx := context.Background()
	require.NoError(t, CreateNewSite(ctx, root))

	path, err := CreateNewContent(ctx, root, "posts", "My Second Post")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "content", "posts", "my-second-post.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `title = "My Second Post"`)
	assert.Contains(t, string(data), "draft = true")

	_, err = CreateNewContent(ctx, root, "posts", "My Second Post")
	assert.Error(t, err)
}
