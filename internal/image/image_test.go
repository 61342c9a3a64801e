package image_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/image"
)

func imageFixture(src string) *config.Image {
	return &config.Image{
		Base:        "python:3.10-slim",
		AptPackages: []string{"curl"},
		PipPackages: []string{"uv"},
		SetupCommands: []string{
			"curl -LsSf https://example.com/pctx-installer.sh | sh",
		},
		CopyDirs: []config.CopyDir{
			{Source: src, Target: "/root/tau2-bench"},
		},
	}
}

func TestTagDeterministic(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "pyproject.toml"), []byte("[project]"), 0o644))
	img := imageFixture(src)

	a, err := image.Tag(img)
	require.NoError(t, err)
	b, err := image.Tag(img)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "tau2ctl:"))
}

func TestTagChangesWithDefinition(t *testing.T) {
	src := t.TempDir()
	a := imageFixture(src)
	b := imageFixture(src)
	b.PipPackages = append(b.PipPackages, "requests")

	tagA, err := image.Tag(a)
	require.NoError(t, err)
	tagB, err := image.Tag(b)
	require.NoError(t, err)
	assert.NotEqual(t, tagA, tagB)
}

func TestTagChangesWithCopiedContent(t *testing.T) {
	src := t.TempDir()
	path := filepath.Join(src, "agent.py")
	require.NoError(t, os.WriteFile(path, []byte("print('v1')\n"), 0o644))
	img := imageFixture(src)

	before, err := image.Tag(img)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("print('v2')\n"), 0o644))
	after, err := image.Tag(img)
	require.NoError(t, err)

	assert.NotEqual(t, before, after,
		"editing a copied file must produce a new tag so the image rebuilds")
}

func TestTagIgnoresGitDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "agent.py"), []byte("print('v1')\n"), 0o644))
	img := imageFixture(src)

	before, err := image.Tag(img)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref"), 0o644))
	after, err := image.Tag(img)
	require.NoError(t, err)

	assert.Equal(t, before, after, ".git churn should not invalidate the image")
}

func TestTagMissingCopyDir(t *testing.T) {
	img := imageFixture(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := image.Tag(img)
	assert.Error(t, err)
}

func TestRenderDockerfile(t *testing.T) {
	df := image.RenderDockerfile(imageFixture("."))
	lines := strings.Split(strings.TrimSpace(df), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "FROM python:3.10-slim", lines[0])
	assert.Contains(t, lines[1], "apt-get install -y --no-install-recommends curl")
	assert.Contains(t, lines[2], "pip install --no-cache-dir uv")
	assert.Contains(t, lines[3], "pctx-installer.sh")
	assert.Equal(t, "COPY dir-0 /root/tau2-bench", lines[4])
}

func TestRenderDockerfileMinimal(t *testing.T) {
	df := image.RenderDockerfile(&config.Image{Base: "alpine:latest"})
	assert.Equal(t, "FROM alpine:latest\n", df)
}

func TestBuildContext(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "pyproject.toml"), []byte("[project]"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git", "objects"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref"), 0o644))

	img := &config.Image{
		Base:     "python:3.10-slim",
		CopyDirs: []config.CopyDir{{Source: src, Target: "/root/tau2-bench"}},
	}

	buildDir := t.TempDir()
	require.NoError(t, image.BuildContext(img, buildDir))

	df, err := os.ReadFile(filepath.Join(buildDir, "Dockerfile"))
	require.NoError(t, err)
	assert.Contains(t, string(df), "COPY dir-0 /root/tau2-bench")

	_, err = os.Stat(filepath.Join(buildDir, "dir-0", "pyproject.toml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(buildDir, "dir-0", ".git"))
	assert.True(t, os.IsNotExist(err), "expected .git to be excluded from build context")
}
