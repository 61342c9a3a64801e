package image

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kestrelab/tau2ctl/internal/config"
)

// Tag derives a content-addressed image tag from the image definition and
// the contents of its copied dirs, so editing the benchmark tree yields a
// new tag and forces a rebuild.
func Tag(img *config.Image) (string, error) {
	h := sha256.New()
	fmt.Fprintln(h, img.Base)
	for _, p := range img.AptPackages {
		fmt.Fprintln(h, "apt", p)
	}
	for _, p := range img.PipPackages {
		fmt.Fprintln(h, "pip", p)
	}
	for _, c := range img.SetupCommands {
		fmt.Fprintln(h, "run", c)
	}
	for _, d := range img.CopyDirs {
		fmt.Fprintln(h, "copy", d.Source, d.Target)
	}
	for _, d := range img.CopyDirs {
		if err := hashTree(h, d.Source); err != nil {
			return "", fmt.Errorf("digesting copy dir %s: %w", d.Source, err)
		}
	}
	return fmt.Sprintf("tau2ctl:%x", h.Sum(nil)[:8]), nil
}

// hashTree folds the file names, modes, and contents of a copied dir into
// the tag digest, skipping .git the same way BuildContext does.
func hashTree(h io.Writer, src string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	return filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		fmt.Fprintln(h, "file", rel, info.Mode().Perm())
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(h, "link", link)
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(h, f)
		return err
	})
}

// RenderDockerfile produces the Dockerfile for an image definition. Copied dirs
// are referenced by index; BuildContext stages them under those names.
func RenderDockerfile(img *config.Image) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", img.Base)
	if len(img.AptPackages) > 0 {
		fmt.Fprintf(&b, "RUN apt-get update && apt-get install -y --no-install-recommends %s && rm -rf /var/lib/apt/lists/*\n",
			strings.Join(img.AptPackages, " "))
	}
	if len(img.PipPackages) > 0 {
		fmt.Fprintf(&b, "RUN pip install --no-cache-dir %s\n", strings.Join(img.PipPackages, " "))
	}
	for _, c := range img.SetupCommands {
		fmt.Fprintf(&b, "RUN %s\n", c)
	}
	for i, d := range img.CopyDirs {
		fmt.Fprintf(&b, "COPY dir-%d %s\n", i, d.Target)
	}
	return b.String()
}

// BuildContext assembles a build context directory: the rendered
// Dockerfile plus a staged copy of each source dir.
func BuildContext(img *config.Image, dir string) error {
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(RenderDockerfile(img)), 0o644); err != nil {
		return fmt.Errorf("writing Dockerfile: %w", err)
	}
	for i, d := range img.CopyDirs {
		src, err := filepath.Abs(d.Source)
		if err != nil {
			return fmt.Errorf("resolving copy dir %s: %w", d.Source, err)
		}
		dest := filepath.Join(dir, fmt.Sprintf("dir-%d", i))
		if err := copyTree(src, dest); err != nil {
			return fmt.Errorf("staging %s: %w", d.Source, err)
		}
	}
	return nil
}

// Ensure builds the configured image unless a cached build already
// exists, and returns its tag.
func Ensure(ctx context.Context, img *config.Image) (string, error) {
	tag, err := Tag(img)
	if err != nil {
		return "", err
	}
	if Exists(ctx, tag) {
		logrus.WithField("image", tag).Debug("image cached, skipping build")
		return tag, nil
	}

	buildDir, err := os.MkdirTemp("", "tau2ctl-image-*")
	if err != nil {
		return "", fmt.Errorf("creating build dir: %w", err)
	}
	defer os.RemoveAll(buildDir)

	if err := BuildContext(img, buildDir); err != nil {
		return "", err
	}

	logrus.WithField("image", tag).Info("building image")
	cmd := exec.CommandContext(ctx, "docker", "build", "-t", tag, buildDir)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker build: %w", err)
	}
	return tag, nil
}

// Exists reports whether the tag is already present in the local daemon.
func Exists(ctx context.Context, tag string) bool {
	cmd := exec.CommandContext(ctx, "docker", "image", "inspect", tag)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

func copyTree(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		// .git trees break builds on dangling symlinks and bloat context
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}
