package docker_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kestrelab/tau2ctl/internal/docker"
)

func TestRunContainer(t *testing.T) {
	if os.Getenv("TAU2CTL_DOCKER_TESTS") == "" {
		t.Skip("set TAU2CTL_DOCKER_TESTS=1 to run Docker tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dataDir := t.TempDir()
	var out bytes.Buffer

	result, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "-c", "echo hello && echo artifact > /data/output.txt"},
		Env:     map[string]string{"PCTX_MODE": "fs"},
		Timeout: 30 * time.Second,
		Mounts:  []docker.Mount{{Source: dataDir, Target: "/data"}},
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code: got %d, want 0", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("unexpected timeout")
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("expected streamed output, got %q", out.String())
	}
	content, err := os.ReadFile(filepath.Join(dataDir, "output.txt"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(content) != "artifact\n" {
		t.Errorf("output: got %q, want %q", content, "artifact\n")
	}
}

func TestRunContainerTimeout(t *testing.T) {
	if os.Getenv("TAU2CTL_DOCKER_TESTS") == "" {
		t.Skip("set TAU2CTL_DOCKER_TESTS=1 to run Docker tests")
	}
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sleep", "300"},
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected timeout")
	}
	if result.ExitCode != 124 {
		t.Errorf("exit code: got %d, want 124", result.ExitCode)
	}
}

func TestRunContainerCanceledParent(t *testing.T) {
	if os.Getenv("TAU2CTL_DOCKER_TESTS") == "" {
		t.Skip("set TAU2CTL_DOCKER_TESTS=1 to run Docker tests")
	}
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(2*time.Second, cancel)
	defer timer.Stop()

	result, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sleep", "300"},
		Timeout: 60 * time.Second,
	})
	if err == nil {
		t.Fatalf("expected an error from caller cancellation, got %+v", result)
	}
}

func TestRunContainerCrash(t *testing.T) {
	if os.Getenv("TAU2CTL_DOCKER_TESTS") == "" {
		t.Skip("set TAU2CTL_DOCKER_TESTS=1 to run Docker tests")
	}
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "-c", "exit 1"},
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code: got %d, want 1", result.ExitCode)
	}
}
