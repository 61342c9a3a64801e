package sidecar

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kestrelab/tau2ctl/internal/config"
)

// Sidecar supervises the auxiliary server the benchmark depends on. The
// server is started as a background process and is not considered up
// until its readiness probe succeeds; there is no fixed startup sleep.
type Sidecar struct {
	cfg     *config.Sidecar
	cmd     *exec.Cmd
	logFile *os.File
	env     []string
}

// Start launches the sidecar process with its output captured to a log
// file. Extra env vars (secrets, mode flags) are merged over the parent
// environment.
func Start(ctx context.Context, cfg *config.Sidecar, extraEnv map[string]string) (*Sidecar, error) {
	logDir := cfg.LogDir
	if logDir == "" {
		logDir = os.TempDir()
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sidecar log dir: %w", err)
	}
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-%d.log", filepath.Base(cfg.Command), os.Getpid()))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating sidecar log file: %w", err)
	}

	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range extraEnv {
		env = append(env, k+"="+v)
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = env

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting sidecar %s: %w", cfg.Command, err)
	}
	logrus.WithFields(logrus.Fields{"command": cfg.Command, "pid": cmd.Process.Pid, "log": logPath}).
		Info("sidecar started")

	return &Sidecar{cfg: cfg, cmd: cmd, logFile: logFile, env: env}, nil
}

// WaitReady polls the readiness probe until it succeeds or the probe
// deadline passes.
func (s *Sidecar) WaitReady(ctx context.Context) error {
	probe := &s.cfg.Ready
	timeout := time.Duration(probe.TimeoutS) * time.Second
	interval := time.Duration(probe.IntervalS) * time.Second

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.probeOnce(ctx, probe) {
			logrus.WithField("command", s.cfg.Command).Info("sidecar ready")
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("sidecar not ready after %s (%s probe on %q)", timeout, probe.Type, probe.Target)
}

func (s *Sidecar) probeOnce(ctx context.Context, probe *config.Probe) bool {
	switch probe.Type {
	case "tcp":
		conn, err := net.DialTimeout("tcp", probe.Target, time.Second)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	default:
		parts := strings.Fields(probe.Target)
		if len(parts) == 0 {
			return false
		}
		cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
		cmd.Env = s.env
		return cmd.Run() == nil
	}
}

// Stop shuts the sidecar down: the configured stop command runs first
// (best effort), then the process itself is terminated. Safe to call
// after a failed benchmark; always called exactly once per session.
func (s *Sidecar) Stop() error {
	if len(s.cfg.StopArgs) > 0 {
		stop := exec.Command(s.cfg.Command, s.cfg.StopArgs...)
		stop.Env = s.env
		if out, err := stop.CombinedOutput(); err != nil {
			logrus.WithError(err).WithField("output", strings.TrimSpace(string(out))).
				Warn("sidecar stop command failed")
		}
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
	return nil
}

// LogPath returns the sidecar's captured output file.
func (s *Sidecar) LogPath() string {
	if s.logFile == nil {
		return ""
	}
	return s.logFile.Name()
}
