package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kestrelab/tau2ctl/internal/bench"
	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/sidecar"
)

// Session exit codes beyond the benchmark's own. The benchmark exit code
// passes through untouched when the run gets that far.
const (
	ExitSetupFailed   = 4
	ExitSidecarFailed = 3
)

type Opts struct {
	Config *config.Config
	TaskID string

	// Env holds resolved secrets and engine-provided vars, merged over
	// the process environment for setup, sidecar, and benchmark alike.
	Env map[string]string

	Stdout io.Writer
	Stderr io.Writer
}

type Outcome struct {
	ExitCode int
	Duration time.Duration
}

// Run executes one benchmark session: setup commands, sidecar start and
// readiness probe, benchmark invocation, sidecar shutdown. The sidecar is
// stopped no matter how the benchmark exits.
func Run(ctx context.Context, opts *Opts) (*Outcome, error) {
	start := time.Now()
	cfg := opts.Config
	workDir := cfg.Eval.WorkDir

	env := os.Environ()
	for k, v := range cfg.Sidecar.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	for _, setup := range cfg.Eval.Setup {
		logrus.WithField("command", setup).Info("running setup")
		cmd := exec.CommandContext(ctx, "sh", "-c", setup)
		cmd.Dir = workDir
		cmd.Env = env
		cmd.Stdout = opts.Stdout
		cmd.Stderr = opts.Stderr
		if err := cmd.Run(); err != nil {
			logrus.WithError(err).Error("setup command failed")
			return &Outcome{ExitCode: ExitSetupFailed, Duration: time.Since(start)}, nil
		}
	}

	sc, err := sidecar.Start(ctx, &cfg.Sidecar, opts.Env)
	if err != nil {
		return nil, fmt.Errorf("starting sidecar: %w", err)
	}
	defer sc.Stop()

	if err := sc.WaitReady(ctx); err != nil {
		logrus.WithError(err).Error("sidecar never became ready")
		return &Outcome{ExitCode: ExitSidecarFailed, Duration: time.Since(start)}, nil
	}

	logrus.WithFields(logrus.Fields{"domain": cfg.Eval.Domain, "task": opts.TaskID}).
		Info("running benchmark")
	code, err := bench.Run(ctx, &bench.Invocation{
		Eval:    &cfg.Eval,
		TaskIDs: []string{opts.TaskID},
		Dir:     workDir,
		Env:     env,
		Stdout:  opts.Stdout,
		Stderr:  opts.Stderr,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{ExitCode: code, Duration: time.Since(start)}, nil
}
