package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/docker"
	"github.com/kestrelab/tau2ctl/internal/result"
	"github.com/kestrelab/tau2ctl/internal/session"
	"github.com/kestrelab/tau2ctl/internal/usage"
)

type SessionOpts struct {
	Config     *config.Config
	ConfigPath string
	RunID      string
	TaskID     string
	Trial      int
	RunDir     string
	ImageTag   string
	SecretsEnv map[string]string
	Pricing    *usage.PricingTable
	Stdout     io.Writer
}

// Paths inside the session container.
const (
	containerBinary = "/usr/local/bin/tau2ctl"
	containerConfig = "/etc/tau2ctl/config.yaml"
)

func ExitReasonFromCode(code int, timedOut bool) string {
	if timedOut {
		return "timeout"
	}
	switch code {
	case 0:
		return "completed"
	case session.ExitSidecarFailed:
		return "sidecar_failed"
	case session.ExitSetupFailed:
		return "setup_failed"
	case 124:
		return "timeout"
	default:
		return "crashed"
	}
}

// RunSession executes one task × trial session and records its meta.
// Docker engine sessions run the harness's own exec-session command
// inside the provisioned container; local sessions run in-process.
func RunSession(ctx context.Context, opts *SessionOpts) (*result.SessionMeta, error) {
	cfg := opts.Config
	sessionDir := result.SessionDir(opts.RunDir, opts.TaskID, opts.Trial)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}

	// Benchmark artifacts land in the data dir; for docker sessions it is
	// bind-mounted into the session dir so results outlive the container.
	dataDir := filepath.Join(sessionDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	var exitCode int
	var timedOut bool
	var duration time.Duration
	usageDir := dataDir

	switch cfg.Engine {
	case config.EngineDocker:
		res, err := runInContainer(ctx, opts, dataDir)
		if err != nil {
			return nil, err
		}
		exitCode = res.ExitCode
		timedOut = res.TimedOut
		duration = res.Duration
	default:
		timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Resources.TimeoutS)*time.Second)
		defer cancel()
		outcome, err := session.Run(timeoutCtx, &session.Opts{
			Config: cfg,
			TaskID: opts.TaskID,
			Env:    opts.SecretsEnv,
			Stdout: opts.Stdout,
			Stderr: opts.Stdout,
		})
		if err != nil {
			return nil, err
		}
		exitCode = outcome.ExitCode
		timedOut = timeoutCtx.Err() == context.DeadlineExceeded
		duration = outcome.Duration
		usageDir = filepath.Join(cfg.Eval.WorkDir, cfg.Eval.DataDir)
	}

	meta := &result.SessionMeta{
		RunID:      opts.RunID,
		Domain:     cfg.Eval.Domain,
		Agent:      cfg.Eval.Agent,
		AgentLLM:   cfg.Eval.AgentLLM,
		UserLLM:    cfg.Eval.UserLLM,
		TaskID:     opts.TaskID,
		Trial:      opts.Trial,
		DurationS:  int(duration.Seconds()),
		ExitCode:   exitCode,
		ExitReason: ExitReasonFromCode(exitCode, timedOut),
	}
	EnrichFromArtifacts(meta, usageDir, opts.Pricing)

	if err := result.WriteSessionMeta(sessionDir, meta); err != nil {
		return nil, fmt.Errorf("writing meta: %w", err)
	}
	return meta, nil
}

// EnrichFromArtifacts fills reward, token, and cost fields from the
// benchmark's result artifacts when they are readable.
func EnrichFromArtifacts(meta *result.SessionMeta, dataDir string, pricing *usage.PricingTable) {
	records, err := usage.ParseResultsDir(dataDir)
	if err != nil || len(records) == 0 {
		return
	}
	records = usage.ForTask(records, meta.TaskID)
	if len(records) == 0 {
		return
	}
	tokens, cost, reward := usage.Totals(records)
	meta.TotalTokens = tokens
	meta.TotalCostUSD = cost
	meta.Reward = reward / float64(len(records))
	if meta.TotalCostUSD == 0 && pricing != nil {
		var prompt, completion int
		for _, r := range records {
			prompt += r.PromptTokens
			completion += r.CompletionTokens
		}
		meta.TotalCostUSD = pricing.Cost(meta.AgentLLM, prompt, completion)
	}
}

func runInContainer(ctx context.Context, opts *SessionOpts, dataDir string) (*docker.RunResult, error) {
	cfg := opts.Config

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving harness binary: %w", err)
	}
	configAbs, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	mounts := []docker.Mount{
		{Source: self, Target: containerBinary, ReadOnly: true},
		{Source: configAbs, Target: containerConfig, ReadOnly: true},
		{Source: dataDir, Target: filepath.Join(cfg.Eval.WorkDir, cfg.Eval.DataDir)},
	}

	env := map[string]string{}
	for k, v := range opts.SecretsEnv {
		env[k] = v
	}

	logrus.WithFields(logrus.Fields{"image": opts.ImageTag, "task": opts.TaskID, "trial": opts.Trial}).
		Info("starting session container")

	return docker.RunContainer(ctx, &docker.RunOpts{
		Image: opts.ImageTag,
		Command: []string{
			containerBinary, "exec-session",
			"--config", containerConfig,
			"--task-id", opts.TaskID,
		},
		WorkDir:     cfg.Eval.WorkDir,
		Env:         env,
		Timeout:     time.Duration(cfg.Resources.TimeoutS) * time.Second,
		Mounts:      mounts,
		CPULimit:    cfg.Resources.CPUs,
		MemoryLimit: cfg.Resources.MemoryMB * 1024 * 1024,
		Stdout:      opts.Stdout,
	})
}
