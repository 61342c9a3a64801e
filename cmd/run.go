package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/image"
	"github.com/kestrelab/tau2ctl/internal/report"
	"github.com/kestrelab/tau2ctl/internal/result"
	"github.com/kestrelab/tau2ctl/internal/runner"
	"github.com/kestrelab/tau2ctl/internal/secret"
	"github.com/kestrelab/tau2ctl/internal/usage"
)

var (
	flagTaskIDs  []string
	flagTrials   int
	flagEngine   string
	flagTimeout  int
	flagParallel int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute benchmark sessions",
		RunE:  runSessions,
	}
	cmd.Flags().StringSliceVar(&flagTaskIDs, "task-ids", nil, "override task IDs")
	cmd.Flags().IntVar(&flagTrials, "trials", 0, "override trial count")
	cmd.Flags().StringVar(&flagEngine, "engine", "", "execution engine (docker, local)")
	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "override session timeout in seconds")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max concurrent sessions")
	return cmd
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := applyRunOverrides(cfg); err != nil {
		return err
	}

	ctx := context.Background()

	var imageTag string
	if cfg.Engine == config.EngineDocker {
		imageTag, err = image.Ensure(ctx, &cfg.Image)
		if err != nil {
			return fmt.Errorf("preparing image: %w", err)
		}
	}

	store := secret.NewStore(cfg.Secrets.Dir)
	secretsEnv, err := store.ResolveAll(cfg.Secrets.Names)
	if err != nil {
		return fmt.Errorf("resolving secrets: %w", err)
	}
	if cfg.Secrets.EnvFile != "" {
		extra, err := secret.ParseEnvFile(cfg.Secrets.EnvFile)
		if err != nil {
			return fmt.Errorf("reading secrets env file: %w", err)
		}
		for k, v := range extra {
			secretsEnv[k] = v
		}
	}

	var pricing *usage.PricingTable
	if cfg.Pricing.Table != "" {
		pricing, err = usage.LoadPricing(cfg.Pricing.Table)
		if err != nil {
			return fmt.Errorf("loading pricing table: %w", err)
		}
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	runID := uuid.NewString()
	manifest := &result.Manifest{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Engine:    string(cfg.Engine),
		Image:     imageTag,
		Domain:    cfg.Eval.Domain,
		Agent:     cfg.Eval.Agent,
		AgentLLM:  cfg.Eval.AgentLLM,
		UserLLM:   cfg.Eval.UserLLM,
		TaskIDs:   cfg.Eval.TaskIDs,
		Trials:    cfg.Eval.Trials,
	}
	if err := result.WriteManifest(runDir, manifest); err != nil {
		return err
	}

	okLine := color.New(color.FgGreen).PrintfFunc()
	errLine := color.New(color.FgRed).PrintfFunc()

	runOne := func(taskID string, trial int) error {
		fmt.Printf("Running %s task %s (trial %d/%d)...\n", cfg.Eval.Domain, taskID, trial, cfg.Eval.Trials)
		meta, err := runner.RunSession(ctx, &runner.SessionOpts{
			Config:     cfg,
			ConfigPath: cfgFile,
			RunID:      runID,
			TaskID:     taskID,
			Trial:      trial,
			RunDir:     runDir,
			ImageTag:   imageTag,
			SecretsEnv: secretsEnv,
			Pricing:    pricing,
			Stdout:     os.Stdout,
		})
		if err != nil {
			return fmt.Errorf("task %s trial %d: %w", taskID, trial, err)
		}
		if meta.ExitReason == "completed" {
			okLine("  %s (reward: %.2f, duration: %ds)\n", meta.ExitReason, meta.Reward, meta.DurationS)
		} else {
			errLine("  %s (exit %d, duration: %ds)\n", meta.ExitReason, meta.ExitCode, meta.DurationS)
		}
		return nil
	}

	if flagParallel > 1 {
		var jobs []runner.Job
		for _, taskID := range cfg.Eval.TaskIDs {
			for trial := 1; trial <= cfg.Eval.Trials; trial++ {
				taskID, trial := taskID, trial
				jobs = append(jobs, func() error { return runOne(taskID, trial) })
			}
		}
		for _, err := range runner.RunPool(flagParallel, jobs) {
			errLine("  ERROR: %v\n", err)
		}
	} else {
		for _, taskID := range cfg.Eval.TaskIDs {
			for trial := 1; trial <= cfg.Eval.Trials; trial++ {
				if err := runOne(taskID, trial); err != nil {
					errLine("  ERROR: %v\n", err)
				}
			}
		}
	}

	fmt.Println("\n--- Results ---")
	return report.Generate(runDir, "table", os.Stdout)
}

func applyRunOverrides(cfg *config.Config) error {
	if len(flagTaskIDs) > 0 {
		cfg.Eval.TaskIDs = flagTaskIDs
	}
	if flagTrials > 0 {
		cfg.Eval.Trials = flagTrials
	}
	if flagEngine != "" {
		engine := config.Engine(flagEngine)
		if engine != config.EngineDocker && engine != config.EngineLocal {
			return fmt.Errorf("engine must be %q or %q, got %q", config.EngineDocker, config.EngineLocal, flagEngine)
		}
		cfg.Engine = engine
	}
	if flagTimeout > 0 {
		cfg.Resources.TimeoutS = flagTimeout
	}
	return nil
}
