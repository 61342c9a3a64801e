package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/result"
	"github.com/kestrelab/tau2ctl/internal/runner"
	"github.com/kestrelab/tau2ctl/internal/usage"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [run-dir]",
		Short: "Re-score an existing run from its benchmark artifacts",
		Long:  "Walk a run directory and re-parse each session's benchmark result artifacts, updating meta.json with fresh reward, token, and cost figures.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			runDir := filepath.Join(cfg.Results.Dir, "latest")
			if len(args) > 0 {
				runDir = args[0]
			}
			runDir, err = filepath.EvalSymlinks(runDir)
			if err != nil {
				return fmt.Errorf("resolving run dir: %w", err)
			}

			var pricing *usage.PricingTable
			if cfg.Pricing.Table != "" {
				pricing, err = usage.LoadPricing(cfg.Pricing.Table)
				if err != nil {
					return fmt.Errorf("loading pricing table: %w", err)
				}
			}

			var metaFiles []string
			err = filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return nil
				}
				if info.Name() == "meta.json" {
					metaFiles = append(metaFiles, path)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("walking run dir: %w", err)
			}
			if len(metaFiles) == 0 {
				return fmt.Errorf("no meta.json files found in %s", runDir)
			}

			for _, metaPath := range metaFiles {
				sessionDir := filepath.Dir(metaPath)
				meta, err := result.ReadSessionMeta(metaPath)
				if err != nil {
					logrus.WithError(err).Warnf("skipping %s", metaPath)
					continue
				}

				oldReward := meta.Reward
				oldCost := meta.TotalCostUSD
				runner.EnrichFromArtifacts(meta, filepath.Join(sessionDir, "data"), pricing)

				if err := result.WriteSessionMeta(sessionDir, meta); err != nil {
					logrus.WithError(err).Warn("failed to write meta")
					continue
				}
				fmt.Printf("task %s trial %d: reward %.2f → %.2f, cost $%.2f → $%.2f\n",
					meta.TaskID, meta.Trial, oldReward, meta.Reward, oldCost, meta.TotalCostUSD)
			}
			return nil
		},
	}
}
