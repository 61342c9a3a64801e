package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/image"
	"github.com/kestrelab/tau2ctl/internal/secret"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the configured evaluation and stored secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Println("Evaluation:")
			fmt.Printf("  domain:    %s\n", cfg.Eval.Domain)
			fmt.Printf("  agent:     %s\n", cfg.Eval.Agent)
			fmt.Printf("  agent-llm: %s\n", cfg.Eval.AgentLLM)
			fmt.Printf("  user-llm:  %s\n", cfg.Eval.UserLLM)
			fmt.Printf("  task-ids:  %s (trials: %d)\n", strings.Join(cfg.Eval.TaskIDs, ", "), cfg.Eval.Trials)

			tag, err := image.Tag(&cfg.Image)
			if err != nil {
				return err
			}
			fmt.Println("\nExecution:")
			fmt.Printf("  engine:    %s\n", cfg.Engine)
			fmt.Printf("  image:     %s (base: %s)\n", tag, cfg.Image.Base)
			fmt.Printf("  resources: cpu=%.1f mem=%dMB timeout=%ds\n",
				cfg.Resources.CPUs, cfg.Resources.MemoryMB, cfg.Resources.TimeoutS)
			fmt.Printf("  sidecar:   %s %s (ready: %s %s)\n",
				cfg.Sidecar.Command, strings.Join(cfg.Sidecar.Args, " "),
				cfg.Sidecar.Ready.Type, cfg.Sidecar.Ready.Target)

			names, err := secret.NewStore(cfg.Secrets.Dir).List()
			if err != nil {
				return err
			}
			fmt.Println("\nSecrets:")
			if len(names) == 0 {
				fmt.Println("  (none)")
			}
			for _, n := range names {
				fmt.Printf("  - %s\n", n)
			}
			return nil
		},
	}
}
