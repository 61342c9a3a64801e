package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/session"
)

// exec-session is the in-container payload: the run command mounts the
// harness binary into the session container and invokes this. Secrets
// arrive through the container environment, so none are resolved here.
func newExecSessionCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:    "exec-session",
		Short:  "Run a single benchmark session in the current environment",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			outcome, err := session.Run(context.Background(), &session.Opts{
				Config: cfg,
				TaskID: taskID,
				Stdout: os.Stdout,
				Stderr: os.Stderr,
			})
			if err != nil {
				return err
			}
			// The session's exit code is the container's exit code.
			os.Exit(outcome.ExitCode)
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task ID to evaluate")
	cmd.MarkFlagRequired("task-id")
	return cmd
}
