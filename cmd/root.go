package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tau2ctl",
		Short: "Harness for running tau2 benchmark sessions with a pctx sidecar",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "tau2ctl.yaml", "config file path")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	root.AddCommand(newRunCmd())
	root.AddCommand(newExecSessionCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSecretCmd())
	return root
}
