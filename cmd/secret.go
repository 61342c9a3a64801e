package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelab/tau2ctl/internal/config"
	"github.com/kestrelab/tau2ctl/internal/secret"
)

func newSecretCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "secret",
		Short: "Manage named secrets injected into sessions",
	}

	root.AddCommand(&cobra.Command{
		Use:   "set <name> KEY=VALUE [KEY=VALUE...]",
		Short: "Create or replace a named secret",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			store := secret.NewStore(cfg.Secrets.Dir)
			if err := store.Create(args[0], args[1:]); err != nil {
				return err
			}
			fmt.Printf("secret %q stored (%d keys)\n", args[0], len(args)-1)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			names, err := secret.NewStore(cfg.Secrets.Dir).List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no secrets stored")
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	})

	return root
}
