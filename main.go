package main

import (
	"os"

	"github.com/kestrelab/tau2ctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
