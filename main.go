package main

import (
	"fmt"
	"os"

	"fjacquet/firefly-preimporter/cmd/configcmd"
	"fjacquet/firefly-preimporter/cmd/root"
	"fjacquet/firefly-preimporter/internal/config"
)

func init() {
	// 1. Load .env before any flag default or logger reads the environment
	config.LoadEnv(nil)

	// 2. Initialize root command flags
	root.Init()

	// 3. Add subcommands
	root.Cmd.AddCommand(configcmd.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		if !root.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
