package main

import (
	"fmt"
	"os"

	"github.com/mantralabs/japa-api/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "japa-configure",
		Short: "Configuration tool for the Japa API",
		Long:  "CLI tool for managing the ad admission policy and checking backing services",
	}

	rootCmd.AddCommand(commands.NewAdPolicyCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
