package main

import (
	"os"

	"github.com/Aryanchhabra/DeepResearchAI/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "deepresearch",
	Short: "Deep Research AI: web research with cited, fact-checked answers",
}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
