// Package main provides the entry point for the gitstats CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/littlematchboy/gitstats/cmd/gitstats/commands"
	"github.com/littlematchboy/gitstats/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := commands.NewRootCommand()
	rootCmd.AddCommand(commands.NewVersionCommand())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
