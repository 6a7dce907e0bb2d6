// Package main is the entry point for the promptbench CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/runoshun/promptbench/internal/app"
	"github.com/runoshun/promptbench/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	container, err := app.New(cwd)
	if err != nil {
		// A broken config file must not lock out help, version and config template.
		if canRunWithoutContainer(args) {
			return execute(nil, args)
		}
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() { _ = container.Close() }()

	return execute(container, args)
}

func execute(c *app.Container, args []string) error {
	rootCmd := cli.NewRootCommand(c, version)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func canRunWithoutContainer(args []string) bool {
	if len(args) >= 2 && args[0] == "config" && args[1] == "template" {
		return true
	}
	if len(args) > 0 && (args[0] == "help" || args[0] == "completion") {
		return true
	}
	for _, arg := range args {
		if arg == "--version" || arg == "-v" || arg == "--help" || arg == "-h" || strings.HasPrefix(arg, "--help=") {
			return true
		}
	}
	return false
}
