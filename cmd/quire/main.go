// cmd/quire/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quire/internal/logging"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config  string
	root    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "quire",
		Short:         "quire builds static sites from markdown",
		Long:          `quire turns a tree of markdown files with front matter into a static site, and serves it with incremental rebuilds and live reload while you write.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(os.Stderr, flags.verbose)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		},
	}

	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "site.yaml", "path to the config file, relative to the root")
	root.PersistentFlags().StringVarP(&flags.root, "root", "r", ".", "directory containing the site")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newInitCmd())
	root.AddCommand(newNewCmd(flags))
	root.AddCommand(newBuildCmd(flags))
	root.AddCommand(newServeCmd(flags))
	return root
}
