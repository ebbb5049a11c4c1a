// Package cmd provides the CLI commands for chemidx.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chemidx/chemidx/internal/logging"
	"github.com/chemidx/chemidx/pkg/version"
)

var (
	indexDir  string
	libPath   string
	debugMode bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the chemidx CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chemidx",
		Short: "Chemical structure search engine",
		Long: `chemidx is a persistent, incrementally-updatable search index over
molecules: free-text, name/identifier, exact-structure, fingerprint-
similarity, and substructure search, backed by a native chemistry
toolkit and a lexical inverted index.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("chemidx version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&indexDir, "dir", ".", "Index directory")
	cmd.PersistentFlags().StringVar(&libPath, "lib", "", "Path to the native chemistry toolkit shared library (env CHEMIDX_LIBRARY_PATH)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.chemidx/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled")
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
