package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the root command so tests can exercise the CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tsoapi",
		Short: "Generate OpenAPI documents from routing-controllers TypeScript sources",
		Long: "tsoapi statically analyses TypeScript controllers declared with routing-controllers " +
			"decorators and writes an OpenAPI 3 document describing their routes, parameters and schemas.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (default: discovered in the working directory)")
	cmd.PersistentFlags().String("cwd", "", "Working directory (default: current directory)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newDumpCmd(), newValidateCmd(), newVersionCmd()} {
		cmd.AddCommand(sub)
	}
	setUsageErrors(cmd)

	return cmd
}

// setUsageErrors converts flag parsing failures into usage errors that
// include the command's help text.
func setUsageErrors(cmd *cobra.Command) {
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})
	for _, sub := range cmd.Commands() {
		setUsageErrors(sub)
	}
}

// usageArgs wraps a positional-argument validator so its failure is a
// usage error.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return newUsageError(fmt.Sprintf("%v\n\n%s", err, cmd.UsageString()))
		}
		return nil
	}
}

// newLogger returns a text logger on w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tsoapi version",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "tsoapi", version)
			return err
		},
	}
}
