package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsgonest/tsoapi/internal/openapi"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an OpenAPI document",
		Long:  "Load an OpenAPI 3 document (JSON or YAML) and report validation errors.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if err := openapi.ValidateBytes(cmd.Context(), data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
			return err
		},
	}
}
