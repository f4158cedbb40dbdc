package main

import (
	"fmt"

	"github.com/agentx-dev/modelgate/internal/projectconfig"
	"github.com/agentx-dev/modelgate/internal/resultstore"
	"github.com/agentx-dev/modelgate/internal/validation"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [results-dir]",
		Short: "Check result files against the result schema",
		Long: `Validate every result file in a results directory against the result
document schema and list each violation. Exits 1 when any file is invalid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := projectconfig.DefaultResultsDir
			if len(args) == 1 {
				dir = args[0]
			}

			paths, err := resultstore.ListFiles(dir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("%w in %s", resultstore.ErrNoResults, dir)
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, p := range paths {
				violations, err := validation.ValidateResultFile(p)
				if err != nil {
					return err
				}
				if len(violations) == 0 {
					fmt.Fprintf(out, "✓ %s\n", p) //nolint:errcheck
					continue
				}
				invalid++
				fmt.Fprintf(out, "✗ %s\n", p) //nolint:errcheck
				for _, v := range violations {
					fmt.Fprintf(out, "    %s\n", v) //nolint:errcheck
				}
			}

			if invalid > 0 {
				return &TestFailureError{Message: fmt.Sprintf("%d of %d result files failed validation", invalid, len(paths))}
			}
			return nil
		},
	}
}
