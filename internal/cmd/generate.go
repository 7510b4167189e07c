package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the sources of every class in the design",
		Long: `Load the design and write one file set per class, plus the project
files of the backend. Files whose content did not change are left alone
unless --force is given.

Examples:
  casegen generate
  casegen generate --backend go --package example.com/shop
  casegen generate --target build/gen --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, report, err := a.generate(cmd.Context(), force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range report.Written {
				fmt.Fprintf(out, "wrote %s\n", p)
			}
			for _, p := range report.Removed {
				fmt.Fprintf(out, "removed %s\n", p)
			}
			fmt.Fprintf(out, "%d written, %d unchanged, %d removed\n",
				len(report.Written), len(report.Unchanged)+len(report.Skipped), len(report.Removed))
			if len(report.Failures) > 0 {
				return fmt.Errorf("%w: %w", errFailures, report.Err())
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&force, "force", false, "Rewrite files that are up to date")
	f.Int("workers", 0, "Number of files rendered concurrently")
	f.String("package", "", "Import path of the generated package")
	f.String("header", "", "Header comment of every generated file")
	f.String("go-version", "", "Go version of the generated go.mod")
	return cmd
}
