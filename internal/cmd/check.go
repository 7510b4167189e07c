package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the design without writing files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.open()
			if err != nil {
				return err
			}
			if _, err := ws.Order(); err != nil {
				return err
			}
			g := ws.Graph()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d classes, %d associations\n",
				a.cfg.Design, len(g.Classes()), len(g.Associations()))
			return nil
		},
	}
}
