package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// layer is one line of the order output.
type layer struct {
	Layer int      `yaml:"layer"`
	Units []string `yaml:"units"`
}

func newOrderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print the declaration order of the classes",
		Long: `Load the design and print its units in declaration order. Units of
one layer do not depend on each other and may be declared in any order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.open()
			if err != nil {
				return err
			}
			o, err := ws.Order()
			if err != nil {
				return err
			}
			out := make([]layer, 0, len(o.Layers))
			for i, l := range o.Layers {
				names := make([]string, 0, len(l))
				for _, id := range l {
					names = append(names, qualified(ws.Graph(), id))
				}
				out = append(out, layer{Layer: i, Units: names})
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
