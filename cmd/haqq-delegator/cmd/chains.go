package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newChainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List the supported chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := rt.cfg.Registry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOSMOS CHAIN ID\tNAME\tREST\tGRPC")
			for _, chain := range registry.Chains() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", chain.ID, chain.CosmosChainID, chain.Name, chain.RestEndpoint, chain.GrpcEndpoint)
			}
			return w.Flush()
		},
	}
}
