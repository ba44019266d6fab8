package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newValidatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validators",
		Short: "List validators on the chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bondedOnly, err := cmd.Flags().GetBool("bonded-only")
			if err != nil {
				return err
			}

			chain, err := rt.cfg.Chain()
			if err != nil {
				return err
			}
			service, closer, err := rt.chainDataService(chain)
			if err != nil {
				return err
			}
			defer closer()

			validators, err := service.ListValidators(cmd.Context())
			if err != nil {
				return err
			}
			if bondedOnly {
				validators = lo.Filter(validators, func(v rpc.Validator, _ int) bool { return v.IsBonded() })
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OPERATOR\tMONIKER\tSTATUS\tJAILED\tTOKENS\tCOMMISSION")
			for _, v := range validators {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n", v.OperatorAddress, v.Moniker, v.Status, v.Jailed, v.Tokens, v.CommissionRate)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("bonded-only", false, "only show bonded validators")
	return cmd
}
