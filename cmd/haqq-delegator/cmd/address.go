package cmd

import (
	"fmt"

	"github.com/tessellated-io/haqq-delegator/coding"

	"github.com/spf13/cobra"
)

func newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address <0x address>",
		Short: "Print the HAQQ account for an Ethereum address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := rt.cfg.Chain()
			if err != nil {
				return err
			}

			address, err := coding.ToNativeAddress(args[0], chain.AccountPrefix)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), address)
			return nil
		},
	}
}
