package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
)

var balanceCmd = &cobra.Command{
	Use:   "balance FILE",
	Short: "Show task counts per life domain and flag neglected domains",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

func init() {
	balanceCmd.Flags().Bool("fail-on-neglect", false, "exit 1 when any domain is neglected")
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	b, err := composeFromFile(args[0])
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		if err := output.JSON(os.Stdout, b.Domains); err != nil {
			return err
		}
	case output.FormatCompact:
		output.BalanceCompact(os.Stdout, b.Domains)
	default:
		output.BalanceTable(os.Stdout, b.Domains)
	}

	if failOn, _ := cmd.Flags().GetBool("fail-on-neglect"); failOn && len(b.NeglectedDomains) > 0 {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
