package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
)

var dupesCmd = &cobra.Command{
	Use:   "dupes FILE",
	Short: "List groups of duplicate tasks in a task file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDupes,
}

func init() {
	rootCmd.AddCommand(dupesCmd)
}

func runDupes(_ *cobra.Command, args []string) error {
	b, err := composeFromFile(args[0])
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, b.Duplicates)
	case output.FormatCompact:
		output.DupesCompact(os.Stdout, b.Duplicates)
	default:
		output.DupesTable(os.Stdout, b.Duplicates)
	}
	return nil
}
