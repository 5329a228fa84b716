package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

var scoreCmd = &cobra.Command{
	Use:   "score FILE",
	Short: "Rank all tasks in a task file with their score breakdowns",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().IntP("limit", "n", 0, "show at most N tasks (0 = all)")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	b, err := composeFromFile(args[0])
	if err != nil {
		return err
	}

	ranked := b.Ranked
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	if ranked == nil {
		ranked = []task.Scored{}
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, ranked)
	case output.FormatCompact:
		output.ScoreCompact(os.Stdout, ranked)
	default:
		output.ScoreTable(os.Stdout, ranked)
	}
	if b.Summary.TasksSkipped > 0 {
		output.Messagef(os.Stderr, "Warning: %d task(s) could not be scored (see log)", b.Summary.TasksSkipped)
	}
	return nil
}
