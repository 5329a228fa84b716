package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

var extractCmd = &cobra.Command{
	Use:   "extract EXPORT",
	Short: "Extract tasks from a Keep export and save them",
	Long: `Runs task extraction over a Google Keep Takeout export and writes the
records to a file (JSON, or YAML for .yml/.yaml). The file can be fed to
brief, score, dupes and balance without calling the extraction service again.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringP("output", "o", "tasks.json", "file to write the task records to")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return clierr.New(clierr.InvalidInput, "--output must not be empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := runExtraction(ctx, cfg, log, args[0], nil)
	if err != nil {
		return err
	}

	if err := task.WriteFile(path, res.File()); err != nil {
		return fmt.Errorf("writing task records: %w", err)
	}

	summary := map[string]any{
		"output":         path,
		"notes_scanned":  res.NotesScanned,
		"records":        len(res.Tasks),
		"ideas":          len(res.Ideas),
		"references":     len(res.References),
		"failed_notes":   res.FailedNotes(),
		"failures_count": len(res.Failures),
	}
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, summary)
	}

	output.Messagef(os.Stdout, "Extracted %d records, %d ideas and %d references from %d notes into %s",
		len(res.Tasks), len(res.Ideas), len(res.References), res.NotesScanned, path)
	if len(res.Failures) > 0 {
		output.Messagef(os.Stderr, "Warning: extraction failed for %d note(s)", len(res.Failures))
	}
	return nil
}
