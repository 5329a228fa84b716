package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/archive"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [EXPORT]",
	Short: "Rebuild the brief whenever the Keep export changes",
	Long: `Builds the brief once, then watches the export (or the --tasks file) and
rebuilds it every time a note file is written. Use --notify to deliver every
rebuilt brief. Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("tasks", "", "saved task records (from 'keepbrief extract')")
	watchCmd.Flags().Bool("notify", false, "send every rebuilt brief to Telegram")
	watchCmd.Flags().Bool("no-archive", false, "do not write the run archive")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	tasksFile, _ := cmd.Flags().GetString("tasks")
	src, err := resolveSource(args, tasksFile)
	if err != nil {
		return err
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

	run := briefRun{cfg: cfg, log: log, command: "watch", stdout: os.Stdout, stderr: os.Stderr}
	run.notify, _ = cmd.Flags().GetBool("notify")
	run.noArchive, _ = cmd.Flags().GetBool("no-archive")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run.once(ctx, src); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// Rebuilds run on this goroutine, one at a time; events during a rebuild
	// collapse into a single pending one.
	changed := make(chan struct{}, 1)
	w, err := watcher.ForExport(src.watchPath(), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, watcher.WithIgnore(archive.FilePatterns()...))
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer w.Close()

	go w.Run(ctx, func(watchErr error) {
		fmt.Fprintf(os.Stderr, "Warning: file watcher: %v\n", watchErr)
	})

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			clearScreen()
			run.cfg = reloadConfig(cfg)
			if err := run.once(ctx, src); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}
}

// reloadConfig re-reads the config between rebuilds, keeping the previous
// one when the file is missing or broken.
func reloadConfig(prev *config.Config) *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: reloading config: %v\n", err)
		return prev
	}
	return cfg
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
