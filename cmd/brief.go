package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/keepbrief/internal/archive"
	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
	"github.com/twiced-technology-gmbh/keepbrief/internal/notify"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
)

const defaultPreviewWidth = 80

var briefCmd = &cobra.Command{
	Use:   "brief [EXPORT]",
	Short: "Build the priority brief from a Keep export",
	Long: `Loads a Google Keep Takeout export (a .json file or a directory of them),
extracts tasks, scores and ranks them, and prints the brief.

With --tasks, saved task records are used instead of calling the extraction
service. When an export is given as well, the records are replayed against it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrief,
}

func init() {
	briefCmd.Flags().String("tasks", "", "saved task records (from 'keepbrief extract')")
	briefCmd.Flags().Bool("notify", false, "send the brief to Telegram")
	briefCmd.Flags().Bool("preview", false, "print the notification message rendered as markdown (to stderr with --json)")
	briefCmd.Flags().Bool("no-archive", false, "do not write the run archive")
	rootCmd.AddCommand(briefCmd)
}

// briefRun holds what a brief run needs besides the source.
type briefRun struct {
	cfg       *config.Config
	log       *logging.Logger
	command   string
	notify    bool
	preview   bool
	noArchive bool
	stdout    io.Writer
	// stderr receives the preview when stdout carries JSON.
	stderr io.Writer
}

func runBrief(cmd *cobra.Command, args []string) error {
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

	run := briefRun{cfg: cfg, log: log, command: "brief", stdout: os.Stdout, stderr: os.Stderr}
	run.notify, _ = cmd.Flags().GetBool("notify")
	run.preview, _ = cmd.Flags().GetBool("preview")
	run.noArchive, _ = cmd.Flags().GetBool("no-archive")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run.once(ctx, src)
}

// once composes, prints, optionally delivers and archives one brief.
func (r briefRun) once(ctx context.Context, src source) error {
	b, in, err := composeBrief(ctx, r.cfg, r.log, src)
	if err != nil {
		return err
	}

	if err := r.print(b, outputFormat()); err != nil {
		return err
	}

	var notifyErr error
	notified := false
	if r.notify {
		notifyErr = r.send(ctx, b)
		notified = notifyErr == nil
	}

	if !r.noArchive {
		a := archive.New(outDir())
		entry := archive.NewRunEntry(b, r.command, src.String(), notified)
		if err := a.Record(ctx, b, in.FailedNotes, entry); err != nil {
			r.log.WithRun(b.RunID).Warn("archiving run failed", "error", err.Error())
		} else {
			r.log.WithRun(b.RunID).Debug("run archived", "path", a.AnalysisPath())
		}
	}

	return notifyErr
}

func (r briefRun) print(b brief.Brief, format output.Format) error {
	previewTo := r.stdout
	switch format {
	case output.FormatJSON:
		if err := output.JSON(r.stdout, b); err != nil {
			return err
		}
		previewTo = r.stderr
	case output.FormatCompact:
		output.BriefCompact(r.stdout, b)
	default:
		output.BriefTable(r.stdout, b)
	}

	if r.preview {
		rendered, err := output.RenderMarkdown(output.BriefMarkdown(b), terminalWidth())
		if err != nil {
			return err
		}
		fmt.Fprint(previewTo, rendered)
	}
	return nil
}

func (r briefRun) send(ctx context.Context, b brief.Brief) error {
	tg, err := notify.NewTelegram(
		viper.GetString(keyTelegramToken),
		viper.GetString(keyTelegramChat),
		r.cfg,
		notify.WithLogger(r.log.WithRun(b.RunID).WithPhase("notify")),
	)
	if err != nil {
		return err
	}
	return tg.Send(ctx, output.BriefMarkdown(b))
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultPreviewWidth
	}
	return w
}
