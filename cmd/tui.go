package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/archive"
	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/tui"
	"github.com/twiced-technology-gmbh/keepbrief/internal/watcher"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [EXPORT]",
	Short: "Browse the brief interactively",
	Long: `Opens a terminal viewer with tabs for the top priorities, duplicate
groups, domain balance, vague notes and the notification message. The brief
is rebuilt when the export changes on disk, or on demand with 'r'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().String("tasks", "", "saved task records (from 'keepbrief extract')")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	tasksFile, _ := cmd.Flags().GetString("tasks")
	src, err := resolveSource(args, tasksFile)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	load := func() (brief.Brief, error) {
		cfg, err := loadConfig()
		if err != nil {
			return brief.Brief{}, err
		}
		b, _, err := composeBrief(ctx, cfg, log, src)
		return b, err
	}

	model := tui.NewViewer(load)
	p := tea.NewProgram(model, tea.WithAltScreen())

	go startTUIWatcher(ctx, src, p)

	_, err = p.Run()
	return err
}

func startTUIWatcher(ctx context.Context, src source, p *tea.Program) {
	w, err := watcher.ForExport(src.watchPath(), func() {
		p.Send(tui.ReloadMsg{})
	}, watcher.WithIgnore(archive.FilePatterns()...))
	if err != nil {
		return // non-fatal: the viewer works without live refresh
	}
	defer w.Close()
	w.Run(ctx, nil)
}
