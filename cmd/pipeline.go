package cmd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/twiced-technology-gmbh/keepbrief/internal/archive"
	"github.com/twiced-technology-gmbh/keepbrief/internal/brief"
	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/extract"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
	"github.com/twiced-technology-gmbh/keepbrief/internal/notes"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// source names where a run's tasks come from: a Keep export, a saved task
// file, or both (the saved records are replayed against the export).
type source struct {
	export    string
	tasksFile string
}

// String describes the source for the run log.
func (s source) String() string {
	switch {
	case s.export != "" && s.tasksFile != "":
		return s.export + " (replay " + s.tasksFile + ")"
	case s.export != "":
		return s.export
	default:
		return s.tasksFile
	}
}

// watchPath is the file or directory to watch for changes.
func (s source) watchPath() string {
	if s.export != "" {
		return s.export
	}
	return s.tasksFile
}

// resolveSource picks the export from the argument or KEEP_DATA_PATH.
func resolveSource(args []string, tasksFile string) (source, error) {
	src := source{tasksFile: tasksFile}
	if len(args) > 0 {
		src.export = args[0]
	} else if tasksFile == "" {
		src.export = viper.GetString(keyKeepDataPath)
	}
	if src.export == "" && src.tasksFile == "" {
		return source{}, clierr.New(clierr.InvalidInput,
			"no notes given: pass an export path, --tasks FILE, or set KEEP_DATA_PATH")
	}
	return src, nil
}

// loadInput turns a source into composer input, running extraction when an
// export is given.
func loadInput(ctx context.Context, cfg *config.Config, log *logging.Logger, src source) (brief.Input, error) {
	var saved *task.File
	if src.tasksFile != "" {
		f, err := task.ReadFile(src.tasksFile)
		if err != nil {
			return brief.Input{}, err
		}
		saved = f
	}

	if src.export == "" {
		return brief.Input{
			NotesScanned: saved.NotesScanned,
			Tasks:        saved.Tasks,
			FailedNotes:  saved.FailedNotes,
			Ideas:        saved.Ideas,
			References:   saved.References,
		}, nil
	}

	res, err := runExtraction(ctx, cfg, log, src.export, saved)
	if err != nil {
		return brief.Input{}, err
	}
	return brief.Input{
		NotesScanned: res.NotesScanned,
		Tasks:        res.Tasks,
		FailedNotes:  res.FailedNotes(),
		Ideas:        res.Ideas,
		References:   res.References,
	}, nil
}

// runExtraction loads the export and extracts tasks from it. With saved
// records the extraction is replayed instead of calling the service.
func runExtraction(ctx context.Context, cfg *config.Config, log *logging.Logger, export string, saved *task.File) (extract.Result, error) {
	start := time.Now()
	ns, err := notes.Load(export, notes.Options{
		ExcludeLabels:   cfg.Notes.ExcludeLabels,
		IncludeArchived: cfg.Notes.IncludeArchived,
		SkipFiles:       archive.FilePatterns(),
		Logger:          log.WithPhase("load"),
	})
	if err != nil {
		return extract.Result{}, err
	}
	if len(ns) == 0 {
		return extract.Result{}, clierr.Newf(clierr.NotesNotFound, "no notes found in %s", export).
			WithDetails(map[string]any{"path": export})
	}
	log.WithPhase("load").Debug("notes loaded", "notes", len(ns), "elapsed", time.Since(start).String())

	var ex extract.Extractor
	if saved != nil {
		ex = extract.NewStatic(saved)
	} else {
		openai, err := extract.NewOpenAI(viper.GetString(keyOpenAIKey), cfg,
			extract.WithModel(viper.GetString(keyOpenAIModel)),
			extract.WithOpenAILogger(log.WithPhase("extract")),
		)
		if err != nil {
			return extract.Result{}, err
		}
		ex = openai
	}

	return extract.Run(ctx, ex, ns, extract.Options{
		ChunkSize:   cfg.Notes.ChunkSize,
		Concurrency: cfg.Extractor.Concurrency,
		Logger:      log,
	})
}

// composeBrief runs the whole pipeline for src.
func composeBrief(ctx context.Context, cfg *config.Config, log *logging.Logger, src source) (brief.Brief, brief.Input, error) {
	now, err := referenceTime()
	if err != nil {
		return brief.Brief{}, brief.Input{}, err
	}

	// The composer tags its own lines with the run ID.
	runID := uuid.NewString()
	in, err := loadInput(ctx, cfg, log.WithRun(runID), src)
	if err != nil {
		return brief.Brief{}, brief.Input{}, err
	}

	c, err := brief.NewComposer(cfg,
		brief.WithLogger(log),
		brief.WithRunID(func() string { return runID }),
	)
	if err != nil {
		return brief.Brief{}, brief.Input{}, err
	}
	return c.Compose(in, now), in, nil
}

// composeFromFile composes a brief from a saved task file.
func composeFromFile(path string) (brief.Brief, error) {
	cfg, err := loadConfig()
	if err != nil {
		return brief.Brief{}, err
	}
	log, err := newLogger()
	if err != nil {
		return brief.Brief{}, err
	}
	defer log.Close()

	b, _, err := composeBrief(context.Background(), cfg, log, source{tasksFile: path})
	return b, err
}
