package config

import "fmt"

// migrate upgrades a config from its current version to CurrentVersion.
// Each migration function transforms the config one version forward.
// Returns an error if the config version is newer than this binary supports.
func migrate(cfg *Config) error {
	if cfg.Version == CurrentVersion {
		return nil
	}
	if cfg.Version > CurrentVersion {
		return fmt.Errorf(
			"%w: config version %d is newer than supported version %d (upgrade keepbrief)",
			ErrInvalid, cfg.Version, CurrentVersion,
		)
	}
	if cfg.Version < 1 {
		return fmt.Errorf("%w: config version %d is invalid", ErrInvalid, cfg.Version)
	}

	for cfg.Version < CurrentVersion {
		fn, ok := migrations[cfg.Version]
		if !ok {
			return fmt.Errorf("%w: no migration path from version %d", ErrInvalid, cfg.Version)
		}
		if err := fn(cfg); err != nil {
			return fmt.Errorf("migrating config from v%d: %w", cfg.Version, err)
		}
	}

	return nil
}

// migrations maps each version to the function that migrates it to the next version.
// The migration function must increment cfg.Version after a successful migration.
var migrations = map[int]func(*Config) error{
	1: migrateV1ToV2,
}

// migrateV1ToV2 adds the duplicates, brief.vague_preview, notify and staleness
// sections that v1 files predate. Values already present are kept.
func migrateV1ToV2(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	def := NewDefault()
	if cfg.Duplicates.Similarity == "" {
		cfg.Duplicates = def.Duplicates
	}
	if cfg.Brief.TopN == 0 {
		cfg.Brief.TopN = def.Brief.TopN
	}
	if cfg.Brief.VaguePreview == 0 {
		cfg.Brief.VaguePreview = def.Brief.VaguePreview
	}
	if cfg.Staleness.SaturationDays == 0 {
		cfg.Staleness = def.Staleness
	}
	if cfg.Notify.MaxLength == 0 {
		cfg.Notify = def.Notify
	}
	if cfg.Extractor.Model == "" {
		cfg.Extractor = def.Extractor
	}
	if cfg.Notes.ChunkSize == 0 {
		cfg.Notes.ChunkSize = def.Notes.ChunkSize
	}
	cfg.Version = 2
	return nil
}
