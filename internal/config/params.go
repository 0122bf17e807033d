package config

import "os"

// Settings holds the handful of knobs mahoundo's session context needs,
// registered against a Config so they can come from a config file or a
// `-param` override: the session's max-resident-record budget,
// persistence flag, codec page size, and where the scratch allocator
// should create its files.
type Settings struct {
	MaxMemoryUndo   int
	Persistent      bool
	DefaultPageSize int
	ScratchDir      string
}

// RegisterUndoParams registers the undo log's knobs on cfg with the
// session context's own defaults, and returns the struct whose fields
// Config mutates in place as values are applied.
func RegisterUndoParams(cfg *Config) *Settings {
	s := &Settings{}
	cfg.IntParam(&s.MaxMemoryUndo, "max-memory-undo", 1000, Default)
	cfg.BoolParam(&s.Persistent, "persistent", true, Default)
	cfg.IntParam(&s.DefaultPageSize, "default-page-size", 4096, Default)
	cfg.StringParam(&s.ScratchDir, "scratch-dir", os.TempDir(), Default)
	return s
}
