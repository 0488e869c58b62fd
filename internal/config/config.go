package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. Every field can be
// overridden by the corresponding CLI flag.
type Config struct {
	// SpreadsheetID is the Google Sheets document ID of the schedule sheet.
	SpreadsheetID string `yaml:"spreadsheet_id"`

	// GID is the sheet/tab ID within the document ("0" is the first tab).
	GID string `yaml:"gid"`

	// Format is the export format to request: "csv" or "xlsx".
	// XLSX carries merged-cell information, which the schedule sheet uses
	// for lectures shared between group columns.
	Format string `yaml:"format"`

	// OutputDir is where per-group .ics files are written.
	OutputDir string `yaml:"output_dir"`

	// SemesterStart / SemesterEnd bound event generation, inclusive,
	// in YYYY-MM-DD form.
	SemesterStart string `yaml:"semester_start"`
	SemesterEnd   string `yaml:"semester_end"`

	// Timezone is the IANA timezone of the institution (e.g. "Europe/Moscow").
	// All event times are civil times in this single zone.
	Timezone string `yaml:"timezone"`

	// OmitType disables the "[Type] " prefix on event summaries.
	OmitType bool `yaml:"omit_type"`

	// ChoicesID / ChoicesGID identify the optional per-student elective
	// choices sheet. Student calendars are generated only when ChoicesID
	// is non-empty.
	ChoicesID  string `yaml:"choices_id"`
	ChoicesGID string `yaml:"choices_gid"`

	// Refresh is a cron-style schedule string (e.g. "0 6 * * *"). When
	// set, the tool runs as a daemon and regenerates on that schedule.
	Refresh string `yaml:"refresh"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		SpreadsheetID: "13CqvyFsOa5Z5LYCfMCz4IyAnuTIcjYqI0ARgt8-5MpQ",
		GID:           "0",
		Format:        "csv",
		OutputDir:     "./calendars",
		SemesterStart: "2026-02-09",
		SemesterEnd:   "2026-06-06",
		Timezone:      "Europe/Moscow",
		ChoicesGID:    "0",
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.SpreadsheetID == "" {
		c.SpreadsheetID = def.SpreadsheetID
	}
	if c.GID == "" {
		c.GID = def.GID
	}
	switch c.Format {
	case "csv", "xlsx":
	default:
		c.Format = def.Format
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.SemesterStart == "" {
		c.SemesterStart = def.SemesterStart
	}
	if c.SemesterEnd == "" {
		c.SemesterEnd = def.SemesterEnd
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.ChoicesGID == "" {
		c.ChoicesGID = def.ChoicesGID
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600,
// parent directory created) and returned, so a first run leaves a file
// the user can edit.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".itis-schedule-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
