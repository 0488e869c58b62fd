package ical

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appLog "github.com/renattele/itis-schedule/internal/log"
)

// WriteFiles writes one <group>.ics per calendar into dir, creating it
// as needed. Existing files are overwritten: every run is a full
// regeneration.
func WriteFiles(dir string, calendars map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", dir, err)
	}

	for group, body := range calendars {
		path := filepath.Join(dir, Filename(group))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		appLog.Info("calendar written", "path", path, "bytes", len(body))
	}
	return nil
}

// Filename maps a group identifier to its output file name. Path
// separators are flattened so a malformed group id cannot escape the
// output directory.
func Filename(group string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(group)
	return safe + ".ics"
}
