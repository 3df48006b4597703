// Package state manages the .ralph directory structure and the artifact paths
// written into it.
package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory and file names for the .ralph structure.
const (
	RalphDir          = ".ralph"
	RecordsDir        = "records"
	SettingsFile      = "settings.json"
	LocalSettingsFile = "settings.local.json"
)

// Layout resolves artifact paths relative to a root working directory.
// The zero value resolves paths relative to the current directory.
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// RalphDirPath returns the path to the .ralph directory.
func (l Layout) RalphDirPath() string {
	return filepath.Join(l.Root, RalphDir)
}

// RecordsDirPath returns the path to the iteration records directory.
func (l Layout) RecordsDirPath() string {
	return filepath.Join(l.Root, RalphDir, RecordsDir)
}

// SettingsPath returns the default settings file path.
func (l Layout) SettingsPath() string {
	return filepath.Join(l.Root, RalphDir, SettingsFile)
}

// PromptFilePath returns the per-iteration prompt artifact path used by
// file-delivery agents.
func (l Layout) PromptFilePath(iteration int) string {
	return filepath.Join(l.Root, RalphDir, fmt.Sprintf("prompt_%03d.txt", iteration))
}

// GuardrailLogPath returns the log artifact path for a guardrail run.
func (l Layout) GuardrailLogPath(iteration int, slug string) string {
	return filepath.Join(l.Root, RalphDir, fmt.Sprintf("guardrail_%03d_%s.log", iteration, slug))
}

// RecordPath returns the iteration record path for the given run.
func (l Layout) RecordPath(runID string, iteration int) string {
	return filepath.Join(l.Root, RalphDir, RecordsDir, fmt.Sprintf("%s-%03d.json", runID, iteration))
}

// LocalSettingsPath returns the local override file that sits next to the
// given settings file.
func LocalSettingsPath(settingsPath string) string {
	return filepath.Join(filepath.Dir(settingsPath), LocalSettingsFile)
}

// Ensure creates the .ralph directory structure if it doesn't exist.
// It creates the following directories:
//   - .ralph/
//   - .ralph/records/
//
// The function is idempotent.
func (l Layout) Ensure() error {
	if l.Root != "" {
		if _, err := os.Stat(l.Root); os.IsNotExist(err) {
			return fmt.Errorf("root directory does not exist: %s", l.Root)
		}
	}

	dirs := []string{
		l.RalphDirPath(),
		l.RecordsDirPath(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
