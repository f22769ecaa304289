// Package a11y reports whether a screen reader is running.
package a11y

import (
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/spf13/afero"
)

// ProcRoot is where process information is read from on Linux.
const ProcRoot = "/proc"

// Detector answers tts.AccessibilityQuery. In auto mode it looks for
// known screen-reader processes every time it is asked.
type Detector struct {
	fs     afero.Fs
	root   string
	mode   string
	names  []string
	logger *log.Logger
}

var _ tts.AccessibilityQuery = (*Detector)(nil)

// NewDetector returns a Detector for mode (auto, on or off) that scans fs
// for the given process names.
func NewDetector(fs afero.Fs, mode string, names []string) *Detector {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	lower := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			lower = append(lower, n)
		}
	}
	return &Detector{
		fs:     fs,
		root:   ProcRoot,
		mode:   mode,
		names:  lower,
		logger: tts.NewLogger("a11y"),
	}
}

// FromConfig builds a Detector from the screen reader settings in cfg.
func FromConfig(cfg tts.Config) *Detector {
	return NewDetector(afero.NewOsFs(), cfg.ScreenReader, cfg.ScreenReaders)
}

// Mode returns the configured detection mode.
func (d *Detector) Mode() string {
	return d.mode
}

// HasActiveSpokenFeedbackService reports whether a screen reader is active.
func (d *Detector) HasActiveSpokenFeedbackService() bool {
	switch d.mode {
	case tts.ScreenReaderOn:
		return true
	case tts.ScreenReaderOff:
		return false
	default:
		return len(d.ActiveServices()) > 0
	}
}

// ActiveServices lists the screen readers found among running processes,
// sorted and without duplicates.
func (d *Detector) ActiveServices() []string {
	if len(d.names) == 0 {
		return nil
	}

	entries, err := afero.ReadDir(d.fs, d.root)
	if err != nil {
		d.logger.Debug("Cannot list processes", "root", d.root, "err", err)
		return nil
	}

	var found []string
	for _, entry := range entries {
		if !entry.IsDir() || !isPID(entry.Name()) {
			continue
		}
		comm, err := afero.ReadFile(d.fs, path.Join(d.root, entry.Name(), "comm"))
		if err != nil {
			// process exited
			continue
		}
		name := strings.ToLower(strings.TrimSpace(string(comm)))
		if slices.Contains(d.names, name) && !slices.Contains(found, name) {
			found = append(found, name)
		}
	}

	slices.Sort(found)
	return found
}

func isPID(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Static is a fixed answer to tts.AccessibilityQuery.
type Static bool

// HasActiveSpokenFeedbackService returns s.
func (s Static) HasActiveSpokenFeedbackService() bool {
	return bool(s)
}
