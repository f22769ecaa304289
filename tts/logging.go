package tts

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// InitializeLogging configures the default logger. In debug mode output
// goes to stderr at debug level; otherwise to w at info level.
func InitializeLogging(w io.Writer, debugMode bool) {
	if debugMode {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		log.SetTimeFormat(time.TimeOnly)
		log.Debug("Speech logging initialized", "level", "DEBUG")
		return
	}

	log.SetOutput(w)
	log.SetLevel(log.InfoLevel)
}

// NewLogger returns a prefixed child of the default logger.
func NewLogger(prefix string) *log.Logger {
	return log.Default().WithPrefix(prefix)
}
