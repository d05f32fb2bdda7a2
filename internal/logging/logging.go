package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}

// RunContext returns a provider that stamps every record with a per-process
// run id, so lines from one invocation can be correlated in Graylog.
func RunContext() (runID string, provider ContextProvider) {
	runID = uuid.NewString()
	attr := slog.String("run", runID)
	return runID, func() []slog.Attr {
		return []slog.Attr{attr}
	}
}
