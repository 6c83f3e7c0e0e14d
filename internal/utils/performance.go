package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// slowStage is the duration above which a stage is logged at warn level
const slowStage = 30 * time.Second

// StageTimer provides a defer-friendly way to log how long a pipeline stage took.
//
// Usage:
//
//	done := utils.StageTimer("scan", log)
//	defer done()
func StageTimer(stage string, log zerolog.Logger) func() time.Duration {
	start := time.Now()

	return func() time.Duration {
		duration := time.Since(start)

		event := log.Debug()
		if duration > slowStage {
			event = log.Warn()
		}
		event.
			Str("stage", stage).
			Dur("duration_ms", duration).
			Msg("Stage completed")

		return duration
	}
}
