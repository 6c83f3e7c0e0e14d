package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/pairlab/internal/database"
	"github.com/rs/zerolog"
)

// walWarnFrames is the WAL size (in frames) above which a checkpoint is forced
const walWarnFrames = 1000

// DatabaseMaintenanceJob checks integrity and WAL growth of the service databases
type DatabaseMaintenanceJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
}

// NewDatabaseMaintenanceJob creates the job for the given databases, keyed by name
func NewDatabaseMaintenanceJob(databases map[string]*database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		log:       log.With().Str("job", "database_maintenance").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run checks every database. A failed integrity check fails the job;
// a large WAL is truncated.
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			j.log.Warn().Str("database", name).Msg("Database not initialized, skipping")
			continue
		}

		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Database health check failed")
			return fmt.Errorf("database %s failed health check: %w", name, err)
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, walFrames, checkpointed int
		err := db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &walFrames, &checkpointed)
		if err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("Failed to check WAL checkpoint")
			continue
		}

		if walFrames > walWarnFrames {
			j.log.Warn().
				Str("database", name).
				Int("wal_frames", walFrames).
				Msg("WAL is large, truncating")
			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Warn().Err(err).Str("database", name).Msg("WAL truncate failed")
			}
			continue
		}

		j.log.Debug().Str("database", name).Int("wal_frames", walFrames).Msg("Database OK")
	}

	j.log.Info().Int("databases", len(names)).Msg("Database maintenance completed")
	return nil
}
