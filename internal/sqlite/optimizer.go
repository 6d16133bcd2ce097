package sqlite

import (
	"context"
	"github.com/myrjola/caselink/internal/errors"
	"log/slog"
	"time"
)

// Close runs PRAGMA optimize and closes both connection pools.
// See https://www.sqlite.org/pragma.html#pragma_optimize, recommended before closing short-lived connections.
func (db *Database) Close(ctx context.Context) error {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		err = errors.Wrap(err, "optimize database")
		db.logger.LogAttrs(ctx, slog.LevelWarn, "failed to optimize database", errors.SlogError(err))
	} else {
		db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
	}
	var errs []error
	// Closing the reader first keeps a shared in-memory database alive until the writer is done.
	if err := db.ReadOnly.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close read database"))
	}
	if err := db.ReadWrite.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close read-write database"))
	}
	return errors.Join(errs...)
}
