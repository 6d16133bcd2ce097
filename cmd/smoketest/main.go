package main

import (
	"context"
	"github.com/joho/godotenv"
	"github.com/myrjola/caselink/internal/config"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/logging"
	"github.com/myrjola/caselink/internal/repositories"
	"github.com/myrjola/caselink/internal/sqlite"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// checkDatabase opens the configured database, synchronizes the schema and reads every case.
func checkDatabase(ctx context.Context, cfg config.Config, logger *slog.Logger) (int, error) {
	db, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return 0, errors.Wrap(err, "open database")
	}
	defer func() {
		if closeErr := db.Close(ctx); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()
	cases, err := repositories.NewCaseRepository(db, logger).ListCases(ctx, 0)
	if err != nil {
		return 0, errors.Wrap(err, "list cases")
	}
	return len(cases), nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "error loading .env", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // cancel is irrelevant on exit
	}
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error loading config", errors.SlogError(err))
		os.Exit(1)
	}
	ctx = logging.WithAttrs(ctx, slog.String("sqlite_url", cfg.SQLiteURL))

	count, err := checkDatabase(ctx, cfg, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error checking database", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Int("cases", count))
}
