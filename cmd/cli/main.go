package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/caselink/internal/ai"
	"github.com/myrjola/caselink/internal/complexity"
	"github.com/myrjola/caselink/internal/config"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/linking"
	"github.com/myrjola/caselink/internal/logging"
	"github.com/myrjola/caselink/internal/priority"
	"github.com/myrjola/caselink/internal/repositories"
	"github.com/myrjola/caselink/internal/sqlite"
	"github.com/spf13/cobra"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// application holds the services shared by the commands. The database is opened lazily because not every
// command needs it.
type application struct {
	cfg        config.Config
	logger     *slog.Logger
	out        io.Writer
	db         *sqlite.Database
	cases      *repositories.CaseRepository
	linking    *linking.Service
	priority   *priority.Service
	complexity *complexity.Scorer
}

func newApplication(lookupEnv func(string) (string, bool), out io.Writer, logSink io.Writer) (*application, error) {
	cfg, err := config.Load(lookupEnv)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
	return &application{
		cfg:        cfg,
		logger:     logger,
		out:        out,
		db:         nil,
		cases:      nil,
		linking:    nil,
		priority:   priority.NewService(time.Now),
		complexity: complexity.NewScorer(cfg.MinGenerationScore, cfg.IncrementalGenerationScore),
	}, nil
}

// open connects to the database and wires the case linking service. It is safe to call repeatedly.
func (app *application) open(ctx context.Context) error {
	if app.db != nil {
		return nil
	}
	db, err := sqlite.NewDatabase(ctx, app.cfg.SQLiteURL, app.logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", app.cfg.SQLiteURL))
	}
	app.db = db
	app.cases = repositories.NewCaseRepository(db, app.logger)

	var embedder linking.Embedder
	if app.cfg.OpenAIAPIKey != "" {
		var client *ai.EmbeddingClient
		if client, err = ai.NewEmbeddingClient(ai.EmbeddingConfig{
			APIKey:    app.cfg.OpenAIAPIKey,
			BaseURL:   app.cfg.OpenAIBaseURL,
			Model:     app.cfg.EmbeddingModel,
			Timeout:   app.cfg.EmbeddingTimeout,
			CacheSize: app.cfg.EmbeddingCacheSize,
		}, app.logger); err != nil {
			return errors.Wrap(err, "create embedding client")
		}
		embedder = client
	} else {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "OPENAI_API_KEY not set, semantic similarity disabled")
	}
	app.linking = linking.NewService(app.cases, embedder, app.logger, linking.Options{
		CandidatePoolSize: app.cfg.CandidatePoolSize,
		Now:               time.Now,
	})
	return nil
}

func (app *application) close(ctx context.Context) error {
	if app.db == nil {
		return nil
	}
	return app.db.Close(ctx)
}

// printJSON writes v as indented JSON to the command output.
func (app *application) printJSON(v any) error {
	encoder := json.NewEncoder(app.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(err, "encode output")
	}
	return nil
}

func newRootCmd(app *application) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "caselink",
		Short:         "Case similarity and linking",
		Long:          `Command line utilities for ranking, comparing and linking investigation cases.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(app.out)
	rootCmd.AddGroup(casesGroup, linkingGroup, sceneGroup)
	rootCmd.AddCommand(
		newCasesCmd(app),
		newPriorityCmd(app),
		newReportCmd(app),
		newSimilarCmd(app),
		newAutoLinkCmd(app),
		newLinkCmd(app),
		newUnlinkCmd(app),
		newRelationshipsCmd(app),
		newSceneCmd(app),
	)
	return rootCmd
}

// run executes the command line args and returns the first error.
func run(ctx context.Context, args []string, lookupEnv func(string) (string, bool), out, logSink io.Writer) error {
	app, err := newApplication(lookupEnv, out, logSink)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.close(ctx); closeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()
	rootCmd := newRootCmd(app)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
