package repositories_test

import (
	"context"
	"github.com/myrjola/caselink/internal/repositories"
	"github.com/myrjola/caselink/internal/sqlite"
	"github.com/myrjola/caselink/internal/testhelpers"
	"io"
	"path/filepath"
	"testing"
)

// newTestRepository creates a repository backed by a fresh in-memory database.
func newTestRepository(t *testing.T) *repositories.CaseRepository {
	t.Helper()
	repo, _ := newRepository(t, ":memory:")
	return repo
}

// newFileRepository uses a database file so that concurrent readers and writers behave like in production.
func newFileRepository(t *testing.T) *repositories.CaseRepository {
	t.Helper()
	repo, _ := newRepository(t, filepath.Join(t.TempDir(), "caselink.sqlite"))
	return repo
}

// newRepository also returns the database for tests that write rows the repository would never produce.
func newRepository(t *testing.T, url string) (*repositories.CaseRepository, *sqlite.Database) {
	t.Helper()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), url, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err = dbs.Close(context.Background()); err != nil {
			t.Error(err)
		}
	})
	return repositories.NewCaseRepository(dbs, logger), dbs
}
