package logging_test

import (
	"bytes"
	"context"
	"github.com/myrjola/caselink/internal/logging"
	"github.com/stretchr/testify/require"
	"log/slog"
	"testing"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil))).With("source", "test")

	ctx := logging.WithAttrs(context.Background(), slog.String("case_id", "c-1"))
	ctx = logging.WithAttrs(ctx, slog.String("operation", "auto_link"))
	logger.LogAttrs(ctx, slog.LevelInfo, "linked")

	out := buf.String()
	require.Contains(t, out, "source=test")
	require.Contains(t, out, "case_id=c-1")
	require.Contains(t, out, "operation=auto_link")
}

func TestWithAttrsDoesNotLeakBetweenContexts(t *testing.T) {
	base := logging.WithAttrs(context.Background(), slog.String("a", "1"))
	first := logging.WithAttrs(base, slog.String("b", "2"))
	second := logging.WithAttrs(base, slog.String("c", "3"))

	require.Len(t, logging.Attrs(base), 1)
	require.Equal(t, []slog.Attr{slog.String("a", "1"), slog.String("b", "2")}, logging.Attrs(first))
	require.Equal(t, []slog.Attr{slog.String("a", "1"), slog.String("c", "3")}, logging.Attrs(second))
}
