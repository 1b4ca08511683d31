package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/config"
	"github.com/m3rciful/choicebot/core/session"
)

type fakeExec struct {
	query string
	arg   any
	err   error
	ctxOK bool
}

func (f *fakeExec) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	_, f.ctxOK = ctx.Deadline()
	f.query = query
	f.arg = arg
	return nil, f.err
}

func TestPostgresRecorderInsertsRow(t *testing.T) {
	exec := &fakeExec{}
	rec := NewPostgresRecorder(exec)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600))

	err := rec.Record(context.Background(), answer.Submission{
		ID:          "3f1c",
		UserID:      "U1",
		Platform:    "line",
		QuestionID:  4,
		Selections:  []session.Selection{session.Choice("Go"), session.FreeText("Zig")},
		CompletedAt: at,
	})
	require.NoError(t, err)
	assert.True(t, exec.ctxOK)
	assert.Contains(t, exec.query, "INSERT INTO submissions")

	row, ok := exec.arg.(submissionRow)
	require.True(t, ok)
	assert.Equal(t, pq.StringArray{"Go", "free:Zig"}, row.Selections)
	assert.Equal(t, time.UTC, row.CompletedAt.Location())
	assert.True(t, at.Equal(row.CompletedAt))
	assert.Equal(t, "line", row.Platform)
}

func TestPostgresRecorderWrapsError(t *testing.T) {
	boom := errors.New("connection reset")
	rec := NewPostgresRecorder(&fakeExec{err: boom})

	err := rec.Record(context.Background(), answer.Submission{ID: "s1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "s1")
}

func TestConnectionStrings(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: "5432", User: "bot", Password: "p@ss word", Name: "answers", SSLMode: "disable",
	}
	assert.Equal(t, "user=bot password=p@ss word host=db port=5432 dbname=answers sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://bot:p%40ss%20word@db:5432/answers?sslmode=disable", URL(cfg))
}

func TestMigrationFileHelpers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}
	files := listMigrationFiles(dir)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, files)
	assert.Equal(t, uint64(2), parseVersion("0002_b.up.sql"))
	assert.Equal(t, []string{"0002_b.up.sql"}, selectApplied(files, 1, 2))
	assert.Nil(t, selectApplied(files, 2, 2))
	assert.Nil(t, listMigrationFiles(filepath.Join(dir, "missing")))
}

func TestRepositoryMigrationsArePaired(t *testing.T) {
	ups := listMigrationFiles(filepath.Join("..", "..", "migrations"))
	require.NotEmpty(t, ups)
	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		_, err := os.Stat(filepath.Join("..", "..", "migrations", down))
		assert.NoError(t, err, down)
	}
}
