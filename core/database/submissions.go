package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/logger"
)

const insertSubmission = `
INSERT INTO submissions (id, user_id, platform, question_id, selections, completed_at)
VALUES (:id, :user_id, :platform, :question_id, :selections, :completed_at)`

const recordTimeout = 3 * time.Second

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

type submissionRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Platform    string         `db:"platform"`
	QuestionID  int            `db:"question_id"`
	Selections  pq.StringArray `db:"selections"`
	CompletedAt time.Time      `db:"completed_at"`
}

// PostgresRecorder stores completed answers in the submissions table.
type PostgresRecorder struct {
	db namedExecer
}

// NewPostgresRecorder wraps an open connection, typically *sqlx.DB.
func NewPostgresRecorder(db namedExecer) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record implements answer.Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, s answer.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	row := submissionRow{
		ID:          s.ID,
		UserID:      s.UserID,
		Platform:    s.Platform,
		QuestionID:  s.QuestionID,
		Selections:  pq.StringArray(s.Labels()),
		CompletedAt: s.CompletedAt.UTC(),
	}
	start := time.Now()
	if _, err := r.db.NamedExecContext(ctx, insertSubmission, row); err != nil {
		return fmt.Errorf("insert submission %s: %w", s.ID, err)
	}
	logger.Debug(ctx, "db", "submission.insert",
		slog.String("status", "ok"),
		slog.String("submission_id", s.ID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
