package answer

import (
	"context"
	"log/slog"

	"github.com/m3rciful/choicebot/core/logger"
)

// LogRecorder writes completed answers to the log only.
type LogRecorder struct{}

// Record implements Recorder.
func (LogRecorder) Record(ctx context.Context, s Submission) error {
	logger.Info(ctx, "answer", "submission.completed",
		slog.String("status", "ok"),
		slog.String("submission_id", s.ID),
		slog.Int("question_id", s.QuestionID),
		slog.Any("selected", s.Labels()),
	)
	return nil
}

// MultiRecorder fans a submission out to every recorder and returns the first error.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ctx context.Context, s Submission) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
