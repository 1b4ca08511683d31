package answer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/choicebot/core/logger"
)

// Event is a normalized inbound text message.
type Event struct {
	Platform   string
	UserID     string
	ReplyToken string
	EventID    string
	Text       string
}

// Messenger delivers replies to the messaging platform.
type Messenger interface {
	// Reply answers the inbound event identified by token.
	Reply(ctx context.Context, token string, r Reply) error
	// Push sends an unsolicited message to a user.
	Push(ctx context.Context, userID string, r Reply) error
}

// Recorder stores completed answers.
type Recorder interface {
	Record(ctx context.Context, s Submission) error
}

// Service connects transports to the machine: it delivers the reply and
// records completed answers.
type Service struct {
	machine   *Machine
	messenger Messenger
	recorder  Recorder
}

// NewService wires the machine with its outbound adapter and recorder.
// A nil recorder discards submissions after logging them.
func NewService(machine *Machine, messenger Messenger, recorder Recorder) *Service {
	if recorder == nil {
		recorder = LogRecorder{}
	}
	return &Service{machine: machine, messenger: messenger, recorder: recorder}
}

// Handle processes one event. A delivery failure is returned, except for the
// fallback echo whose failure is logged and swallowed.
func (s *Service) Handle(ctx context.Context, ev Event) error {
	ctx = logger.WithEventMeta(ctx, ev.Platform, ev.UserID, ev.EventID)
	start := time.Now()

	out := s.machine.Handle(ctx, ev.UserID, ev.Text)
	err := s.deliver(ctx, ev, out.Reply)

	if out.Submission != nil {
		sub := *out.Submission
		sub.Platform = ev.Platform
		if recErr := s.recorder.Record(ctx, sub); recErr != nil {
			logger.Error(ctx, "answer", "submission.record",
				slog.String("status", "fail"),
				slog.String("submission_id", sub.ID),
				slog.String("err", recErr.Error()),
			)
		}
	}

	attrs := []slog.Attr{
		slog.String("command", out.Command.Kind.String()),
		slog.Int("quick_replies", len(out.Reply.QuickReplies)),
		slog.Duration("duration", logger.Took(start)),
	}
	switch {
	case err == nil:
		logger.Info(ctx, "answer", "event.handled", append(attrs, slog.String("status", "ok"), slog.String("outcome", "ok"))...)
		return nil
	case out.Reply.Kind == CmdFallback:
		logger.Warn(ctx, "answer", "event.handled", append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", "swallowed"),
			slog.String("err", err.Error()),
		)...)
		return nil
	default:
		logger.Error(ctx, "answer", "event.handled", append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", "fail"),
			slog.String("err", err.Error()),
		)...)
		return fmt.Errorf("deliver %s reply: %w", out.Command.Kind, err)
	}
}

func (s *Service) deliver(ctx context.Context, ev Event, r Reply) error {
	if r.Push {
		return s.messenger.Push(ctx, ev.UserID, r)
	}
	return s.messenger.Reply(ctx, ev.ReplyToken, r)
}
