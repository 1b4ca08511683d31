package answer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/choicebot/core/logger"
	"github.com/m3rciful/choicebot/core/question"
	"github.com/m3rciful/choicebot/core/session"
)

// Store is the subset of the session store the machine needs.
type Store interface {
	Lock(userID string) (unlock func())
	Get(userID string) (session.Session, bool)
	Put(userID string, sess session.Session)
	Reset(userID string)
	Clear(userID string)
	Remove(userID string)
}

// Submission is a completed answer.
type Submission struct {
	ID          string
	UserID      string
	Platform    string
	QuestionID  int
	Selections  []session.Selection
	CompletedAt time.Time
}

// Labels renders the selections in display order.
func (s Submission) Labels() []string {
	return session.Session{Selected: s.Selections}.Labels()
}

// Outcome is what Machine.Handle produced for one input.
type Outcome struct {
	Command    Command
	Reply      Reply
	Submission *Submission
}

// Machine runs transitions against the session store, one user at a time.
type Machine struct {
	q     question.Definition
	store Store
	now   func() time.Time
}

// NewMachine binds the question definition to a store.
func NewMachine(q question.Definition, store Store) *Machine {
	return &Machine{q: q, store: store, now: time.Now}
}

// Question returns the active question definition.
func (m *Machine) Question() question.Definition {
	return m.q
}

// Handle resolves text for userID, applies the transition and persists the result.
// Calls for the same user are serialized; distinct users run concurrently.
func (m *Machine) Handle(ctx context.Context, userID, text string) Outcome {
	unlock := m.store.Lock(userID)
	defer unlock()

	var cur *session.Session
	if sess, ok := m.store.Get(userID); ok {
		cur = &sess
	}

	cmd := Resolve(text, cur, m.q)
	res := Transition(cur, cmd, m.q)
	m.apply(userID, cmd, res)

	out := Outcome{Command: cmd, Reply: res.Reply}
	if res.Finished {
		out.Submission = &Submission{
			ID:          uuid.NewString(),
			UserID:      userID,
			QuestionID:  m.q.ID,
			Selections:  res.Completed,
			CompletedAt: m.now(),
		}
	}

	count := 0
	if res.Next != nil {
		count = res.Next.Count()
	}
	logger.Debug(ctx, "answer", "answer.transition",
		slog.String("command", cmd.Kind.String()),
		slog.Bool("changed", res.Changed),
		slog.Int("selected", count),
		slog.Int("max", m.q.MaxRequired()),
		slog.Bool("session", res.Next != nil),
	)
	return out
}

func (m *Machine) apply(userID string, cmd Command, res Result) {
	if !res.Changed {
		return
	}
	switch {
	case res.Next == nil:
		m.store.Remove(userID)
	case cmd.Kind == CmdStart:
		m.store.Reset(userID)
	case cmd.Kind == CmdClear:
		m.store.Clear(userID)
	default:
		m.store.Put(userID, *res.Next)
	}
}
