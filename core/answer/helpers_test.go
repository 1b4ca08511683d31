package answer

import (
	"context"
	"errors"
	"sync"

	"github.com/m3rciful/choicebot/core/question"
	"github.com/m3rciful/choicebot/core/session"
)

func testQuestion(min, max int, choices ...string) question.Definition {
	return question.Definition{ID: 9, Title: "Pick", Help: "Tap to toggle", Choices: choices, Min: min, Max: max}
}

func newTestMachine(q question.Definition) (*Machine, *session.Store) {
	store := session.NewStore()
	return NewMachine(q, store), store
}

type sent struct {
	push   bool
	target string
	reply  Reply
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sent
	replyErr error
	pushErr  error
}

func (f *fakeMessenger) Reply(_ context.Context, token string, r Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{target: token, reply: r})
	return f.replyErr
}

func (f *fakeMessenger) Push(_ context.Context, userID string, r Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{push: true, target: userID, reply: r})
	return f.pushErr
}

func (f *fakeMessenger) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeRecorder struct {
	mu   sync.Mutex
	subs []Submission
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, s Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, s)
	return f.err
}

var errDelivery = errors.New("platform unavailable")
