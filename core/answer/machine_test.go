package answer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/choicebot/core/session"
)

func TestMachineSingleChoiceScenario(t *testing.T) {
	m, store := newTestMachine(testQuestion(1, 1, "A", "B"))
	ctx := context.Background()

	out := m.Handle(ctx, "u1", "start")
	assert.Equal(t, CmdStart, out.Command.Kind)
	sess, ok := store.Get("u1")
	require.True(t, ok)
	assert.Empty(t, sess.Selected)

	out = m.Handle(ctx, "u1", "A")
	assert.Contains(t, out.Reply.Text, "Selected: A")

	out = m.Handle(ctx, "u1", "B")
	assert.Contains(t, out.Reply.Text, "cannot select more than 1")
	sess, _ = store.Get("u1")
	assert.Equal(t, []string{"A"}, sess.Labels())

	out = m.Handle(ctx, "u1", TokenDone)
	assert.Equal(t, "Thank you! Your answer: A (1/1)", out.Reply.Text)
	require.NotNil(t, out.Submission)
	assert.Equal(t, []string{"A"}, out.Submission.Labels())
	assert.Equal(t, 9, out.Submission.QuestionID)
	assert.Equal(t, "u1", out.Submission.UserID)
	assert.NotEmpty(t, out.Submission.ID)

	_, ok = store.Get("u1")
	assert.False(t, ok)
}

func TestMachineDoneWithoutStart(t *testing.T) {
	m, store := newTestMachine(testQuestion(1, 3, "A", "B"))

	out := m.Handle(context.Background(), "u1", TokenDone)
	assert.Contains(t, out.Reply.Text, "Please select 1 more")
	assert.Nil(t, out.Submission)
	_, ok := store.Get("u1")
	assert.False(t, ok)
}

func TestMachineFallbackDoesNotCreateSession(t *testing.T) {
	m, store := newTestMachine(testQuestion(1, 3, "A"))

	out := m.Handle(context.Background(), "u1", " hello there ")
	assert.Equal(t, "OK: hello there", out.Reply.Text)
	assert.Zero(t, store.Len())
}

func TestMachineFreeTextFlow(t *testing.T) {
	m, store := newTestMachine(testQuestion(0, 2, "A"))
	ctx := context.Background()

	m.Handle(ctx, "u1", TokenFree)
	sess, ok := store.Get("u1")
	require.True(t, ok)
	assert.True(t, sess.AwaitingFreeText)

	m.Handle(ctx, "u1", "  hello ")
	sess, _ = store.Get("u1")
	assert.False(t, sess.AwaitingFreeText)
	assert.Equal(t, []session.Selection{session.FreeText("hello")}, sess.Selected)

	out := m.Handle(ctx, "u1", TokenDone)
	require.NotNil(t, out.Submission)
	assert.Equal(t, []string{"free:hello"}, out.Submission.Labels())
}

func TestMachineControlTokenEscapesFreeText(t *testing.T) {
	m, store := newTestMachine(testQuestion(0, 2, "A"))
	ctx := context.Background()

	m.Handle(ctx, "u1", TokenFree)
	out := m.Handle(ctx, "u1", TokenSkip)
	assert.Equal(t, CmdSkip, out.Command.Kind)
	_, ok := store.Get("u1")
	assert.False(t, ok)
}

func TestMachineStartResetsSelections(t *testing.T) {
	m, store := newTestMachine(testQuestion(0, 2, "A", "B"))
	ctx := context.Background()

	m.Handle(ctx, "u1", "A")
	m.Handle(ctx, "u1", "開始")
	sess, ok := store.Get("u1")
	require.True(t, ok)
	assert.Empty(t, sess.Selected)
}

func TestMachineClearKeepsSession(t *testing.T) {
	m, store := newTestMachine(testQuestion(0, 2, "A", "B"))
	ctx := context.Background()

	m.Handle(ctx, "u1", "A")
	m.Handle(ctx, "u1", TokenClear)
	sess, ok := store.Get("u1")
	require.True(t, ok)
	assert.Empty(t, sess.Selected)
}

func TestMachineUsesClockForSubmission(t *testing.T) {
	m, _ := newTestMachine(testQuestion(0, 1, "A"))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	out := m.Handle(context.Background(), "u1", TokenDone)
	require.NotNil(t, out.Submission)
	assert.Equal(t, fixed, out.Submission.CompletedAt)
}

func TestMachineConcurrentTogglesSameUser(t *testing.T) {
	m, store := newTestMachine(testQuestion(0, 9, "A", "B", "C", "D", "E", "F", "G", "H", "I"))
	labels := m.Question().ChoiceLabels()

	var wg sync.WaitGroup
	for _, label := range labels {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()
			m.Handle(context.Background(), "u1", label)
		}(label)
	}
	wg.Wait()

	sess, ok := store.Get("u1")
	require.True(t, ok)
	assert.ElementsMatch(t, labels, sess.Labels())
}

func TestMachineConcurrentUsersAreIndependent(t *testing.T) {
	m, store := newTestMachine(testQuestion(0, 1, "A", "B"))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			m.Handle(context.Background(), user, "A")
			m.Handle(context.Background(), user, "B")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 40, store.Len())
	for i := 0; i < 40; i++ {
		sess, ok := store.Get(fmt.Sprintf("u%d", i))
		require.True(t, ok)
		assert.Equal(t, []string{"A"}, sess.Labels())
	}
}
