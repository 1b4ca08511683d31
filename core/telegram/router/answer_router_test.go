package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/question"
	"github.com/m3rciful/choicebot/core/session"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type fakeHandler struct {
	mu     sync.Mutex
	events []answer.Event
	err    error
}

func (f *fakeHandler) Handle(_ context.Context, ev answer.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{
		Offline: true,
		Client: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("offline")
		})},
	})
	require.NoError(t, err)
	return bot
}

func routes(t *testing.T, h EventHandler) (map[any]tele.HandlerFunc, question.Definition) {
	t.Helper()
	q := question.Definition{ID: 1, Title: "Pick", Choices: []string{"A", "B"}, Min: 1, Max: 2}
	m := answer.NewMachine(q, session.NewStore())
	out := map[any]tele.HandlerFunc{}
	for _, r := range AnswerRoutes(h, m) {
		out[r.Endpoint] = r.Handler
	}
	return out, q
}

func textUpdate(text string) tele.Update {
	return tele.Update{ID: 7, Message: &tele.Message{
		Text:   text,
		Chat:   &tele.Chat{ID: 100},
		Sender: &tele.User{ID: 200},
	}}
}

func TestTextRouteBuildsEvent(t *testing.T) {
	bot := offlineBot(t)
	h := &fakeHandler{}
	rs, _ := routes(t, h)

	require.NoError(t, rs[tele.OnText](bot.NewContext(textUpdate("A"))))
	require.Len(t, h.events, 1)
	assert.Equal(t, answer.Event{Platform: "telegram", UserID: "200", ReplyToken: "100", EventID: "7", Text: "A"}, h.events[0])
}

func TestStartCommandMapsToStartWord(t *testing.T) {
	bot := offlineBot(t)
	h := &fakeHandler{}
	rs, _ := routes(t, h)

	require.NoError(t, rs["/start"](bot.NewContext(textUpdate("/start"))))
	require.Len(t, h.events, 1)
	assert.Equal(t, "start", h.events[0].Text)
}

func TestCallbackRouteDecodesPayload(t *testing.T) {
	bot := offlineBot(t)
	h := &fakeHandler{}
	rs, q := routes(t, h)
	handler := rs["\fqr"]
	require.NotNil(t, handler)

	upd := func(data string) tele.Update {
		return tele.Update{ID: 8, Callback: &tele.Callback{
			ID:      "cb",
			Data:    data,
			Sender:  &tele.User{ID: 200},
			Message: &tele.Message{Chat: &tele.Chat{ID: 100}},
		}}
	}
	require.NoError(t, handler(bot.NewContext(upd("1"))))
	require.NoError(t, handler(bot.NewContext(upd(strconv.Itoa(len(q.Choices)+1)))))
	require.NoError(t, handler(bot.NewContext(upd("garbage"))))

	require.Len(t, h.events, 2)
	assert.Equal(t, "B", h.events[0].Text)
	assert.Equal(t, answer.TokenDone, h.events[1].Text)
}

func TestRouteReturnsServiceError(t *testing.T) {
	bot := offlineBot(t)
	boom := errors.New("deliver choice_toggle reply: blocked")
	rs, _ := routes(t, &fakeHandler{err: boom})

	err := rs[tele.OnText](bot.NewContext(textUpdate("A")))
	assert.ErrorIs(t, err, boom)
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}
