package answer

import (
	"strings"

	"github.com/m3rciful/choicebot/core/question"
	"github.com/m3rciful/choicebot/core/session"
)

// Control tokens sent as quick-reply payloads.
const (
	TokenClear = "__CLEAR__"
	TokenSkip  = "__SKIP__"
	TokenFree  = "__FREE__"
	TokenDone  = "__DONE__"
)

var startWords = map[string]struct{}{
	"開始":    {},
	"start": {},
}

// CommandKind enumerates the transitions of the answer state machine.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdFreeTextCapture
	CmdClear
	CmdSkip
	CmdFreeEntry
	CmdDone
	CmdChoiceToggle
	CmdFallback
)

var commandNames = [...]string{
	CmdStart:           "start",
	CmdFreeTextCapture: "free_text_capture",
	CmdClear:           "clear",
	CmdSkip:            "skip",
	CmdFreeEntry:       "free_entry",
	CmdDone:            "done",
	CmdChoiceToggle:    "choice_toggle",
	CmdFallback:        "fallback",
}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[k]
}

// Command is a resolved user input. Text carries the label or free text
// for the kinds that need it.
type Command struct {
	Kind CommandKind
	Text string
}

// IsControlToken reports whether text is one of the four control payloads.
func IsControlToken(text string) bool {
	switch text {
	case TokenClear, TokenSkip, TokenFree, TokenDone:
		return true
	}
	return false
}

// Resolve maps raw input to a command. The first matching rule wins:
// start, free-text capture, clear, skip, free entry, done, choice, fallback.
// sess is nil when the user has no session.
func Resolve(raw string, sess *session.Session, q question.Definition) Command {
	text := strings.TrimSpace(raw)

	if _, ok := startWords[text]; ok {
		return Command{Kind: CmdStart}
	}
	if sess != nil && sess.AwaitingFreeText && !IsControlToken(text) {
		return Command{Kind: CmdFreeTextCapture, Text: text}
	}
	switch text {
	case TokenClear:
		return Command{Kind: CmdClear}
	case TokenSkip:
		return Command{Kind: CmdSkip}
	case TokenFree:
		return Command{Kind: CmdFreeEntry}
	case TokenDone:
		return Command{Kind: CmdDone}
	}
	if q.HasChoice(text) {
		return Command{Kind: CmdChoiceToggle, Text: text}
	}
	return Command{Kind: CmdFallback, Text: text}
}
