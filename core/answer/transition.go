package answer

import (
	"fmt"
	"strings"

	"github.com/m3rciful/choicebot/core/question"
	"github.com/m3rciful/choicebot/core/session"
)

// Result is the outcome of a single transition.
type Result struct {
	// Next is the session after the transition; nil means the user has none.
	Next *session.Session
	// Changed reports whether Next differs from the input session.
	Changed bool
	Reply   Reply
	// Finished is set when the question was answered successfully;
	// Completed then holds the final answer in display order.
	Finished  bool
	Completed []session.Selection
}

// Transition applies cmd to cur without touching any store.
// cur is nil when the user has no session; it is never mutated.
func Transition(cur *session.Session, cmd Command, q question.Definition) Result {
	max := q.MaxRequired()

	switch cmd.Kind {
	case CmdStart:
		next := &session.Session{}
		return Result{
			Next:    next,
			Changed: true,
			Reply: Reply{
				Kind:         cmd.Kind,
				Text:         promptText(q),
				QuickReplies: QuickReplies(q, 0),
				Push:         q.PushStart,
			},
		}

	case CmdFreeTextCapture:
		next := ensure(cur)
		if next.Count() >= max {
			return unchanged(cur, Reply{
				Kind:         cmd.Kind,
				Text:         maxBoundText(max),
				QuickReplies: QuickReplies(q, next.Count()),
			})
		}
		sel := session.FreeText(cmd.Text)
		verb := "Added"
		if !next.Add(sel) {
			verb = "Already selected"
		}
		next.AwaitingFreeText = false
		return Result{
			Next:    next,
			Changed: true,
			Reply: Reply{
				Kind:         cmd.Kind,
				Text:         fmt.Sprintf("%s: %s\n%s", verb, sel.Label(), selectionSummary(*next, max)),
				QuickReplies: QuickReplies(q, next.Count()),
			},
		}

	case CmdClear:
		next := ensure(cur)
		next.Selected = nil
		next.AwaitingFreeText = false
		return Result{
			Next:    next,
			Changed: true,
			Reply: Reply{
				Kind:         cmd.Kind,
				Text:         fmt.Sprintf("Selections cleared. (%s)", progress(0, max)),
				QuickReplies: QuickReplies(q, 0),
			},
		}

	case CmdSkip:
		return Result{
			Next:    nil,
			Changed: cur != nil,
			Reply:   Reply{Kind: cmd.Kind, Text: "Question skipped."},
		}

	case CmdFreeEntry:
		next := ensure(cur)
		next.AwaitingFreeText = true
		return Result{
			Next:    next,
			Changed: true,
			Reply:   Reply{Kind: cmd.Kind, Text: "Please type your answer in one line."},
		}

	case CmdDone:
		var current session.Session
		if cur != nil {
			current = cur.Clone()
		}
		n := current.Count()
		switch {
		case n < q.MinRequired():
			return unchanged(cur, Reply{
				Kind:         cmd.Kind,
				Text:         fmt.Sprintf("Please select %d more. (%s)", q.MinRequired()-n, progress(n, max)),
				QuickReplies: QuickReplies(q, n),
			})
		case n > max:
			return unchanged(cur, Reply{
				Kind:         cmd.Kind,
				Text:         maxBoundText(max),
				QuickReplies: QuickReplies(q, n),
			})
		}
		list := "(none)"
		if n > 0 {
			list = strings.Join(current.Labels(), ", ")
		}
		return Result{
			Next:      nil,
			Changed:   cur != nil,
			Finished:  true,
			Completed: current.Selected,
			Reply: Reply{
				Kind: cmd.Kind,
				Text: fmt.Sprintf("Thank you! Your answer: %s (%s)", list, progress(n, max)),
			},
		}

	case CmdChoiceToggle:
		next := ensure(cur)
		sel := session.Choice(cmd.Text)
		switch {
		case next.Has(sel):
			next.Remove(sel)
			return Result{
				Next:    next,
				Changed: true,
				Reply: Reply{
					Kind:         cmd.Kind,
					Text:         fmt.Sprintf("Deselected: %s\n%s", cmd.Text, selectionSummary(*next, max)),
					QuickReplies: QuickReplies(q, next.Count()),
				},
			}
		case next.Count() >= max:
			return Result{
				Next:    next,
				Changed: cur == nil,
				Reply: Reply{
					Kind:         cmd.Kind,
					Text:         fmt.Sprintf("You cannot select more than %d.\n%s", max, selectionSummary(*next, max)),
					QuickReplies: QuickReplies(q, next.Count()),
				},
			}
		default:
			next.Add(sel)
			return Result{
				Next:    next,
				Changed: true,
				Reply: Reply{
					Kind:         cmd.Kind,
					Text:         fmt.Sprintf("Selected: %s\n%s", cmd.Text, selectionSummary(*next, max)),
					QuickReplies: QuickReplies(q, next.Count()),
				},
			}
		}

	default:
		return unchanged(cur, Reply{Kind: CmdFallback, Text: "OK: " + cmd.Text})
	}
}

// ensure returns a mutable copy of cur or a fresh session.
func ensure(cur *session.Session) *session.Session {
	if cur == nil {
		return &session.Session{}
	}
	cp := cur.Clone()
	return &cp
}

func unchanged(cur *session.Session, reply Reply) Result {
	var next *session.Session
	if cur != nil {
		cp := cur.Clone()
		next = &cp
	}
	return Result{Next: next, Reply: reply}
}
