package answer

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/m3rciful/choicebot/core/question"
	"github.com/m3rciful/choicebot/core/session"
)

const (
	// LabelCap is the longest button label a platform accepts, in runes.
	LabelCap = 20
	// MaxQuickReplies is the platform limit on buttons per message.
	MaxQuickReplies = 13
)

// QuickReply is one tappable button; tapping it sends Payload as text.
type QuickReply struct {
	Label   string
	Payload string
}

// Reply describes the message to deliver for one inbound event.
type Reply struct {
	Kind         CommandKind
	Text         string
	QuickReplies []QuickReply
	// Push asks the transport to send an unsolicited message instead of a reply.
	Push bool
}

// QuickReplies renders the fixed button sequence: one per choice, then
// free entry, done with progress, clear and skip.
func QuickReplies(q question.Definition, count int) []QuickReply {
	items := lo.Map(q.Choices, func(label string, _ int) QuickReply {
		return QuickReply{Label: truncateLabel(label, LabelCap), Payload: label}
	})
	items = append(items,
		QuickReply{Label: "Free text", Payload: TokenFree},
		QuickReply{Label: "Done " + progress(count, q.MaxRequired()), Payload: TokenDone},
		QuickReply{Label: "Clear", Payload: TokenClear},
		QuickReply{Label: "Skip", Payload: TokenSkip},
	)
	if len(items) > MaxQuickReplies {
		items = items[:MaxQuickReplies]
	}
	return items
}

func truncateLabel(label string, limit int) string {
	r := []rune(label)
	if len(r) <= limit {
		return label
	}
	if limit <= 1 {
		return string(r[:limit])
	}
	return string(r[:limit-1]) + "…"
}

func progress(count, max int) string {
	return fmt.Sprintf("%d/%d", count, max)
}

func selectionSummary(sess session.Session, max int) string {
	list := "(none)"
	if labels := sess.Labels(); len(labels) > 0 {
		list = strings.Join(labels, ", ")
	}
	return fmt.Sprintf("Current selection: %s (%s)", list, progress(sess.Count(), max))
}

func promptText(q question.Definition) string {
	var b strings.Builder
	b.WriteString(q.Prompt())
	switch {
	case q.MinRequired() == q.MaxRequired():
		fmt.Fprintf(&b, "\nPlease choose %d.", q.MaxRequired())
	case q.MinRequired() == 0:
		fmt.Fprintf(&b, "\nChoose up to %d.", q.MaxRequired())
	default:
		fmt.Fprintf(&b, "\nChoose %d to %d.", q.MinRequired(), q.MaxRequired())
	}
	return b.String()
}

func maxBoundText(max int) string {
	return fmt.Sprintf("You can select at most %d.", max)
}
