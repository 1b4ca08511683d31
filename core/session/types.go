package session

import "time"

// Kind distinguishes a predefined choice from a free-typed answer.
type Kind uint8

const (
	// KindChoice is one of the question's choice labels.
	KindChoice Kind = iota
	// KindFreeText is text the user typed in free-text mode.
	KindFreeText
)

// FreeTextPrefix marks free-text entries when rendered as labels.
const FreeTextPrefix = "free:"

// Selection is a single entry of a user's answer.
type Selection struct {
	Kind  Kind
	Value string
}

// Choice builds a selection for a predefined label.
func Choice(label string) Selection { return Selection{Kind: KindChoice, Value: label} }

// FreeText builds a selection for free-typed text.
func FreeText(text string) Selection { return Selection{Kind: KindFreeText, Value: text} }

// Label renders the selection for display and storage.
func (s Selection) Label() string {
	if s.Kind == KindFreeText {
		return FreeTextPrefix + s.Value
	}
	return s.Value
}

// String implements fmt.Stringer.
func (s Selection) String() string { return s.Label() }

// Session stores one user's in-progress answer.
type Session struct {
	// Selected holds entries in insertion order; entries are unique.
	Selected         []Selection
	AwaitingFreeText bool
	UpdatedAt        time.Time
}

// Count returns the number of selected entries.
func (s Session) Count() int { return len(s.Selected) }

// Has reports whether sel is already selected.
func (s Session) Has(sel Selection) bool {
	for _, cur := range s.Selected {
		if cur == sel {
			return true
		}
	}
	return false
}

// Add appends sel unless it is already present and reports whether it was added.
func (s *Session) Add(sel Selection) bool {
	if s.Has(sel) {
		return false
	}
	s.Selected = append(s.Selected, sel)
	return true
}

// Remove deletes sel, keeping the order of the remaining entries.
func (s *Session) Remove(sel Selection) bool {
	for i, cur := range s.Selected {
		if cur == sel {
			s.Selected = append(s.Selected[:i:i], s.Selected[i+1:]...)
			return true
		}
	}
	return false
}

// Labels renders all entries in display order.
func (s Session) Labels() []string {
	out := make([]string, 0, len(s.Selected))
	for _, sel := range s.Selected {
		out = append(out, sel.Label())
	}
	return out
}

// Clone returns a deep copy safe to mutate independently.
func (s Session) Clone() Session {
	out := s
	if s.Selected != nil {
		out.Selected = append([]Selection(nil), s.Selected...)
	}
	return out
}
