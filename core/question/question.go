// Package question describes the single active question a user answers.
package question

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// MaxChoices bounds the number of choice labels so that choices plus the four
// control buttons fit into one quick-reply set.
const MaxChoices = 9

// ErrInvalid is wrapped by every validation failure returned from Validate.
var ErrInvalid = errors.New("question: invalid definition")

// Definition is the static description of the active question.
// It is loaded once at startup and never mutated afterwards.
type Definition struct {
	ID        int      `yaml:"id" validate:"gte=0"`
	Title     string   `yaml:"title" validate:"required"`
	Help      string   `yaml:"help"`
	Choices   []string `yaml:"choices" validate:"required,min=1,max=9,unique,dive,required"`
	Min       int      `yaml:"min" validate:"gte=0,ltefield=Max"`
	Max       int      `yaml:"max" validate:"gte=1"`
	PushStart bool     `yaml:"push_start" envconfig:"QUESTION_PUSH_START"`
}

// reservedLabels are inputs the answer machine resolves before choice
// matching; a choice with one of these labels could never be selected.
var reservedLabels = []string{"start", "開始", "__CLEAR__", "__SKIP__", "__FREE__", "__DONE__"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in question used when the config has none.
func Default() Definition {
	return Definition{
		ID:      1,
		Title:   "Which topics are you interested in?",
		Help:    "Tap a choice to toggle it, then press Done.",
		Choices: []string{"Go", "Rust", "Python", "TypeScript"},
		Min:     1,
		Max:     3,
	}
}

// Normalize trims labels and texts in place.
func (d *Definition) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Help = strings.TrimSpace(d.Help)
	d.Choices = lo.Map(d.Choices, func(c string, _ int) string {
		return strings.TrimSpace(c)
	})
}

// IsZero reports whether nothing was configured.
func (d Definition) IsZero() bool {
	return d.Title == "" && len(d.Choices) == 0 && d.Min == 0 && d.Max == 0
}

// Validate checks bounds and labels.
func (d Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q (param %q)", ErrInvalid, fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if clash, ok := lo.Find(d.Choices, IsReserved); ok {
		return fmt.Errorf("%w: choice %q is a reserved command word", ErrInvalid, clash)
	}
	return nil
}

// IsReserved reports whether label collides with a start word or control token.
func IsReserved(label string) bool {
	return lo.Contains(reservedLabels, label)
}

// ChoiceLabels returns a copy of the ordered choice labels.
func (d Definition) ChoiceLabels() []string {
	return append([]string(nil), d.Choices...)
}

// HasChoice reports whether label exactly matches one of the choices.
func (d Definition) HasChoice(label string) bool {
	return lo.Contains(d.Choices, label)
}

// MinRequired is the minimum number of selections accepted on completion.
func (d Definition) MinRequired() int { return d.Min }

// MaxRequired is the maximum number of selections a user may hold.
func (d Definition) MaxRequired() int { return d.Max }

// Prompt renders the title followed by the help text, if any.
func (d Definition) Prompt() string {
	if d.Help == "" {
		return d.Title
	}
	return d.Title + "\n" + d.Help
}
