// Package wizard sequences the five steps of campaign authoring and routes
// the dispatch actions of a single editing session.
package wizard

import (
	"fmt"
	"strings"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
)

// Step is a position in the wizard. The order is fixed.
type Step int

const (
	StepDetails Step = iota
	StepContent
	StepAudience
	StepPreview
	StepSchedule
)

var stepNames = [...]string{"details", "content", "audience", "preview", "schedule"}

// Steps lists every step in order.
func Steps() []Step {
	return []Step{StepDetails, StepContent, StepAudience, StepPreview, StepSchedule}
}

func (s Step) String() string {
	if s < StepDetails || s > StepSchedule {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) Index() int { return int(s) }

// Next returns the following step, or s itself at the end.
func (s Step) Next() Step {
	if s >= StepSchedule {
		return StepSchedule
	}
	return s + 1
}

// Previous returns the preceding step, or s itself at the start.
func (s Step) Previous() Step {
	if s <= StepDetails {
		return StepDetails
	}
	return s - 1
}

func ParseStep(name string) (Step, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return StepDetails, fmt.Errorf("%q: %w", name, appErrors.ErrUnknownStep)
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}
