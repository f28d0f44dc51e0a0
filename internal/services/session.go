package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/looplab/fsm"

	"github.com/soaringjerry/epds/internal/models"
)

// ActionKind enumerates the user interactions a session reacts to.
type ActionKind string

const (
	ActionStart   ActionKind = "start"
	ActionNext    ActionKind = "next"
	ActionBack    ActionKind = "back"
	ActionRestart ActionKind = "restart"
)

// Action is one user interaction. Profile or Input is read by start, Choice
// by next.
type Action struct {
	Kind    ActionKind
	Profile *models.Profile
	Input   *ProfileInput
	Choice  string
}

// ProfileInput is a profile as submitted by a client. A nil Age keeps the
// session's current age.
type ProfileInput struct {
	Name    string
	Age     *int
	Place   string
	Support models.FamilySupport
}

func (in ProfileInput) over(base models.Profile) models.Profile {
	p := models.Profile{Name: in.Name, Age: base.Age, Place: in.Place, Support: in.Support}
	if in.Age != nil {
		p.Age = *in.Age
	}
	return p
}

const (
	eventStart   = "start"
	eventNext    = "next"
	eventFinish  = "finish"
	eventBack    = "back"
	eventRestart = "restart"
)

var phaseEvents = fsm.Events{
	{Name: eventStart, Src: []string{string(models.PhaseProfile)}, Dst: string(models.PhaseQuestion)},
	{Name: eventNext, Src: []string{string(models.PhaseQuestion)}, Dst: string(models.PhaseQuestion)},
	{Name: eventFinish, Src: []string{string(models.PhaseQuestion)}, Dst: string(models.PhaseResult)},
	{Name: eventBack, Src: []string{string(models.PhaseQuestion)}, Dst: string(models.PhaseQuestion)},
	{Name: eventRestart, Src: []string{
		string(models.PhaseProfile),
		string(models.PhaseQuestion),
		string(models.PhaseResult),
	}, Dst: string(models.PhaseProfile)},
}

// nextPhase fires event on a throwaway machine positioned at from.
// Self-transitions (next/back inside the question phase) are legal.
func nextPhase(from models.Phase, event string) (models.Phase, error) {
	m := fsm.NewFSM(string(from), phaseEvents, fsm.Callbacks{})
	if err := m.Event(context.Background(), event); err != nil {
		var noop fsm.NoTransitionError
		if !errors.As(err, &noop) {
			return from, err
		}
	}
	return models.Phase(m.Current()), nil
}

const maxTextField = 120

// ValidateProfile trims free-text fields and checks the profile. Age outside
// [18, 45] is rejected rather than clamped.
func ValidateProfile(p models.Profile) (models.Profile, error) {
	out := p
	out.Name = strings.TrimSpace(p.Name)
	out.Place = strings.TrimSpace(p.Place)

	var fields []FieldError
	switch {
	case out.Name == "":
		fields = append(fields, FieldError{Field: "name", Key: "profile.name_required"})
	case utf8.RuneCountInString(out.Name) > maxTextField:
		fields = append(fields, FieldError{Field: "name", Key: "profile.name_too_long"})
	}
	if out.Age < models.MinAge || out.Age > models.MaxAge {
		fields = append(fields, FieldError{Field: "age", Key: "profile.age_range"})
	}
	if utf8.RuneCountInString(out.Place) > maxTextField {
		fields = append(fields, FieldError{Field: "place", Key: "profile.place_too_long"})
	}
	if lvl, ok := models.ParseFamilySupport(string(p.Support)); ok {
		out.Support = lvl
	} else {
		fields = append(fields, FieldError{Field: "support", Key: "profile.support_invalid"})
	}
	if len(fields) > 0 {
		return p, &ValidationError{Fields: fields}
	}
	return out, nil
}

// CheckInvariant verifies that the answer count matches the cursor.
func CheckInvariant(s models.Session) error {
	n := len(s.Answers)
	switch {
	case s.Index < models.IndexProfile || s.Index > models.IndexResult:
		return fmt.Errorf("session index %d out of range", s.Index)
	case s.Index == models.IndexProfile && n != 0:
		return fmt.Errorf("profile screen holds %d answers", n)
	case s.Index == models.IndexResult && n != models.QuestionCount:
		return fmt.Errorf("result screen holds %d answers, want %d", n, models.QuestionCount)
	case s.Index > models.IndexProfile && s.Index < models.IndexResult && n != s.Index-1:
		return fmt.Errorf("question %d holds %d answers, want %d", s.Index, n, s.Index-1)
	}
	for i, v := range s.Answers {
		if v < 0 || v > models.MaxAnswerValue {
			return fmt.Errorf("answer Q%d=%d out of range", i+1, v)
		}
	}
	return nil
}

// Transition applies a to s and returns the new session. It never mutates s;
// when it fails the returned session is s unchanged.
func Transition(s models.Session, a Action) (models.Session, error) {
	if err := CheckInvariant(s); err != nil {
		return s, err
	}
	phase := models.PhaseOf(s.Index)
	next := s.Clone()

	var (
		want models.Phase
		err  error
	)
	switch a.Kind {
	case ActionStart:
		if want, err = nextPhase(phase, eventStart); err != nil {
			return s, ErrProfileLocked
		}
		p := s.Profile
		switch {
		case a.Profile != nil:
			p = *a.Profile
		case a.Input != nil:
			p = a.Input.over(s.Profile)
		}
		normalized, verr := ValidateProfile(p)
		if verr != nil {
			return s, verr
		}
		next.Profile = normalized
		next.Index = 1

	case ActionNext:
		event := eventNext
		if s.Index == models.QuestionCount {
			event = eventFinish
		}
		if want, err = nextPhase(phase, event); err != nil {
			return s, ErrNotAtQuestion
		}
		if a.Choice == "" {
			return s, ErrNoSelection
		}
		v, ok := ResolveChoice(s.Index, a.Choice)
		if !ok {
			return s, ErrUnknownChoice
		}
		next.Answers = append(next.Answers, v)
		next.Index++

	case ActionBack:
		if want, err = nextPhase(phase, eventBack); err != nil || s.Index <= 1 {
			return s, ErrBackNotAllowed
		}
		next.Answers = next.Answers[:len(next.Answers)-1]
		next.Index--

	case ActionRestart:
		if want, err = nextPhase(phase, eventRestart); err != nil {
			return s, err
		}
		next.Index = models.IndexProfile
		next.Answers = []int{}
		next.Profile = models.DefaultProfile()

	default:
		return s, fmt.Errorf("unknown action %q", a.Kind)
	}

	if got := models.PhaseOf(next.Index); got != want {
		return s, fmt.Errorf("action %s landed on %s, want %s", a.Kind, got, want)
	}
	if err := CheckInvariant(next); err != nil {
		return s, err
	}
	return next, nil
}
