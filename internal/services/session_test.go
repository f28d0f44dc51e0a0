package services

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/soaringjerry/epds/internal/models"
)

func freshSession() models.Session {
	return models.NewSession("S1", time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC))
}

func labelFor(t *testing.T, n, value int) string {
	t.Helper()
	q, ok := QuestionAt(n)
	if !ok {
		t.Fatalf("no question %d", n)
	}
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	t.Fatalf("question %d has no option with value %d", n, value)
	return ""
}

func mustTransition(t *testing.T, s models.Session, a Action) models.Session {
	t.Helper()
	next, err := Transition(s, a)
	if err != nil {
		t.Fatalf("Transition(%s) at index %d: %v", a.Kind, s.Index, err)
	}
	return next
}

func started(t *testing.T) models.Session {
	t.Helper()
	p := models.Profile{Name: "Asha", Age: 28, Support: models.SupportHigh}
	return mustTransition(t, freshSession(), Action{Kind: ActionStart, Profile: &p})
}

func completed(t *testing.T, answers []int) models.Session {
	t.Helper()
	s := started(t)
	for i, v := range answers {
		s = mustTransition(t, s, Action{Kind: ActionNext, Choice: labelFor(t, i+1, v)})
	}
	return s
}

func TestItemBankShape(t *testing.T) {
	qs := Questions()
	if len(qs) != models.QuestionCount {
		t.Fatalf("questions=%d, want %d", len(qs), models.QuestionCount)
	}
	for i, q := range qs {
		if q.Prompt == "" {
			t.Fatalf("question %d has empty prompt", i+1)
		}
		if len(q.Options) != 4 {
			t.Fatalf("question %d has %d options", i+1, len(q.Options))
		}
		for v, opt := range q.Options {
			if opt.Value != v {
				t.Fatalf("question %d option %d value=%d", i+1, v, opt.Value)
			}
		}
	}
	qs[0].Options[0].Label = "mutated"
	if q, _ := QuestionAt(1); q.Options[0].Label == "mutated" {
		t.Fatalf("Questions must return a copy")
	}
}

func TestStartValidatesProfile(t *testing.T) {
	cases := []struct {
		name    string
		profile models.Profile
		field   string
	}{
		{"empty name", models.Profile{Name: "   ", Age: 25}, "name"},
		{"age below range", models.Profile{Name: "Asha", Age: 17}, "age"},
		{"age above range", models.Profile{Name: "Asha", Age: 46}, "age"},
		{"unknown support", models.Profile{Name: "Asha", Age: 25, Support: "Some"}, "support"},
	}
	for _, c := range cases {
		s := freshSession()
		p := c.profile
		got, err := Transition(s, Action{Kind: ActionStart, Profile: &p})
		ve, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("%s: expected validation error, got %v", c.name, err)
		}
		if ve.Fields[0].Field != c.field {
			t.Fatalf("%s: field=%s, want %s", c.name, ve.Fields[0].Field, c.field)
		}
		if !reflect.DeepEqual(got, s) {
			t.Fatalf("%s: session changed on failure", c.name)
		}
	}
}

func TestStartAcceptsAgeBounds(t *testing.T) {
	for _, age := range []int{models.MinAge, models.MaxAge} {
		p := models.Profile{Name: " Asha ", Age: age, Place: " Pune "}
		s := mustTransition(t, freshSession(), Action{Kind: ActionStart, Profile: &p})
		if s.Index != 1 {
			t.Fatalf("age %d: index=%d, want 1", age, s.Index)
		}
		if s.Profile.Name != "Asha" || s.Profile.Place != "Pune" {
			t.Fatalf("age %d: profile not trimmed: %+v", age, s.Profile)
		}
		if s.Profile.Support != models.SupportMedium {
			t.Fatalf("age %d: support=%q, want default Medium", age, s.Profile.Support)
		}
	}
}

func TestProfileLockedAfterStart(t *testing.T) {
	s := started(t)
	p := models.Profile{Name: "Other", Age: 30}
	got, err := Transition(s, Action{Kind: ActionStart, Profile: &p})
	if !errors.Is(err, ErrProfileLocked) {
		t.Fatalf("expected ErrProfileLocked, got %v", err)
	}
	if got.Profile.Name != "Asha" {
		t.Fatalf("profile changed after start: %+v", got.Profile)
	}
}

func TestNextRequiresKnownChoice(t *testing.T) {
	s := started(t)
	for _, choice := range []string{"", "Maybe", labelFor(t, 2, 0)} {
		got, err := Transition(s, Action{Kind: ActionNext, Choice: choice})
		if err == nil {
			t.Fatalf("choice %q accepted at question 1", choice)
		}
		if got.Index != s.Index || len(got.Answers) != len(s.Answers) {
			t.Fatalf("choice %q changed session: index=%d answers=%v", choice, got.Index, got.Answers)
		}
	}
	if _, err := Transition(s, Action{Kind: ActionNext}); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if _, err := Transition(s, Action{Kind: ActionNext, Choice: "Maybe"}); !errors.Is(err, ErrUnknownChoice) {
		t.Fatalf("expected ErrUnknownChoice, got %v", err)
	}
}

func TestNextOutsideQuestions(t *testing.T) {
	if _, err := Transition(freshSession(), Action{Kind: ActionNext, Choice: labelFor(t, 1, 0)}); !errors.Is(err, ErrNotAtQuestion) {
		t.Fatalf("profile: expected ErrNotAtQuestion, got %v", err)
	}
	done := completed(t, make([]int, 10))
	if _, err := Transition(done, Action{Kind: ActionNext, Choice: labelFor(t, 10, 0)}); !errors.Is(err, ErrNotAtQuestion) {
		t.Fatalf("result: expected ErrNotAtQuestion, got %v", err)
	}
}

func TestBackGuards(t *testing.T) {
	s := started(t)
	got, err := Transition(s, Action{Kind: ActionBack})
	if !errors.Is(err, ErrBackNotAllowed) {
		t.Fatalf("question 1: expected ErrBackNotAllowed, got %v", err)
	}
	if got.Index != 1 || len(got.Answers) != 0 {
		t.Fatalf("question 1: session changed: %+v", got)
	}
	if _, err := Transition(freshSession(), Action{Kind: ActionBack}); !errors.Is(err, ErrBackNotAllowed) {
		t.Fatalf("profile: expected ErrBackNotAllowed, got %v", err)
	}
	done := completed(t, make([]int, 10))
	if _, err := Transition(done, Action{Kind: ActionBack}); !errors.Is(err, ErrBackNotAllowed) {
		t.Fatalf("result: expected ErrBackNotAllowed, got %v", err)
	}
}

func TestBackThenNextRestoresAnswers(t *testing.T) {
	s := started(t)
	for i, v := range []int{2, 1, 3, 0} {
		s = mustTransition(t, s, Action{Kind: ActionNext, Choice: labelFor(t, i+1, v)})
	}
	before := s.Clone()
	back := mustTransition(t, s, Action{Kind: ActionBack})
	if back.Index != 4 || !reflect.DeepEqual(back.Answers, []int{2, 1, 3}) {
		t.Fatalf("after back: index=%d answers=%v", back.Index, back.Answers)
	}
	again := mustTransition(t, back, Action{Kind: ActionNext, Choice: labelFor(t, 4, 0)})
	if again.Index != before.Index || !reflect.DeepEqual(again.Answers, before.Answers) {
		t.Fatalf("back+next: got index=%d answers=%v, want index=%d answers=%v", again.Index, again.Answers, before.Index, before.Answers)
	}
}

func TestTransitionDoesNotAliasAnswers(t *testing.T) {
	s := started(t)
	s = mustTransition(t, s, Action{Kind: ActionNext, Choice: labelFor(t, 1, 1)})
	s = mustTransition(t, s, Action{Kind: ActionNext, Choice: labelFor(t, 2, 1)})
	back := mustTransition(t, s, Action{Kind: ActionBack})
	_ = mustTransition(t, back, Action{Kind: ActionNext, Choice: labelFor(t, 2, 3)})
	if !reflect.DeepEqual(s.Answers, []int{1, 1}) {
		t.Fatalf("original answers mutated: %v", s.Answers)
	}
}

func TestCompletingReachesResult(t *testing.T) {
	s := completed(t, []int{3, 3, 3, 3, 3, 3, 3, 3, 3, 3})
	if s.Index != models.IndexResult {
		t.Fatalf("index=%d, want %d", s.Index, models.IndexResult)
	}
	if models.PhaseOf(s.Index) != models.PhaseResult {
		t.Fatalf("phase=%s", models.PhaseOf(s.Index))
	}
	if score := EPDSScore(s.Answers); score != 30 {
		t.Fatalf("score=%d, want 30", score)
	}
}

func TestRestartClearsEverything(t *testing.T) {
	for _, s := range []models.Session{freshSession(), started(t), completed(t, []int{1, 2, 3, 0, 1, 2, 3, 0, 1, 2})} {
		got := mustTransition(t, s, Action{Kind: ActionRestart})
		if got.Index != models.IndexProfile || len(got.Answers) != 0 {
			t.Fatalf("restart from %d: index=%d answers=%v", s.Index, got.Index, got.Answers)
		}
		if got.Profile != models.DefaultProfile() {
			t.Fatalf("restart from %d: profile=%+v", s.Index, got.Profile)
		}
		if got.ID != s.ID {
			t.Fatalf("restart changed id")
		}
	}
}

func TestTransitionRejectsUnknownAction(t *testing.T) {
	if _, err := Transition(freshSession(), Action{Kind: "skip"}); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestTransitionRejectsCorruptSession(t *testing.T) {
	s := started(t)
	s.Answers = []int{1, 2}
	if _, err := Transition(s, Action{Kind: ActionNext, Choice: labelFor(t, 1, 0)}); err == nil {
		t.Fatalf("expected invariant error")
	}
}

func TestRandomWalkKeepsInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		s := started(t)
		var expected []int
		for step := 0; step < 60 && s.Index < models.IndexResult; step++ {
			var a Action
			switch rng.Intn(5) {
			case 0:
				a = Action{Kind: ActionBack}
			case 1:
				a = Action{Kind: ActionNext}
			default:
				a = Action{Kind: ActionNext, Choice: labelFor(t, s.Index, rng.Intn(4))}
			}
			next, err := Transition(s, a)
			switch {
			case err != nil:
				if !reflect.DeepEqual(next, s) {
					t.Fatalf("run %d step %d: failed %s changed session", run, step, a.Kind)
				}
			case a.Kind == ActionBack:
				expected = expected[:len(expected)-1]
			default:
				v, _ := ResolveChoice(s.Index, a.Choice)
				expected = append(expected, v)
			}
			s = next
			if err := CheckInvariant(s); err != nil {
				t.Fatalf("run %d step %d: %v", run, step, err)
			}
			if s.Index >= 1 && s.Index <= models.QuestionCount && len(s.Answers) != s.Index-1 {
				t.Fatalf("run %d step %d: len(answers)=%d index=%d", run, step, len(s.Answers), s.Index)
			}
			if len(expected) != len(s.Answers) || (len(expected) > 0 && !reflect.DeepEqual(expected, s.Answers)) {
				t.Fatalf("run %d step %d: answers=%v, want %v", run, step, s.Answers, expected)
			}
		}
		if score := EPDSScore(s.Answers); score < 0 || score > models.MaxScore {
			t.Fatalf("run %d: score %d out of range", run, score)
		}
	}
}
