package models

import (
	"strings"
	"time"
)

// FamilySupport is the respondent's self-reported level of family support.
type FamilySupport string

const (
	SupportHigh   FamilySupport = "High"
	SupportMedium FamilySupport = "Medium"
	SupportLow    FamilySupport = "Low"
)

// SupportLevels lists the accepted support levels in display order.
var SupportLevels = []FamilySupport{SupportHigh, SupportMedium, SupportLow}

// ParseFamilySupport matches s case-insensitively against the known levels.
// An empty value resolves to SupportMedium.
func ParseFamilySupport(s string) (FamilySupport, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SupportMedium, true
	}
	for _, lvl := range SupportLevels {
		if strings.EqualFold(s, string(lvl)) {
			return lvl, true
		}
	}
	return "", false
}

const (
	MinAge     = 18
	MaxAge     = 45
	DefaultAge = 25
)

// Profile is collected once on the first screen and frozen afterwards.
type Profile struct {
	Name    string        `json:"name"`
	Age     int           `json:"age"`
	Place   string        `json:"place,omitempty"`
	Support FamilySupport `json:"support"`
}

// DefaultProfile returns the profile a fresh or restarted session starts with.
func DefaultProfile() Profile {
	return Profile{Age: DefaultAge, Support: SupportMedium}
}

// Option is one answer label of a question and its severity value (0..3).
type Option struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Question is an immutable EPDS item.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Cursor positions.
const (
	IndexProfile   = 0
	QuestionCount  = 10
	IndexResult    = QuestionCount + 1
	MaxAnswerValue = 3
	MaxScore       = QuestionCount * MaxAnswerValue
)

// Phase is the coarse screen a session is on.
type Phase string

const (
	PhaseProfile  Phase = "profile"
	PhaseQuestion Phase = "question"
	PhaseResult   Phase = "result"
)

// PhaseOf maps a cursor index to its phase.
func PhaseOf(index int) Phase {
	switch {
	case index <= IndexProfile:
		return PhaseProfile
	case index >= IndexResult:
		return PhaseResult
	default:
		return PhaseQuestion
	}
}

// Session is the complete per-respondent state. Nothing else about a
// respondent is kept anywhere.
type Session struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Answers   []int     `json:"answers"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns a session at the profile screen with default fields.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Index:     IndexProfile,
		Answers:   []int{},
		Profile:   DefaultProfile(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	cp := s
	cp.Answers = append(make([]int, 0, len(s.Answers)), s.Answers...)
	return cp
}

// Prediction is the decoded output of the risk classifier.
type Prediction struct {
	Ordinal int    `json:"ordinal"`
	Label   string `json:"label"`
}
