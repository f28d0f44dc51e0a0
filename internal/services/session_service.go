package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/epds/internal/models"
)

// SessionStore abstracts where session records live. Get returns
// ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Create(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Save(ctx context.Context, s models.Session) error
	Delete(ctx context.Context, id string) error
}

// QuestionView is the question currently on screen.
type QuestionView struct {
	Number    int      `json:"number"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"`
	CanGoBack bool     `json:"can_go_back"`
}

// ResultView is the terminal screen. Exactly one of Prediction and Error is set.
type ResultView struct {
	Score      int                `json:"score"`
	MaxScore   int                `json:"max_score"`
	Prediction *models.Prediction `json:"prediction,omitempty"`
	Tip        string             `json:"tip,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// View is everything a surface needs to render the current screen.
type View struct {
	SessionID string         `json:"session_id"`
	Phase     models.Phase   `json:"phase"`
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Profile   models.Profile `json:"profile"`
	Answers   []int          `json:"answers"`
	Question  *QuestionView  `json:"question,omitempty"`
	Result    *ResultView    `json:"result,omitempty"`
}

// SessionService runs the questionnaire state machine against a store.
// Calls for one session are serialized; different sessions never contend.
type SessionService struct {
	store       SessionStore
	evaluator   Evaluator
	locks       *keyedMutex
	now         func() time.Time
	idGenerator func() string
}

func NewSessionService(store SessionStore, evaluator Evaluator) *SessionService {
	return &SessionService{
		store:       store,
		evaluator:   evaluator,
		locks:       newKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// Create starts a new session on the profile screen.
func (s *SessionService) Create(ctx context.Context) (*View, error) {
	sess := models.NewSession(s.idGenerator(), s.now())
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// View renders the current screen. At the result screen the prediction is
// computed afresh on every call.
func (s *SessionService) View(ctx context.Context, id string) (*View, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// Start validates the profile and moves to the first question.
func (s *SessionService) Start(ctx context.Context, id string, p models.Profile) (*View, error) {
	return s.apply(ctx, id, Action{Kind: ActionStart, Profile: &p})
}

// StartInput is Start for a client submission whose omitted fields fall back
// to the session's defaults.
func (s *SessionService) StartInput(ctx context.Context, id string, in ProfileInput) (*View, error) {
	return s.apply(ctx, id, Action{Kind: ActionStart, Input: &in})
}

// Next records choice for the current question and advances.
func (s *SessionService) Next(ctx context.Context, id, choice string) (*View, error) {
	return s.apply(ctx, id, Action{Kind: ActionNext, Choice: choice})
}

// Back drops the last answer and returns to the previous question.
func (s *SessionService) Back(ctx context.Context, id string) (*View, error) {
	return s.apply(ctx, id, Action{Kind: ActionBack})
}

// Restart clears every field of the session and returns to the profile screen.
func (s *SessionService) Restart(ctx context.Context, id string) (*View, error) {
	return s.apply(ctx, id, Action{Kind: ActionRestart})
}

// End discards the session.
func (s *SessionService) End(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Report snapshots a finished session for rendering.
func (s *SessionService) Report(ctx context.Context, id string) (*Report, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.PhaseOf(sess.Index) != models.PhaseResult {
		return nil, wrapError(ErrorConflict, ErrNotAtResult)
	}
	pred, err := s.evaluator.Evaluate(ctx, sess.Profile, sess.Answers)
	if err != nil {
		return nil, wrapError(ErrorUnavailable, err)
	}
	return NewReport(sess, pred, s.now()), nil
}

// apply runs one transition. When the transition is refused the returned view
// shows the unchanged session together with the error.
func (s *SessionService) apply(ctx context.Context, id string, a Action) (*View, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, terr := Transition(sess, a)
	if terr != nil {
		v, verr := s.view(ctx, sess)
		if verr != nil {
			return nil, verr
		}
		return v, classifyTransitionError(terr)
	}
	next.UpdatedAt = s.now()
	if err := s.store.Save(ctx, next); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, wrapError(ErrorNotFound, ErrSessionNotFound)
		}
		return nil, err
	}
	return s.view(ctx, next)
}

func (s *SessionService) load(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, wrapError(ErrorNotFound, ErrSessionNotFound)
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return models.Session{}, wrapError(ErrorNotFound, ErrSessionNotFound)
		}
		return models.Session{}, err
	}
	return sess, nil
}

func (s *SessionService) view(ctx context.Context, sess models.Session) (*View, error) {
	if err := CheckInvariant(sess); err != nil {
		return nil, err
	}
	v := &View{
		SessionID: sess.ID,
		Phase:     models.PhaseOf(sess.Index),
		Index:     sess.Index,
		Total:     models.QuestionCount,
		Profile:   sess.Profile,
		Answers:   append([]int{}, sess.Answers...),
	}
	switch v.Phase {
	case models.PhaseQuestion:
		q, _ := QuestionAt(sess.Index)
		labels := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			labels = append(labels, opt.Label)
		}
		v.Question = &QuestionView{
			Number:    sess.Index,
			Prompt:    q.Prompt,
			Options:   labels,
			CanGoBack: sess.Index > 1,
		}
	case models.PhaseResult:
		res := &ResultView{Score: EPDSScore(sess.Answers), MaxScore: models.MaxScore}
		pred, err := s.evaluator.Evaluate(ctx, sess.Profile, sess.Answers)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Prediction = &pred
			res.Tip = TipFor(pred.Label)
		}
		v.Result = res
	}
	return v, nil
}

func classifyTransitionError(err error) error {
	if _, ok := AsValidationError(err); ok {
		return wrapError(ErrorInvalid, err)
	}
	switch {
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrUnknownChoice):
		return wrapError(ErrorInvalid, err)
	case errors.Is(err, ErrBackNotAllowed), errors.Is(err, ErrProfileLocked), errors.Is(err, ErrNotAtQuestion):
		return wrapError(ErrorConflict, err)
	}
	return err
}

// keyedMutex hands out one mutex per key and forgets it once released.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedLock{}}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l := k.locks[key]
	if l == nil {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
