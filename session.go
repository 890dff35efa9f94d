package learningassistant

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type sessionConfig struct {
	id    string
	seed  *int64
	limit int
}

// SessionOption configures a Session at construction.
type SessionOption func(*sessionConfig)

// WithSeed makes the question and answer order reproducible.
func WithSeed(seed int64) SessionOption {
	return func(c *sessionConfig) { c.seed = &seed }
}

// WithLimit draws at most n questions from the bank. Zero means all.
func WithLimit(n int) SessionOption {
	return func(c *sessionConfig) { c.limit = n }
}

// WithID sets the session id instead of generating one.
func WithID(id string) SessionOption {
	return func(c *sessionConfig) { c.id = id }
}

// Session is one user's sitting over a question bank. It is not safe for
// concurrent use; hosts serialize access per sitting.
type Session struct {
	id        string
	bank      []Question
	limit     int
	rng       *rand.Rand
	createdAt time.Time

	initialized bool
	sequence    []Question
	cursor      int
	graded      map[int]Verdict
	marked      map[int]bool
	pending     Selection
}

// NewSession validates bank and returns a session over it. The sequence
// itself is built on first access.
func NewSession(bank []Question, opts ...SessionOption) (*Session, error) {
	var cfg sessionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(bank) == 0 {
		return nil, ErrEmptyBank
	}
	if cfg.limit < 0 {
		return nil, fmt.Errorf("invalid question limit: %d", cfg.limit)
	}

	questions := make([]Question, len(bank))
	for i, q := range bank {
		if err := q.Validate(); err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		questions[i] = q.Clone()
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	return &Session{
		id:        cfg.id,
		bank:      questions,
		limit:     cfg.limit,
		rng:       newRand(cfg.seed),
		createdAt: time.Now(),
	}, nil
}

// init builds the sequence once per sitting. Both shuffles share s.rng.
func (s *Session) init() {
	if s.initialized {
		return
	}
	seq := ShuffleQuestions(s.bank, s.rng)
	if s.limit > 0 && s.limit < len(seq) {
		seq = seq[:s.limit]
	}
	for i := range seq {
		// cannot fail, the bank was validated in NewSession
		shuffled, err := ShuffleAnswers(seq[i], s.rng)
		if err != nil {
			panic(err)
		}
		seq[i] = shuffled
	}

	s.sequence = seq
	s.cursor = 0
	s.graded = make(map[int]Verdict)
	s.marked = make(map[int]bool)
	s.pending = nil
	s.initialized = true
	VerboseLog("Session %s initialized with %d questions", s.id, len(seq))
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// TotalCount returns the number of questions in the sitting.
func (s *Session) TotalCount() int {
	s.init()
	return len(s.sequence)
}

// Cursor returns the index of the current question.
func (s *Session) Cursor() int {
	s.init()
	return s.cursor
}

// Terminal reports whether every question has been answered and passed.
func (s *Session) Terminal() bool {
	s.init()
	return s.cursor == len(s.sequence)
}

// CurrentQuestion returns the question at the cursor, or false once the
// session is terminal.
func (s *Session) CurrentQuestion() (Question, bool) {
	s.init()
	if s.cursor == len(s.sequence) {
		return Question{}, false
	}
	return s.sequence[s.cursor].Clone(), true
}

// QuestionAt returns the shuffled question at index i.
func (s *Session) QuestionAt(i int) (Question, bool) {
	s.init()
	if i < 0 || i >= len(s.sequence) {
		return Question{}, false
	}
	return s.sequence[i].Clone(), true
}

// View returns the display shape of the current question.
func (s *Session) View() (QuestionView, bool) {
	s.init()
	if s.cursor == len(s.sequence) {
		return QuestionView{}, false
	}
	return s.viewAt(s.cursor), true
}

func (s *Session) viewAt(i int) QuestionView {
	q := s.sequence[i]
	v := q.View(i + 1)
	v.Marked = s.marked[i]
	if verdict, ok := s.graded[i]; ok {
		v.Explanation = q.Explanation
		v.GroundTruth = verdict.GroundTruth
		v.Selection = verdict.Selection
	}
	return v
}

// SetPending records the in-progress selection for the current question.
func (s *Session) SetPending(sel Selection) error {
	s.init()
	if s.cursor == len(s.sequence) {
		return ErrSessionComplete
	}
	s.pending = NewSelection(sel...)
	return nil
}

// Pending returns the in-progress selection, cleared on Advance.
func (s *Session) Pending() Selection {
	s.init()
	out := make(Selection, len(s.pending))
	copy(out, s.pending)
	return out
}

// Submit grades sel against the current question and records the verdict.
// The cursor does not move. A rejected submission changes nothing.
func (s *Session) Submit(sel Selection) (Verdict, error) {
	s.init()
	if s.cursor == len(s.sequence) {
		return Verdict{}, ErrSessionComplete
	}
	sel = NewSelection(sel...)
	if len(sel) == 0 {
		return Verdict{}, ErrEmptySelection
	}
	if _, ok := s.graded[s.cursor]; ok {
		return Verdict{}, ErrAlreadySubmitted
	}

	q := s.sequence[s.cursor]
	for _, l := range sel {
		if i := l.Index(); i < 0 || i >= len(q.Answers) {
			return Verdict{}, fmt.Errorf("%w: %q for question %d", ErrUnknownLetter, l, s.cursor+1)
		}
	}

	v := Grade(q, sel)
	s.graded[s.cursor] = v
	s.pending = sel
	VerboseLog("Session %s question %d: %s (selected %s, expected %s)",
		s.id, s.cursor+1, v.Outcome, v.Selection, v.GroundTruth)
	return v, nil
}

// Advance moves to the next question once the current one is graded.
func (s *Session) Advance() error {
	s.init()
	if s.cursor == len(s.sequence) {
		return ErrSessionComplete
	}
	if _, ok := s.graded[s.cursor]; !ok {
		return ErrNotYetGraded
	}
	s.cursor++
	s.pending = nil
	return nil
}

// Reset discards the sitting. The next access reshuffles from the bank,
// continuing the same random stream.
func (s *Session) Reset() {
	s.initialized = false
	s.sequence = nil
	s.cursor = 0
	s.graded = nil
	s.marked = nil
	s.pending = nil
}

// CorrectRate returns the share of correct verdicts among the questions
// behind the cursor.
func (s *Session) CorrectRate() float64 {
	s.init()
	if s.cursor == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < s.cursor; i++ {
		if v, ok := s.graded[i]; ok && v.Outcome == Correct {
			correct++
		}
	}
	return float64(correct) / float64(s.cursor)
}

// Mark flags the current question for review.
func (s *Session) Mark() error {
	return s.setMarked(true)
}

// Unmark clears the review flag of the current question.
func (s *Session) Unmark() error {
	return s.setMarked(false)
}

func (s *Session) setMarked(on bool) error {
	s.init()
	if s.cursor == len(s.sequence) {
		return ErrSessionComplete
	}
	if on {
		s.marked[s.cursor] = true
	} else {
		delete(s.marked, s.cursor)
	}
	return nil
}

// Outcome returns the verdict recorded for question i, if any.
func (s *Session) Outcome(i int) (Verdict, bool) {
	s.init()
	v, ok := s.graded[i]
	return v, ok
}

// Verdicts returns a copy of every recorded verdict keyed by question index.
func (s *Session) Verdicts() map[int]Verdict {
	s.init()
	out := make(map[int]Verdict, len(s.graded))
	for i, v := range s.graded {
		out[i] = v
	}
	return out
}
