package learningassistant_test

import (
	"testing"

	"learningassistant"

	"github.com/stretchr/testify/require"
)

func TestNewSessionValidatesBank(t *testing.T) {
	_, err := learningassistant.NewSession(nil)
	require.ErrorIs(t, err, learningassistant.ErrEmptyBank)

	bank := sampleBank(3)
	bank[1].Answers[0].Correct = false
	bank[1].Answers[1].Correct = false
	bank[1].Answers[2].Correct = false
	bank[1].Answers[3].Correct = false
	_, err = learningassistant.NewSession(bank)
	require.ErrorIs(t, err, learningassistant.ErrMalformedRecord)

	_, err = learningassistant.NewSession(sampleBank(3), learningassistant.WithLimit(-1))
	require.Error(t, err)
}

func TestSessionDoesNotShareBank(t *testing.T) {
	bank := sampleBank(5)
	s, err := learningassistant.NewSession(bank, learningassistant.WithSeed(1))
	require.NoError(t, err)

	bank[0].Answers[0].Text = "changed"
	for i := 0; i < s.TotalCount(); i++ {
		q, ok := s.QuestionAt(i)
		require.True(t, ok)
		for _, a := range q.Answers {
			require.NotEqual(t, "changed", a.Text)
		}
	}
}

func TestSessionSeededIsReproducible(t *testing.T) {
	a := newSession(t, 10, learningassistant.WithSeed(42))
	b := newSession(t, 10, learningassistant.WithSeed(42))
	for i := 0; i < 10; i++ {
		qa, _ := a.QuestionAt(i)
		qb, _ := b.QuestionAt(i)
		require.Equal(t, qa, qb)
	}
}

func TestSessionWithLimit(t *testing.T) {
	s := newSession(t, 10, learningassistant.WithLimit(3))
	require.Equal(t, 3, s.TotalCount())

	s = newSession(t, 2, learningassistant.WithLimit(5))
	require.Equal(t, 2, s.TotalCount())
}

func TestSubmitEmptySelection(t *testing.T) {
	s := newSession(t, 3)
	_, err := s.Submit(nil)
	require.ErrorIs(t, err, learningassistant.ErrEmptySelection)

	_, err = s.Submit(learningassistant.NewSelection(" ", ""))
	require.ErrorIs(t, err, learningassistant.ErrEmptySelection)

	require.Empty(t, s.Verdicts())
}

func TestSubmitTwiceWithoutAdvance(t *testing.T) {
	s := newSession(t, 3, learningassistant.WithSeed(5))
	q, ok := s.CurrentQuestion()
	require.True(t, ok)

	first, err := s.Submit(q.GroundTruth())
	require.NoError(t, err)
	require.Equal(t, learningassistant.Correct, first.Outcome)

	_, err = s.Submit(wrongSelection(t, q))
	require.ErrorIs(t, err, learningassistant.ErrAlreadySubmitted)

	recorded, ok := s.Outcome(0)
	require.True(t, ok)
	require.Equal(t, first, recorded)
	require.Equal(t, 0, s.Cursor())
}

func TestSubmitUnknownLetter(t *testing.T) {
	s := newSession(t, 3)
	_, err := s.Submit(seq("E"))
	require.ErrorIs(t, err, learningassistant.ErrUnknownLetter)
	_, ok := s.Outcome(0)
	require.False(t, ok)
}

func TestAdvanceBeforeSubmit(t *testing.T) {
	s := newSession(t, 3)
	require.ErrorIs(t, s.Advance(), learningassistant.ErrNotYetGraded)
	require.Equal(t, 0, s.Cursor())
}

func TestCorrectRate(t *testing.T) {
	s := newSession(t, 5, learningassistant.WithSeed(9))
	require.Equal(t, 0.0, s.CorrectRate())

	for i := 0; i < 5; i++ {
		q, ok := s.CurrentQuestion()
		require.True(t, ok)
		sel := q.GroundTruth()
		if i >= 2 {
			sel = wrongSelection(t, q)
		}
		_, err := s.Submit(sel)
		require.NoError(t, err)
		require.NoError(t, s.Advance())
	}

	require.Equal(t, 0.4, s.CorrectRate())
}

func TestCorrectRateIgnoresUnadvancedVerdict(t *testing.T) {
	s := newSession(t, 3, learningassistant.WithSeed(2))
	q, _ := s.CurrentQuestion()
	_, err := s.Submit(q.GroundTruth())
	require.NoError(t, err)
	require.Equal(t, 0.0, s.CorrectRate())

	require.NoError(t, s.Advance())
	q, _ = s.CurrentQuestion()
	_, err = s.Submit(q.GroundTruth())
	require.NoError(t, err)
	require.Equal(t, 1.0, s.CorrectRate())
}

func playThrough(t *testing.T, s *learningassistant.Session) {
	t.Helper()
	for i := 0; i < s.TotalCount(); i++ {
		q, ok := s.CurrentQuestion()
		require.True(t, ok)
		_, err := s.Submit(q.GroundTruth())
		require.NoError(t, err)
		require.NoError(t, s.Advance())
	}
}

func TestSessionReachesTerminal(t *testing.T) {
	s := newSession(t, 10)
	playThrough(t, s)

	_, ok := s.CurrentQuestion()
	require.False(t, ok)
	require.True(t, s.Terminal())
	require.Equal(t, 10, s.Cursor())

	_, ok = s.View()
	require.False(t, ok)
	_, err := s.Submit(seq("A"))
	require.ErrorIs(t, err, learningassistant.ErrSessionComplete)
	require.ErrorIs(t, s.Advance(), learningassistant.ErrSessionComplete)
	require.ErrorIs(t, s.Mark(), learningassistant.ErrSessionComplete)
	require.Equal(t, 1.0, s.CorrectRate())
}

func TestResetTerminalSession(t *testing.T) {
	s := newSession(t, 10, learningassistant.WithSeed(11))
	playThrough(t, s)
	require.True(t, s.Terminal())

	s.Reset()
	require.Equal(t, 0, s.Cursor())
	require.Empty(t, s.Verdicts())
	require.Equal(t, 10, s.TotalCount())
	require.False(t, s.Terminal())
	require.Equal(t, 0.0, s.CorrectRate())

	_, ok := s.CurrentQuestion()
	require.True(t, ok)
}

func TestPendingSelection(t *testing.T) {
	s := newSession(t, 2)
	require.NoError(t, s.SetPending(seq("b", "A")))
	require.Equal(t, seq("A", "B"), s.Pending())

	q, _ := s.CurrentQuestion()
	_, err := s.Submit(q.GroundTruth())
	require.NoError(t, err)
	require.NoError(t, s.Advance())
	require.Empty(t, s.Pending())
}

func TestViewRevealsAfterSubmit(t *testing.T) {
	s := newSession(t, 2, learningassistant.WithSeed(4))
	v, ok := s.View()
	require.True(t, ok)
	require.Equal(t, 1, v.Number)
	require.Len(t, v.Options, 4)
	require.Equal(t, 1, v.AnswerCount)
	require.Empty(t, v.Explanation)
	require.Empty(t, v.GroundTruth)
	for i, o := range v.Options {
		want, _ := learningassistant.LetterAt(i)
		require.Equal(t, want, o.Letter)
	}

	q, _ := s.CurrentQuestion()
	wrong := wrongSelection(t, q)
	_, err := s.Submit(wrong)
	require.NoError(t, err)

	v, ok = s.View()
	require.True(t, ok)
	require.Equal(t, q.Explanation, v.Explanation)
	require.Equal(t, q.GroundTruth(), v.GroundTruth)
	require.Equal(t, wrong, v.Selection)
}

func TestMarkAndReport(t *testing.T) {
	s := newSession(t, 3, learningassistant.WithSeed(8), learningassistant.WithID("sitting-1"))
	require.Equal(t, "sitting-1", s.ID())

	// question 1: marked, answered correctly
	require.NoError(t, s.Mark())
	v, _ := s.View()
	require.True(t, v.Marked)
	q, _ := s.CurrentQuestion()
	_, err := s.Submit(q.GroundTruth())
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	// question 2: marked then unmarked, answered wrong
	require.NoError(t, s.Mark())
	require.NoError(t, s.Unmark())
	q, _ = s.CurrentQuestion()
	_, err = s.Submit(wrongSelection(t, q))
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	r := s.Report()
	require.Equal(t, "sitting-1", r.SessionID)
	require.Equal(t, 3, r.Total)
	require.Equal(t, 2, r.Answered)
	require.Equal(t, 1, r.Correct)
	require.Equal(t, 0.5, r.CorrectRate)
	require.Len(t, r.Marked, 1)
	require.Equal(t, 1, r.Marked[0].Number)
	require.Len(t, r.Incorrect, 1)
	require.Equal(t, 2, r.Incorrect[0].Number)
	require.Equal(t, q.GroundTruth(), r.Incorrect[0].GroundTruth)
}

func TestReportCountsSubmittedCurrentQuestion(t *testing.T) {
	s := newSession(t, 1, learningassistant.WithSeed(2))
	q, _ := s.CurrentQuestion()
	_, err := s.Submit(q.GroundTruth())
	require.NoError(t, err)

	r := s.Report()
	require.Equal(t, 1, r.Answered)
	require.Equal(t, 1, r.Correct)
	require.Equal(t, 1.0, r.CorrectRate)
	require.Empty(t, r.Incorrect)

	// the running rate only covers questions advanced past
	require.Equal(t, 0.0, s.CorrectRate())
	require.NoError(t, s.Advance())
	require.Equal(t, s.CorrectRate(), s.Report().CorrectRate)
}
