package learningassistant_test

import (
	"math/rand"
	"testing"

	"learningassistant"

	"github.com/stretchr/testify/require"
)

func TestShuffleAnswersKeepsPairing(t *testing.T) {
	q := learningassistant.Question{
		ID:   "multi",
		Text: "Pick two",
		Answers: []learningassistant.Answer{
			{Text: "right 1", Correct: true},
			{Text: "wrong 1"},
			{Text: "right 2", Correct: true},
			{Text: "wrong 2"},
			{Text: "wrong 3"},
		},
	}
	correctText := map[string]bool{"right 1": true, "right 2": true}

	for seed := int64(0); seed < 200; seed++ {
		shuffled, err := learningassistant.ShuffleAnswers(q, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.Len(t, shuffled.Answers, len(q.Answers))
		require.Equal(t, q.AnswerCount(), shuffled.AnswerCount())

		for i, a := range shuffled.Answers {
			want, err := learningassistant.LetterAt(i)
			require.NoError(t, err)
			require.Equal(t, want, a.Letter)
			require.Equal(t, correctText[a.Text], a.Correct, "flag moved away from %q", a.Text)
		}
	}

	// the source question is untouched
	require.Equal(t, "right 1", q.Answers[0].Text)
	require.Empty(t, q.Answers[0].Letter)
}

func TestShuffleAnswersSeeded(t *testing.T) {
	q := sampleBank(1)[0]
	a, err := learningassistant.ShuffleAnswers(q, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := learningassistant.ShuffleAnswers(q, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestShuffleAnswersTooManyOptions(t *testing.T) {
	q := learningassistant.Question{Text: "big", Answers: make([]learningassistant.Answer, 27)}
	q.Answers[0].Correct = true
	_, err := learningassistant.ShuffleAnswers(q, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, learningassistant.ErrTooManyOptions)
}

func TestShuffleQuestions(t *testing.T) {
	bank := sampleBank(20)
	shuffled := learningassistant.ShuffleQuestions(bank, rand.New(rand.NewSource(3)))
	require.Len(t, shuffled, len(bank))
	require.Equal(t, "q0", bank[0].ID)

	seen := make(map[string]bool)
	for _, q := range shuffled {
		seen[q.ID] = true
	}
	require.Len(t, seen, len(bank))
}
