package learningassistant_test

import (
	"fmt"
	"testing"

	"learningassistant"

	"github.com/stretchr/testify/require"
)

// sampleBank returns n four-option questions with exactly one correct answer.
func sampleBank(n int) []learningassistant.Question {
	bank := make([]learningassistant.Question, n)
	for i := range bank {
		correct := i % 4
		answers := make([]learningassistant.Answer, 4)
		for j := range answers {
			answers[j] = learningassistant.Answer{
				Text:    fmt.Sprintf("q%d option %d", i, j),
				Correct: j == correct,
			}
		}
		bank[i] = learningassistant.Question{
			ID:          fmt.Sprintf("q%d", i),
			Text:        fmt.Sprintf("Question number %d?", i),
			Answers:     answers,
			Explanation: fmt.Sprintf("Because option %d.", correct),
			Difficulty:  50,
		}
	}
	return bank
}

func newSession(t *testing.T, n int, opts ...learningassistant.SessionOption) *learningassistant.Session {
	t.Helper()
	s, err := learningassistant.NewSession(sampleBank(n), opts...)
	require.NoError(t, err)
	return s
}

// wrongSelection returns a single letter that is not a correct answer of q.
func wrongSelection(t *testing.T, q learningassistant.Question) learningassistant.Selection {
	t.Helper()
	for i, a := range q.Answers {
		if !a.Correct {
			l, err := learningassistant.LetterAt(i)
			require.NoError(t, err)
			return learningassistant.Selection{l}
		}
	}
	t.Fatal("question has no incorrect answer")
	return nil
}

func seq(letters ...string) learningassistant.Selection {
	return learningassistant.SelectionFromStrings(letters)
}
