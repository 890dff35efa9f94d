package learningassistant

import (
	"math/rand"
	"time"
)

// newRand returns a generator for one session. A nil seed means a clock seed.
func newRand(seed *int64) *rand.Rand {
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	return rand.New(rand.NewSource(s))
}

// ShuffleAnswers returns a copy of q with its answers permuted and relabelled
// by position. Each answer keeps its own correctness flag.
func ShuffleAnswers(q Question, rng *rand.Rand) (Question, error) {
	if len(q.Answers) > MaxOptions {
		return Question{}, ErrTooManyOptions
	}
	out := q.Clone()
	rng.Shuffle(len(out.Answers), func(i, j int) {
		out.Answers[i], out.Answers[j] = out.Answers[j], out.Answers[i]
	})
	for i := range out.Answers {
		l, err := LetterAt(i)
		if err != nil {
			return Question{}, err
		}
		out.Answers[i].Letter = l
	}
	return out, nil
}

// ShuffleQuestions returns the questions in a new random order. The input
// slice is left untouched.
func ShuffleQuestions(qs []Question, rng *rand.Rand) []Question {
	out := make([]Question, len(qs))
	copy(out, qs)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
