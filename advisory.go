package learningassistant

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultAdvisoryTimeout bounds a single cross-check call.
const DefaultAdvisoryTimeout = 30 * time.Second

// Advisory is the assistant's opinion on a question, next to the real
// answer. Available is false whenever the assistant could not be asked.
type Advisory struct {
	Available   bool      `json:"available"`
	Proposed    Selection `json:"proposed,omitempty"`
	GroundTruth Selection `json:"groundTruthLetters,omitempty"`
	Agrees      bool      `json:"agrees"`
	Error       string    `json:"error,omitempty"`
}

// Label is the short status shown next to a graded question.
func (a Advisory) Label() string {
	switch {
	case !a.Available:
		return "unavailable"
	case a.Agrees:
		return "pass"
	default:
		return "different"
	}
}

// CrossCheck asks a to solve q and compares the answer with the ground
// truth. Errors are logged and reported as an unavailable advisory.
func CrossCheck(ctx context.Context, a Assistant, q Question, timeout time.Duration) Advisory {
	if a == nil {
		return Advisory{Error: ErrAdvisoryUnavailable.Error()}
	}
	if timeout <= 0 {
		timeout = DefaultAdvisoryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proposed, err := a.ProposeAnswer(ctx, q)
	if err == nil {
		proposed = NewSelection(proposed...)
		for _, l := range proposed {
			if i := l.Index(); i < 0 || i >= len(q.Answers) {
				err = fmt.Errorf("%w: proposed %q", ErrUnknownLetter, l)
				break
			}
		}
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrAdvisoryUnavailable, err)
		log.Printf("Cross-check for question %s failed: %v", q.ID, err)
		return Advisory{Error: err.Error()}
	}

	truth := q.GroundTruth()
	return Advisory{
		Available:   true,
		Proposed:    proposed,
		GroundTruth: truth,
		Agrees:      proposed.Equal(truth),
	}
}

// CrossCheckAsync runs CrossCheck in its own goroutine. The channel is
// buffered so the result is never blocked on a reader.
func CrossCheckAsync(ctx context.Context, a Assistant, q Question, timeout time.Duration) <-chan Advisory {
	out := make(chan Advisory, 1)
	q = q.Clone()
	go func() {
		out <- CrossCheck(ctx, a, q, timeout)
		close(out)
	}()
	return out
}
