package learningassistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Assistant is the remote capability used for advisory cross-checks and
// translation. Nothing it returns takes part in grading.
type Assistant interface {
	ProposeAnswer(ctx context.Context, q Question) (Selection, error)
	Translate(ctx context.Context, q Question, lang Language) (Question, error)
}

// Tutor holds the conversational features shown next to a question.
type Tutor interface {
	Explain(ctx context.Context, q Question, history []ChatMessage) (*ChunkStream, error)
	Summarize(ctx context.Context, r Report) (string, error)
	PresetQuestions(ctx context.Context, q Question, lang Language) ([]string, error)
}

// ChatMessage is one turn of a tutoring conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChunkStream is a finite, lazily received sequence of text chunks. It
// cannot be resumed; a new stream needs a new Explain call.
type ChunkStream struct {
	recv  func() (string, error)
	close func() error
	done  bool
}

// NewChunkStream wraps a receive function that returns io.EOF when finished.
func NewChunkStream(recv func() (string, error), closeFn func() error) *ChunkStream {
	return &ChunkStream{recv: recv, close: closeFn}
}

// Next returns the next non-empty chunk, or io.EOF once the stream ends.
func (c *ChunkStream) Next() (string, error) {
	for !c.done {
		chunk, err := c.recv()
		if errors.Is(err, io.EOF) {
			c.done = true
			break
		}
		if err != nil {
			c.done = true
			return "", fmt.Errorf("failed to receive chunk: %w", err)
		}
		if chunk != "" {
			return chunk, nil
		}
	}
	return "", io.EOF
}

// Collect drains the stream into a single string.
func (c *ChunkStream) Collect() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := c.Next()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

func (c *ChunkStream) Close() error {
	c.done = true
	if c.close == nil {
		return nil
	}
	return c.close()
}

// CheckTranslation verifies translated has the same answers as orig in the
// same order with the same flags, and carries over the untranslated fields.
func CheckTranslation(orig, translated Question) (Question, error) {
	if len(orig.Answers) != len(translated.Answers) {
		return Question{}, fmt.Errorf("%w: %d answers, want %d",
			ErrTranslationMismatch, len(translated.Answers), len(orig.Answers))
	}
	out := translated.Clone()
	for i, a := range orig.Answers {
		if out.Answers[i].Correct != a.Correct {
			return Question{}, fmt.Errorf("%w: answer %d changed correctness", ErrTranslationMismatch, i)
		}
		if strings.TrimSpace(out.Answers[i].Text) == "" {
			return Question{}, fmt.Errorf("%w: answer %d is empty", ErrTranslationMismatch, i)
		}
		out.Answers[i].Letter = a.Letter
	}
	if strings.TrimSpace(out.Text) == "" {
		return Question{}, fmt.Errorf("%w: empty prompt", ErrTranslationMismatch)
	}
	out.ID = orig.ID
	out.Difficulty = orig.Difficulty
	return out, nil
}
