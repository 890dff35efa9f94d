package learningassistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strconv"
	"sync"
)

// translationKey identifies a question by content, not by ID. IDs come from
// imported records and may repeat across banks.
type translationKey struct {
	lang   Language
	digest string
}

// TranslationCache memoizes translations per question and language. It
// passes ProposeAnswer through, so it can stand in for the wrapped Assistant.
type TranslationCache struct {
	assistant Assistant

	mu      sync.Mutex
	entries map[translationKey]Question
}

var _ Assistant = (*TranslationCache)(nil)

func NewTranslationCache(a Assistant) *TranslationCache {
	return &TranslationCache{
		assistant: a,
		entries:   make(map[translationKey]Question),
	}
}

func (c *TranslationCache) ProposeAnswer(ctx context.Context, q Question) (Selection, error) {
	return c.assistant.ProposeAnswer(ctx, q)
}

// Translate returns the cached translation of q or asks the assistant.
// Failed translations are not cached.
func (c *TranslationCache) Translate(ctx context.Context, q Question, lang Language) (Question, error) {
	key := keyFor(q, lang)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		checked, err := CheckTranslation(q, cached)
		if err == nil {
			VerboseLog("Translation cache hit for question %s (%s)", q.ID, lang)
			return checked, nil
		}
		log.Printf("Dropping cached translation of question %s (%s): %v", q.ID, lang, err)
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}

	translated, err := c.assistant.Translate(ctx, q, lang)
	if err != nil {
		return Question{}, err
	}
	translated, err = CheckTranslation(q, translated)
	if err != nil {
		return Question{}, err
	}

	c.mu.Lock()
	c.entries[key] = translated
	c.mu.Unlock()
	return translated.Clone(), nil
}

// Len returns the number of cached translations.
func (c *TranslationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// keyFor digests the prompt, explanation and every answer with its flag, in
// display order. Fields are length-prefixed so no two questions share a key.
func keyFor(q Question, lang Language) translationKey {
	h := sha256.New()
	field := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	field(q.Text)
	field(q.Explanation)
	for _, a := range q.Answers {
		field(a.Text)
		field(strconv.FormatBool(a.Correct))
	}
	return translationKey{lang: lang, digest: hex.EncodeToString(h.Sum(nil))}
}

// Translated replaces the text of v with that of tq, which must be a checked
// translation of the question v was rendered from.
func (v QuestionView) Translated(tq Question) QuestionView {
	if len(tq.Answers) != len(v.Options) {
		return v
	}
	out := v
	out.Text = tq.Text
	out.Options = make([]OptionView, len(v.Options))
	for i, o := range v.Options {
		out.Options[i] = OptionView{Letter: o.Letter, Text: tq.Answers[i].Text}
	}
	if v.Explanation != "" {
		out.Explanation = tq.Explanation
	}
	return out
}
