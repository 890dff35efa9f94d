package learningassistant

import (
	"fmt"
	"strings"
)

// Answer is one option of a multiple choice question. Letter is empty for
// bank entries and assigned by position once the options are shuffled.
type Answer struct {
	Letter  Letter `json:"letter,omitempty"`
	Text    string `json:"text"`
	Correct bool   `json:"is_correct"`
}

// Question represents a single quiz question with one or more correct answers
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Answers     []Answer `json:"answers"`
	Explanation string   `json:"explanation"`
	Difficulty  int      `json:"difficulty"` // percentage, informational only
}

// AnswerCount returns the number of answers flagged correct.
func (q Question) AnswerCount() int {
	n := 0
	for _, a := range q.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// Validate checks the structural invariants every loaded question must hold.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: missing prompt", ErrMalformedRecord)
	}
	if len(q.Answers) == 0 {
		return fmt.Errorf("%w: missing answers", ErrMalformedRecord)
	}
	if len(q.Answers) > MaxOptions {
		return fmt.Errorf("%w: %d options, at most %d allowed", ErrTooManyOptions, len(q.Answers), MaxOptions)
	}
	if q.AnswerCount() == 0 {
		return fmt.Errorf("%w: no correct answer", ErrMalformedRecord)
	}
	if q.Difficulty < 0 || q.Difficulty > 100 {
		return fmt.Errorf("%w: difficulty %d out of range", ErrMalformedRecord, q.Difficulty)
	}
	return nil
}

// Clone returns a deep copy so shuffling never writes back into the bank.
func (q Question) Clone() Question {
	c := q
	c.Answers = make([]Answer, len(q.Answers))
	copy(c.Answers, q.Answers)
	return c
}

// GroundTruth returns the letters of the correct answers in display order.
func (q Question) GroundTruth() Selection {
	letters := make(Selection, 0, q.AnswerCount())
	for i, a := range q.Answers {
		if !a.Correct {
			continue
		}
		l, err := LetterAt(i)
		if err != nil {
			break
		}
		letters = append(letters, l)
	}
	return letters
}

// OptionView is a single option as shown to the user, without its flag.
type OptionView struct {
	Letter Letter `json:"letter"`
	Text   string `json:"text"`
}

// QuestionView is the display shape of the current question. Explanation,
// GroundTruth and Selection are only filled once the question is graded.
type QuestionView struct {
	Number      int          `json:"number"`
	Text        string       `json:"text"`
	Options     []OptionView `json:"options"`
	AnswerCount int          `json:"answerCount"`
	Difficulty  int          `json:"difficulty"`
	Marked      bool         `json:"marked"`

	Explanation string    `json:"explanation,omitempty"`
	GroundTruth Selection `json:"groundTruthLetters,omitempty"`
	Selection   Selection `json:"selection,omitempty"`
}

// View renders q for display with its correctness flags withheld.
func (q Question) View(number int) QuestionView {
	options := make([]OptionView, len(q.Answers))
	for i, a := range q.Answers {
		letter := a.Letter
		if letter == "" {
			letter, _ = LetterAt(i)
		}
		options[i] = OptionView{Letter: letter, Text: a.Text}
	}
	return QuestionView{
		Number:      number,
		Text:        q.Text,
		Options:     options,
		AnswerCount: q.AnswerCount(),
		Difficulty:  q.Difficulty,
	}
}

// Language is a translation target understood by the assistant.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageKorean  Language = "ko"
	LanguageSpanish Language = "es"
	LanguageFrench  Language = "fr"
)

var languageNames = map[Language]string{
	LanguageEnglish: "English",
	LanguageKorean:  "Korean",
	LanguageSpanish: "Spanish",
	LanguageFrench:  "French",
}

// ParseLanguage maps a language code to a Language, case-insensitively.
func ParseLanguage(code string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := languageNames[l]; !ok {
		return "", fmt.Errorf("unknown language code: %q", code)
	}
	return l, nil
}

// Name returns the English name of the language, used in prompts.
func (l Language) Name() string {
	if n, ok := languageNames[l]; ok {
		return n
	}
	return string(l)
}
