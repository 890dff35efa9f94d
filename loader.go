package learningassistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RecordAnswer is one raw answer option. It decodes from either an object
// ({"text": "...", "is_correct": true}) or a ["text", true] pair.
type RecordAnswer struct {
	Text    string `json:"text"`
	Correct bool   `json:"is_correct"`
}

func (a *RecordAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("answer pair has %d elements, want 2", len(pair))
		}
		if err := json.Unmarshal(pair[0], &a.Text); err != nil {
			return fmt.Errorf("answer label: %w", err)
		}
		if err := json.Unmarshal(pair[1], &a.Correct); err != nil {
			return fmt.Errorf("answer flag: %w", err)
		}
		return nil
	}

	var obj struct {
		Text        *string `json:"text"`
		Label       *string `json:"label"`
		LabelOrText *string `json:"label_or_text"`
		IsCorrect   *bool   `json:"is_correct"`
		Correct     *bool   `json:"correct"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.Text != nil:
		a.Text = *obj.Text
	case obj.LabelOrText != nil:
		a.Text = *obj.LabelOrText
	case obj.Label != nil:
		a.Text = *obj.Label
	}
	switch {
	case obj.IsCorrect != nil:
		a.Correct = *obj.IsCorrect
	case obj.Correct != nil:
		a.Correct = *obj.Correct
	}
	return nil
}

// QuestionRecord is a raw bank entry before validation.
type QuestionRecord struct {
	ID          string         `json:"id,omitempty"`
	Text        string         `json:"text"`
	Answers     []RecordAnswer `json:"answers"`
	Explanation string         `json:"explanation,omitempty"`
	Difficulty  int            `json:"difficulty,omitempty"`
	AnswerCount *int           `json:"answer_count,omitempty"`
}

// UnmarshalJSON accepts both the current field names and the older bank
// file layout (question / explain / level).
func (r *QuestionRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string         `json:"id"`
		Text        string         `json:"text"`
		Question    string         `json:"question"`
		Answers     []RecordAnswer `json:"answers"`
		Explanation string         `json:"explanation"`
		Explain     string         `json:"explain"`
		Difficulty  *int           `json:"difficulty"`
		Level       *int           `json:"level"`
		AnswerCount *int           `json:"answer_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = QuestionRecord{
		ID:          raw.ID,
		Text:        firstNonEmpty(raw.Text, raw.Question),
		Answers:     raw.Answers,
		Explanation: firstNonEmpty(raw.Explanation, raw.Explain),
		AnswerCount: raw.AnswerCount,
	}
	if raw.Difficulty != nil {
		r.Difficulty = *raw.Difficulty
	} else if raw.Level != nil {
		r.Difficulty = *raw.Level
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// toQuestion builds a validated Question from the record.
func (r QuestionRecord) toQuestion() (Question, error) {
	q := Question{
		ID:          r.ID,
		Text:        strings.TrimSpace(r.Text),
		Answers:     make([]Answer, len(r.Answers)),
		Explanation: r.Explanation,
		Difficulty:  r.Difficulty,
	}
	for i, a := range r.Answers {
		q.Answers[i] = Answer{Text: a.Text, Correct: a.Correct}
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	if r.AnswerCount != nil && *r.AnswerCount != q.AnswerCount() {
		return Question{}, fmt.Errorf("%w: declares %d correct answers, flags mark %d",
			ErrMalformedRecord, *r.AnswerCount, q.AnswerCount())
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return q, nil
}

// LoadQuestions validates records in source order. A bad record is reported
// and skipped; it never aborts the rest of the bank. A repeated ID is
// replaced with a fresh one so IDs stay unique within the result.
func LoadQuestions(records []QuestionRecord) ([]Question, []*RecordError) {
	questions := make([]Question, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	var rejected []*RecordError
	for i, r := range records {
		q, err := r.toQuestion()
		if err != nil {
			rejected = append(rejected, &RecordError{Index: i, Err: err})
			continue
		}
		if _, dup := seen[q.ID]; dup {
			id := uuid.NewString()
			VerboseLog("Record %d repeats question ID %q, using %s", i, q.ID, id)
			q.ID = id
		}
		seen[q.ID] = struct{}{}
		questions = append(questions, q)
	}
	return questions, rejected
}

// ParseRecords decodes a JSON array of question records.
func ParseRecords(data []byte) ([]QuestionRecord, error) {
	var records []QuestionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse question records: %w", err)
	}
	return records, nil
}

// ReadBankFile loads one JSON bank file.
func ReadBankFile(path string) ([]Question, []*RecordError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read bank file: %w", err)
	}
	records, err := ParseRecords(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	questions, rejected := LoadQuestions(records)
	for _, re := range rejected {
		re.Source = filepath.Base(path)
	}
	VerboseLog("Loaded %d questions from %s (%d rejected)", len(questions), path, len(rejected))
	return questions, rejected, nil
}

// ReadBankDir concatenates every *.json file in dir, in file name order.
func ReadBankDir(dir string) ([]Question, []*RecordError, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list bank directory: %w", err)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no bank files in %s: %w", dir, ErrNotFound)
	}
	sort.Strings(paths)

	var (
		questions []Question
		rejected  []*RecordError
	)
	for _, p := range paths {
		qs, rej, err := ReadBankFile(p)
		if err != nil {
			return nil, nil, err
		}
		questions = append(questions, qs...)
		rejected = append(rejected, rej...)
	}
	return questions, rejected, nil
}
