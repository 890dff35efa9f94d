package learningassistant

import (
	"context"
	"log"
	"sort"
)

// Report is the result page of a sitting.
type Report struct {
	SessionID   string         `json:"sessionId"`
	Total       int            `json:"total"`
	Answered    int            `json:"answered"`
	Correct     int            `json:"correct"`
	CorrectRate float64        `json:"correctRate"`
	Incorrect   []QuestionView `json:"incorrect"`
	Marked      []QuestionView `json:"marked"`
	Summary     string         `json:"summary,omitempty"`
}

// Report collects totals plus the incorrect and marked questions, in
// sequence order. Every graded question counts, including a current one
// that was submitted but not yet advanced past, and CorrectRate is
// Correct over Answered.
func (s *Session) Report() Report {
	s.init()
	r := Report{
		SessionID: s.id,
		Total:     len(s.sequence),
		Answered:  len(s.graded),
		Incorrect: []QuestionView{},
		Marked:    []QuestionView{},
	}

	graded := make([]int, 0, len(s.graded))
	for i := range s.graded {
		graded = append(graded, i)
	}
	sort.Ints(graded)
	for _, i := range graded {
		if s.graded[i].Outcome == Correct {
			r.Correct++
			continue
		}
		r.Incorrect = append(r.Incorrect, s.viewAt(i))
	}
	if r.Answered > 0 {
		r.CorrectRate = float64(r.Correct) / float64(r.Answered)
	}

	marked := make([]int, 0, len(s.marked))
	for i := range s.marked {
		marked = append(marked, i)
	}
	sort.Ints(marked)
	for _, i := range marked {
		r.Marked = append(r.Marked, s.viewAt(i))
	}
	return r
}

// SummarizeReport asks the tutor for written feedback on r. The report is
// returned without a summary if the tutor is missing or fails.
func SummarizeReport(ctx context.Context, tutor Tutor, r Report) Report {
	if tutor == nil || r.Answered == 0 {
		return r
	}
	summary, err := tutor.Summarize(ctx, r)
	if err != nil {
		log.Printf("Failed to summarize report for session %s: %v", r.SessionID, err)
		return r
	}
	r.Summary = summary
	return r
}
