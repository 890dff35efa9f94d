package learningassistant

import "encoding/json"

// Outcome is the binary result of grading one submission.
type Outcome bool

const (
	Incorrect Outcome = false
	Correct   Outcome = true
)

func (o Outcome) String() string {
	if o {
		return "correct"
	}
	return "incorrect"
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Outcome(s == "correct")
	return nil
}

// Verdict is the graded result of one submission.
type Verdict struct {
	Outcome     Outcome   `json:"verdict"`
	GroundTruth Selection `json:"groundTruthLetters"`
	Selection   Selection `json:"selection"`
}

// Grade compares sel with the correct letters of q. Only an exact match is
// correct; subsets and supersets are not.
func Grade(q Question, sel Selection) Verdict {
	truth := q.GroundTruth()
	sel = NewSelection(sel...)
	return Verdict{
		Outcome:     Outcome(sel.Equal(truth)),
		GroundTruth: truth,
		Selection:   sel,
	}
}
