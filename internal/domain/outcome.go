package domain

// OutcomeKind tags the result of one session step
type OutcomeKind int

const (
	OutcomeQuestion OutcomeKind = iota
	OutcomeAnswer
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeQuestion:
		return "question"
	case OutcomeAnswer:
		return "answer"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of a single step of a guessing session.
// A Question needs a follow-up answer, Answer and Error end the session.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	Text string      `json:"text"`
}

func Question(text string) Outcome { return Outcome{Kind: OutcomeQuestion, Text: text} }
func Answer(text string) Outcome { return Outcome{Kind: OutcomeAnswer, Text: text} }
func Failure(text string) Outcome { return Outcome{Kind: OutcomeError, Text: text} }

// Terminal reports whether the outcome ends the session
func (o Outcome) Terminal() bool {
	return o.Kind != OutcomeQuestion
}
