package domain

import "fmt"

// SessionState is the lifecycle of a guessing session
type SessionState int

const (
	SessionNotStarted SessionState = iota
	SessionActive
	SessionDone
)

func (s SessionState) String() string {
	switch s {
	case SessionNotStarted:
		return "not_started"
	case SessionActive:
		return "active"
	case SessionDone:
		return "done"
	default:
		return "unknown"
	}
}

// AnswerCode is what the remote engine expects as a reply to a question
type AnswerCode int

const (
	AnswerYes AnswerCode = iota
	AnswerNo
	AnswerDontKnow
	AnswerProbably
	AnswerProbablyNot
)

func (c AnswerCode) Valid() bool {
	return c >= AnswerYes && c <= AnswerProbablyNot
}

func (c AnswerCode) String() string {
	return fmt.Sprintf("%d", int(c))
}

// Gender as understood by the remote engine
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Profile identifies the player of a session
type Profile struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   Gender `json:"gender"`
	Language string `json:"language"`
}

// Validate checks the constraints the console front end enforces
func (p Profile) Validate() error {
	if p.Age <= 8 {
		return fmt.Errorf("you must be elder than 8 to play")
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return fmt.Errorf("you must be either (M)ale or (F)emale")
	}
	return nil
}

// NewSessionRequest carries the parameters of the session initialization request
type NewSessionRequest struct {
	Language string
	Name     string
	Age      int
	Gender   Gender
}

// StepRequest carries the parameters of an answer submission
type StepRequest struct {
	Language  string
	PartyID   string
	Signature string
	Step      int
	Answer    AnswerCode
}
