package ports

import (
	"context"

	"github.com/seu-repo/talkinator/internal/domain"
)

// GuessingService performs the raw requests of the remote guessing protocol.
// Response bodies are returned untouched for classification.
type GuessingService interface {
	NewSession(ctx context.Context, req domain.NewSessionRequest) ([]byte, error)
	Answer(ctx context.Context, req domain.StepRequest) ([]byte, error)
}

// GuessingSession is one run of the remote protocol as seen by a front end
type GuessingSession interface {
	Start(ctx context.Context, profile domain.Profile) (domain.Outcome, error)
	Step(ctx context.Context, code domain.AnswerCode) (domain.Outcome, error)
	State() domain.SessionState
}

// SessionFactory creates a fresh session per call
type SessionFactory func() GuessingSession
