package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
)

const (
	intro  = "Think about a real or fictional character. I will try to guess who it is."
	legend = "Answer: [y]es, [n]o, [?] don't know, [+] probably, [-] not really"
)

// Session is what the console needs from a guessing session
type Session interface {
	Start(ctx context.Context, profile domain.Profile) (domain.Outcome, error)
	SubmitRawAnswer(token string) (domain.AnswerCode, bool)
	Advance(ctx context.Context) (domain.Outcome, error)
	Done() bool
}

// Game plays one interactive session on a terminal
type Game struct {
	session Session
	in      *bufio.Scanner
	out     io.Writer
	log     *zap.Logger
}

func NewGame(session Session, in io.Reader, out io.Writer, log *zap.Logger) *Game {
	return &Game{
		session: session,
		in:      bufio.NewScanner(in),
		out:     out,
		log:     log,
	}
}

// Play runs the question loop until the session reaches a verdict, the
// player gives up, or input ends.
func (g *Game) Play(ctx context.Context, profile domain.Profile) error {
	fmt.Fprint(g.out, intro, "\n\n")
	fmt.Fprint(g.out, legend, "\n\n")

	outcome, err := g.session.Start(ctx, profile)
	for {
		if err != nil {
			return g.failed(err)
		}

		switch outcome.Kind {
		case domain.OutcomeAnswer, domain.OutcomeError:
			fmt.Fprintln(g.out, outcome.Text)
			return nil
		}

		fmt.Fprintf(g.out, "%s ", outcome.Text)
		if !g.in.Scan() {
			fmt.Fprintln(g.out)
			return g.in.Err()
		}

		if _, ok := g.session.SubmitRawAnswer(strings.TrimSpace(g.in.Text())); !ok || g.session.Done() {
			g.log.Debug("Player gave up")
			return nil
		}
		outcome, err = g.session.Advance(ctx)
	}
}

func (g *Game) failed(err error) error {
	if errors.Is(err, domain.ErrProtocolParse) {
		fmt.Fprintln(g.out, "oops! the guessing service sent something I could not read")
		return nil
	}
	fmt.Fprintf(g.out, "oops! %v\n", err)
	return err
}
