package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/mocks"
	"github.com/seu-repo/talkinator/internal/service/guess"
)

const (
	startPage = `<div class="question"><script>var s = "42,77";</script><span class="n_question">1)</span> Is your character real?</div>`
	nextPage  = `<div class="question"><span class="n_question">2)</span> Is your character a singer?</div>`
	guessPage = `<div class="question">I think of <script>showPerso("1", "p.jpg", "Freddie Mercury/Singer", "");</script></div>`
	busyPage  = `<div class="question">Sorry, servers are busy.</div>`
)

var profile = domain.Profile{Name: "ana", Age: 30, Gender: domain.GenderFemale}

func remote(steps ...string) *mocks.MockGuessingService {
	svc := &mocks.MockGuessingService{}
	svc.NewSessionFunc = func(ctx context.Context, req domain.NewSessionRequest) ([]byte, error) {
		return []byte(startPage), nil
	}
	svc.AnswerFunc = func(ctx context.Context, req domain.StepRequest) ([]byte, error) {
		if req.Step >= len(steps) {
			return nil, errors.New("script exhausted")
		}
		return []byte(steps[req.Step]), nil
	}
	return svc
}

func play(t *testing.T, svc *mocks.MockGuessingService, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	game := NewGame(guess.NewSession(svc, zap.NewNop()), strings.NewReader(input), &out, zap.NewNop())
	err := game.Play(context.Background(), profile)
	return out.String(), err
}

func TestGame_PlaysToAnswer(t *testing.T) {
	svc := remote(nextPage, guessPage)

	out, err := play(t, svc, "y\n-\n")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	for _, want := range []string{
		"Think about a real or fictional character",
		"Is your character real? ",
		"Is your character a singer? ",
		"I think of Freddie Mercury",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if len(svc.Steps) != 2 {
		t.Fatalf("expected 2 answers sent, got %d", len(svc.Steps))
	}
	if svc.Steps[0].Answer != domain.AnswerYes || svc.Steps[1].Answer != domain.AnswerProbablyNot {
		t.Errorf("unexpected answers: %v, %v", svc.Steps[0].Answer, svc.Steps[1].Answer)
	}
}

func TestGame_UnknownTokenQuits(t *testing.T) {
	svc := remote(nextPage, guessPage)

	out, err := play(t, svc, "maybe\ny\n")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if len(svc.Steps) != 0 {
		t.Errorf("expected no answer sent after giving up, got %d", len(svc.Steps))
	}
	if strings.Contains(out, "singer") {
		t.Errorf("game kept going after an unknown token:\n%s", out)
	}
}

func TestGame_LiteralCodes(t *testing.T) {
	svc := remote(nextPage, guessPage)

	if _, err := play(t, svc, "3\n1\n"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if len(svc.Steps) != 2 || svc.Steps[0].Answer != domain.AnswerProbably || svc.Steps[1].Answer != domain.AnswerNo {
		t.Errorf("unexpected steps: %+v", svc.Steps)
	}
}

func TestGame_RemoteErrorPage(t *testing.T) {
	out, err := play(t, remote(busyPage), "y\n")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !strings.Contains(out, "Sorry, servers are busy.") {
		t.Errorf("expected error text printed, got:\n%s", out)
	}
}

func TestGame_Unparseable(t *testing.T) {
	out, err := play(t, remote("<html><body>nothing here</body></html>"), "y\n")
	if err != nil {
		t.Fatalf("parse failures should not be returned, got %v", err)
	}
	if !strings.Contains(out, "oops! the guessing service sent something I could not read") {
		t.Errorf("expected parse apology, got:\n%s", out)
	}
}

func TestGame_RemoteFailure(t *testing.T) {
	svc := remote()
	svc.NewSessionFunc = func(ctx context.Context, req domain.NewSessionRequest) ([]byte, error) {
		return nil, errors.New("connection refused")
	}

	out, err := play(t, svc, "")
	if err == nil {
		t.Fatal("expected remote failure to be returned")
	}
	if !strings.Contains(out, "oops! ") || !strings.Contains(out, "connection refused") {
		t.Errorf("expected failure printed, got:\n%s", out)
	}
}

func TestGame_InputEnds(t *testing.T) {
	svc := remote(nextPage)

	if _, err := play(t, svc, ""); err != nil {
		t.Fatalf("expected clean exit at end of input, got %v", err)
	}
	if len(svc.Steps) != 0 {
		t.Errorf("expected no answers, got %d", len(svc.Steps))
	}
}

func TestGame_BannerSpacing(t *testing.T) {
	out, err := play(t, remote(guessPage), "y\n")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	want := intro + "\n\n" + legend + "\n\n"
	if !strings.HasPrefix(out, want) {
		t.Errorf("expected banners followed by blank lines, got:\n%q", out)
	}
}
