package guess

import (
	"errors"
	"testing"

	"github.com/seu-repo/talkinator/internal/domain"
)

const (
	initPage = `<html><body>
<div class="question">
  <script type="text/javascript">var session = "12345,67890";</script>
  <span class="n_question">1)</span>
  Is your character real?
</div>
</body></html>`

	questionPage = `<html><body><div class="bubble">
<div class="question"><span class="n_question">5)</span> Does your character   wear a hat?</div>
</div></body></html>`

	answerPage = `<html><body>
<div class="question">
  I think of
  <script>showPerso("2871", "photo.jpg", "Sherlock Holmes/Detective", "fictional");</script>
</div>
</body></html>`

	errorPage = `<html><body><div class="question">Sorry, I am <b>too busy</b> right now.</div></body></html>`
)

func TestClassify_SessionInit(t *testing.T) {
	c, err := Classify([]byte(initPage), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.PartyID != "12345" || c.Signature != "67890" {
		t.Errorf("expected ids 12345/67890, got %s/%s", c.PartyID, c.Signature)
	}
	if c.Outcome.Kind != domain.OutcomeQuestion {
		t.Fatalf("expected question, got %s", c.Outcome.Kind)
	}
	if c.Outcome.Text != "Is your character real?" {
		t.Errorf("unexpected question text %q", c.Outcome.Text)
	}
}

func TestClassify_Question(t *testing.T) {
	c, err := Classify([]byte(questionPage), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Outcome != domain.Question("Does your character wear a hat?") {
		t.Errorf("unexpected outcome %+v", c.Outcome)
	}
	if c.PartyID != "" {
		t.Errorf("step responses must not carry session ids, got %q", c.PartyID)
	}
}

func TestClassify_Answer(t *testing.T) {
	c, err := Classify([]byte(answerPage), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Outcome.Kind != domain.OutcomeAnswer {
		t.Fatalf("expected answer, got %s", c.Outcome.Kind)
	}
	if c.Outcome.Text != "I think of Sherlock Holmes" {
		t.Errorf("unexpected answer text %q", c.Outcome.Text)
	}
	if !c.Outcome.Terminal() {
		t.Error("answer must be terminal")
	}
}

func TestClassify_Error(t *testing.T) {
	c, err := Classify([]byte(errorPage), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Outcome != domain.Failure("Sorry, I am too busy right now.") {
		t.Errorf("unexpected outcome %+v", c.Outcome)
	}
}

func TestClassify_ScriptWithoutName(t *testing.T) {
	page := `<div class="question">Oops <script>track("a", "b");</script></div>`
	c, err := Classify([]byte(page), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Outcome.Kind != domain.OutcomeError {
		t.Errorf("expected error outcome, got %s", c.Outcome.Kind)
	}
}

func TestClassify_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		init bool
	}{
		{"empty body", "", false},
		{"no question region", "<html><body><p>maintenance</p></body></html>", false},
		{"init without script", `<div class="question"><span class="n_question">1)</span> Hi</div>`, true},
		{"init without ids", `<div class="question"><script>var x = "abc";</script></div>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify([]byte(tt.body), tt.init)
			if !errors.Is(err, domain.ErrProtocolParse) {
				t.Errorf("expected ErrProtocolParse, got %v", err)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	first, err := Classify([]byte(initPage), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Classify([]byte(initPage), true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if again != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestCharacterName(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{`f("1", "2", "Ada Lovelace")`, "Ada Lovelace", true},
		{`f("1", "2", "Zorro/Don Diego", "x")`, "Zorro", true},
		{`f("1", "2", "")`, "", false},
		{`f("1", "2")`, "", false},
	}

	for _, tt := range tests {
		got, ok := characterName(tt.payload)
		if got != tt.want || ok != tt.ok {
			t.Errorf("characterName(%s) = %q, %v; want %q, %v", tt.payload, got, ok, tt.want, tt.ok)
		}
	}
}
