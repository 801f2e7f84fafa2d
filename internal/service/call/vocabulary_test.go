package call

import (
	"testing"

	"github.com/seu-repo/talkinator/internal/domain"
)

func TestGenderOf(t *testing.T) {
	tests := []struct {
		text string
		want domain.Gender
		ok   bool
	}{
		{"male", domain.GenderMale, true},
		{"Boy", domain.GenderMale, true},
		{" man ", domain.GenderMale, true},
		{"female", domain.GenderFemale, true},
		{"girl", domain.GenderFemale, true},
		{"woman", domain.GenderFemale, true},
		{"not  sure", domain.GenderFemale, true},
		{"dunno", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := GenderOf(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("GenderOf(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAnswerOf(t *testing.T) {
	tests := []struct {
		text string
		want domain.AnswerCode
		ok   bool
	}{
		{"yes", domain.AnswerYes, true},
		{"Yep", domain.AnswerYes, true},
		{"correct", domain.AnswerYes, true},
		{"i think so", domain.AnswerYes, true},
		{"no", domain.AnswerNo, true},
		{"nope", domain.AnswerNo, true},
		{"no way", domain.AnswerNo, true},
		{"not sure", domain.AnswerNo, true},
		{"maybe", domain.AnswerDontKnow, true},
		{"perhaps", domain.AnswerDontKnow, true},
		{"dunno", domain.AnswerDontKnow, true},
		{"i don't know", domain.AnswerDontKnow, true},
		{"", domain.AnswerYes, false},
		{"banana", domain.AnswerYes, false},
	}

	for _, tt := range tests {
		got, ok := AnswerOf(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AnswerOf(%q) = %s, %v; want %s, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}
