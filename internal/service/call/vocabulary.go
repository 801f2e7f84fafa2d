package call

import (
	"strings"

	"github.com/seu-repo/talkinator/internal/domain"
)

// Grammar names, as loaded on the speech recognizer
const (
	GrammarGender = "gender"
	GrammarYesNo  = "yesno"
)

// GenderOf maps an utterance recognized with the gender grammar.
// ok is false when the answer is inconclusive.
func GenderOf(text string) (domain.Gender, bool) {
	switch normalize(text) {
	case "male", "boy", "man":
		return domain.GenderMale, true
	case "female", "girl", "woman", "not sure":
		return domain.GenderFemale, true
	}
	return "", false
}

// AnswerOf maps an utterance recognized with the yes/no grammar to an answer code
func AnswerOf(text string) (domain.AnswerCode, bool) {
	text = normalize(text)
	switch {
	case text == "":
		return domain.AnswerYes, false
	case text == "yes" || text == "yep" || text == "correct" || strings.Contains(text, "think"):
		return domain.AnswerYes, true
	case text == "no" || text == "nope" || text == "no way" || text == "not sure":
		return domain.AnswerNo, true
	case text == "maybe" || text == "perhaps" || text == "dunno" || strings.Contains(text, "don't"):
		return domain.AnswerDontKnow, true
	}
	return domain.AnswerYes, false
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
