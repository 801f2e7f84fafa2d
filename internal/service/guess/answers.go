package guess

import "github.com/seu-repo/talkinator/internal/domain"

// answerTokens are the console shortcuts, in answer code order
var answerTokens = []string{"y", "n", "?", "+", "-"}

var literalCodes = map[string]domain.AnswerCode{
	"0": domain.AnswerYes,
	"1": domain.AnswerNo,
	"2": domain.AnswerDontKnow,
	"3": domain.AnswerProbably,
	"4": domain.AnswerProbablyNot,
}

// ParseAnswerToken maps a console token to an answer code.
// ok is false for anything that is not a known token or literal code.
func ParseAnswerToken(token string) (domain.AnswerCode, bool) {
	for i, t := range answerTokens {
		if token == t {
			return domain.AnswerCode(i), true
		}
	}
	if code, ok := literalCodes[token]; ok {
		return code, true
	}
	return domain.AnswerYes, false
}
