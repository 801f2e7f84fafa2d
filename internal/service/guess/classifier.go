package guess

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/seu-repo/talkinator/internal/domain"
)

var (
	sessionIDsPattern = regexp.MustCompile(`(\d+),(\d+)`)
	literalPattern    = regexp.MustCompile(`"([^"]*)"`)
)

// Classification is what a remote response body says about the session
type Classification struct {
	Outcome domain.Outcome

	// PartyID and Signature are only set when classifying the session init response
	PartyID   string
	Signature string
}

// Classify turns a raw response body of the guessing service into an Outcome.
//
// The single div.question region holds everything: on session init its first
// script carries "party,signature"; a span.n_question marker means the region
// is a question; otherwise a script listing quoted literals names the character
// at index 2. A region with neither is an error message from the engine.
// Any other shape yields ErrProtocolParse and no outcome.
func Classify(body []byte, isSessionInit bool) (Classification, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %v", domain.ErrProtocolParse, err)
	}

	region := findElement(doc, atom.Div, "question")
	if region == nil {
		return Classification{}, fmt.Errorf("%w: question region not found", domain.ErrProtocolParse)
	}

	var c Classification
	if isSessionInit {
		script := findElement(region, atom.Script, "")
		if script == nil {
			return Classification{}, fmt.Errorf("%w: session script not found", domain.ErrProtocolParse)
		}
		m := sessionIDsPattern.FindStringSubmatch(rawText(script))
		if m == nil {
			return Classification{}, fmt.Errorf("%w: session ids not found", domain.ErrProtocolParse)
		}
		c.PartyID, c.Signature = m[1], m[2]
		script.Parent.RemoveChild(script)
	}

	if marker := findElement(region, atom.Span, "n_question"); marker != nil {
		marker.Parent.RemoveChild(marker)
		c.Outcome = domain.Question(regionText(region))
		return c, nil
	}

	if script := findElement(region, atom.Script, ""); script != nil {
		if name, ok := characterName(rawText(script)); ok {
			script.Parent.RemoveChild(script)
			c.Outcome = domain.Answer(strings.TrimSpace(regionText(region) + " " + name))
			return c, nil
		}
	}

	c.Outcome = domain.Failure(regionText(region))
	return c, nil
}

// characterName reads the third quoted literal of a script payload,
// cut at the first slash ("Name/Original name").
func characterName(payload string) (string, bool) {
	literals := literalPattern.FindAllStringSubmatch(payload, -1)
	if len(literals) < 3 {
		return "", false
	}
	name, _, _ := strings.Cut(literals[2][1], "/")
	name = strings.TrimSpace(name)
	return name, name != ""
}

func findElement(n *html.Node, tag atom.Atom, class string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == tag && (class == "" || hasClass(n, class)) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func rawText(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}

// regionText joins the visible text of a region, one space between fragments
func regionText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, strings.Join(strings.Fields(s), " "))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
