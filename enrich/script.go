package enrich

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// scriptPayloadSel matches the structured data blob the platform embeds for
// hydration. Compiled once; the selector is a constant.
var scriptPayloadSel = cascadia.MustCompile(`script#__NEXT_DATA__, script[type="application/json"]`)

// maxPayloadDepth bounds the search inside the script payload. The rating
// lives near the top of the hydration object; descending further mostly
// finds unrelated records (comments, recommendations) whose counters must
// not be mistaken for the article's own.
const maxPayloadDepth = 3

// ratingFromScriptPayload extracts the embedded script JSON and runs a
// depth-bounded search for a rating candidate.
func ratingFromScriptPayload(pageHTML string) (int, bool) {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return 0, false
	}

	for _, node := range cascadia.QueryAll(root, scriptPayloadSel) {
		raw := textContent(node)
		if !gjson.Valid(raw) {
			continue
		}
		if n, ok := searchShallow(gjson.Parse(raw), maxPayloadDepth); ok {
			return n, true
		}
	}
	return 0, false
}

// searchShallow checks the object's own fields for a rating candidate, then
// descends into object-valued fields while depth remains. Fields more than
// maxPayloadDepth levels down are out of reach.
func searchShallow(v gjson.Result, depth int) (int, bool) {
	if depth <= 0 || !v.IsObject() {
		return 0, false
	}

	for _, key := range ratingCandidates {
		if n, ok := numericField(v.Get(key)); ok {
			return n, true
		}
	}

	found := 0
	ok := false
	v.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		if n, nested := searchShallow(value, depth-1); nested {
			found, ok = n, true
			return false
		}
		return true
	})
	return found, ok
}

// textContent concatenates the text children of a node.
func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
