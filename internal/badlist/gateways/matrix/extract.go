package matrix

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/haukened/badlist/internal/badlist/domain"
)

// CandidateTexts collects the texts of a message that may carry a
// blocked link: the plain body, the formatted body, and every href
// pulled out of the formatted body's HTML. An anchor's href can differ
// entirely from its visible text, so both are scanned.
//
// Extracted hrefs are lowercased to match the casing the lists are
// curated in; the raw bodies are passed through as given.
func CandidateTexts(c domain.EventContent) []string {
	texts := make([]string, 0, 3)
	if c.Body != "" {
		texts = append(texts, c.Body)
	}
	if c.FormattedBody != "" {
		texts = append(texts, c.FormattedBody)
		texts = append(texts, extractHrefs(c.FormattedBody)...)
	}
	return texts
}

// extractHrefs walks the (possibly malformed) HTML fragment and returns
// lowercased href values. The tokenizer never fails on bad markup, it
// just stops producing tokens, which is the right behavior for
// user-supplied bodies.
func extractHrefs(fragment string) []string {
	var hrefs []string
	tz := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			return hrefs
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := tz.TagName()
		if string(name) != "a" || !hasAttr {
			continue
		}
		for {
			key, val, more := tz.TagAttr()
			if string(key) == "href" && len(val) > 0 {
				hrefs = append(hrefs, strings.ToLower(string(val)))
			}
			if !more {
				break
			}
		}
	}
}
