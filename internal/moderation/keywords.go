package moderation

import (
	"strings"
	"unicode"
)

// stopwords are folded-out of keyword extraction. The list stays small on
// purpose: keywords feed search, not moderation.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "but": {}, "for": {},
	"from": {}, "have": {}, "has": {}, "had": {}, "his": {}, "her": {},
	"its": {}, "not": {}, "our": {}, "out": {}, "she": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "then": {}, "etc": {},
	"this": {}, "was": {}, "were": {}, "will": {}, "with": {}, "what": {},
	"when": {}, "where": {}, "who": {}, "why": {}, "how": {}, "you": {},
	"your": {}, "they": {}, "there": {}, "here": {}, "just": {},
}

// ExtractKeywords derives search keywords from a transcript: folded, split
// on non-letter runs, stopwords and short tokens dropped, order-preserving
// dedupe, capped at limit.
func ExtractKeywords(text string, limit int) []string {
	if limit <= 0 {
		limit = 10
	}
	folded := foldText(text)
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, limit)
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		if _, skip := greetingWords[token]; skip {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) == limit {
			break
		}
	}
	if len(keywords) == 0 {
		return nil
	}
	return keywords
}
