package moderation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Blocklist holds locally banned terms checked before the remote model is
// consulted. A blocklist hit is final and saves the remote round trip.
type Blocklist struct {
	terms []string
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

var lowerCaser = cases.Lower(language.Und)

// foldText lowercases the text and strips diacritics so obfuscated spellings
// still match blocklist terms.
func foldText(text string) string {
	folded, _, err := transform.String(foldTransformer, text)
	if err != nil {
		folded = text
	}
	return lowerCaser.String(folded)
}

// LoadBlocklist reads one term per line, skipping blanks and # comments. A
// missing path yields an empty blocklist so deployments can opt out.
func LoadBlocklist(path string) (*Blocklist, error) {
	if strings.TrimSpace(path) == "" {
		return &Blocklist{}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Blocklist{}, nil
		}
		return nil, fmt.Errorf("open blocklist: %w", err)
	}
	defer file.Close()

	list := &Blocklist{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list.terms = append(list.terms, foldText(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blocklist: %w", err)
	}
	return list, nil
}

// Len reports the number of loaded terms.
func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.terms)
}

// Match returns the blocklist terms present in the text.
func (b *Blocklist) Match(text string) []string {
	if b == nil || len(b.terms) == 0 {
		return nil
	}
	folded := foldText(text)
	var hits []string
	for _, term := range b.terms {
		if strings.Contains(folded, term) {
			hits = append(hits, term)
		}
	}
	return hits
}

// greetingWords short-circuit the remote model: trivially benign transcripts
// made of nothing but pleasantries are approved locally.
var greetingWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "thanks": {}, "thank": {}, "you": {},
	"bye": {}, "goodbye": {}, "good": {}, "morning": {}, "evening": {},
	"night": {}, "welcome": {},
}

// maxGreetingWords bounds the local shortcut. Longer transcripts carry enough
// context that pleasant words alone cannot vouch for them.
const maxGreetingWords = 4

// IsTrivialGreeting reports whether the transcript is at most four words,
// all of them common greeting words.
func IsTrivialGreeting(text string) bool {
	folded := foldText(text)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 || len(words) > maxGreetingWords {
		return false
	}
	for _, word := range words {
		if _, ok := greetingWords[word]; !ok {
			return false
		}
	}
	return true
}
