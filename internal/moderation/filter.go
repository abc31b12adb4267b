// Package moderation provides content filtering for user submissions. It
// screens questions, answers and comments for restricted words before they
// are persisted.
package moderation

import (
	"strings"

	"github.com/campusqa/moderation/internal/rules"
)

// punctuation is the fixed set of characters replaced with spaces before
// tokenizing. Anything outside this set (apostrophes, digits, non-ASCII)
// stays part of the token.
const punctuation = ".,/#!$%^&*;:{}=-_`~()"

var punctReplacer = buildReplacer()

func buildReplacer() *strings.Replacer {
	pairs := make([]string, 0, len(punctuation)*2)
	for _, r := range punctuation {
		pairs = append(pairs, string(r), " ")
	}
	return strings.NewReplacer(pairs...)
}

// Tokenize lowercases text, blanks out punctuation and splits the result on
// whitespace. Empty tokens are dropped.
func Tokenize(text string) []string {
	return strings.Fields(punctReplacer.Replace(strings.ToLower(text)))
}

// Scan tests text against rs and returns the first matching rule, or nil.
//
// Exact token matches are tried first, in rule order. Only if none is found
// does a substring pass run: for each token in order, the first rule whose
// word occurs inside the token wins. The substring pass is deliberately
// broad ("classroom" matches "ass").
func Scan(text string, rs []rules.Rule) *rules.Rule {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	words := make([]string, len(rs))
	present := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		present[tok] = struct{}{}
	}

	for i := range rs {
		words[i] = strings.ToLower(rs[i].Word)
		if words[i] == "" {
			continue
		}
		if _, ok := present[words[i]]; ok {
			return &rs[i]
		}
	}

	for _, tok := range tokens {
		for i := range rs {
			if words[i] != "" && strings.Contains(tok, words[i]) {
				return &rs[i]
			}
		}
	}
	return nil
}
