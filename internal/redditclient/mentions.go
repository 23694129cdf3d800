package redditclient

import (
	"sort"
	"strings"

	"foodtrend/internal/model"
	"foodtrend/internal/util"
)

// Extractor finds lexicon foods mentioned in post text. Matching is
// token-boundary aware, so "pho" does not match inside "phone" and
// multi-word terms like "pad thai" survive punctuation between words.
type Extractor struct {
	terms []string // normalized, tokens joined by single spaces
}

func NewExtractor(lexicon []string) *Extractor {
	seen := make(map[string]bool, len(lexicon))
	terms := make([]string, 0, len(lexicon))
	for _, t := range lexicon {
		norm := strings.Join(util.Tokenize(t), " ")
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		terms = append(terms, norm)
	}
	sort.Strings(terms)
	return &Extractor{terms: terms}
}

// Mentions returns the distinct lexicon foods present in text, sorted.
func (e *Extractor) Mentions(text string) []string {
	haystack := " " + strings.Join(util.Tokenize(text), " ") + " "
	var out []string
	for _, t := range e.terms {
		if strings.Contains(haystack, " "+t+" ") {
			out = append(out, t)
		}
	}
	return out
}

// Annotate fills FoodMentions on each post from its title and body and
// returns only the posts that mention at least one food.
func (e *Extractor) Annotate(posts []model.Post) []model.Post {
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		p.FoodMentions = e.Mentions(p.Title + " " + p.Body)
		if len(p.FoodMentions) > 0 {
			out = append(out, p)
		}
	}
	return out
}
