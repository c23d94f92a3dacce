// Package patterns mines recurring themes out of stored decisions. It is
// deliberately lexical: a keyword table per category, counted over decision
// text, ranked against the caller's question. No model calls involved, so
// it works identically offline.
package patterns

import (
	"math"
	"sort"
	"strings"

	"admem/internal/storage"
)

// categoryKeywords maps a theme category to the trigger words looked for in
// decision and reasoning text
var categoryKeywords = map[string][]string{
	"architecture": {"microservices", "monolith", "event-driven", "serverless", "rest", "graphql"},
	"database":     {"postgres", "mysql", "sqlite", "mongo", "redis", "vector"},
	"frontend":     {"react", "vue", "angular", "svelte", "css", "ui"},
	"devops":       {"docker", "kubernetes", "ci", "deploy", "terraform"},
	"security":     {"auth", "oauth", "encryption", "secrets", "tls"},
}

// Pattern is one observed theme with the decisions that exhibit it
type Pattern struct {
	Keyword  string
	Category string
	Count    int
	Examples []string // decision texts, insertion order
}

// maxExamples bounds how many decision texts a pattern keeps as evidence
const maxExamples = 3

// Extract scans decision text for known keywords and aggregates hits.
// Matching is case-insensitive on whole words so "ci" does not fire inside
// "decision".
func Extract(decisions []*storage.Decision) []Pattern {
	found := map[string]*Pattern{}
	for _, d := range decisions {
		text := strings.ToLower(d.Decision + " " + d.Reasoning)
		words := fieldsLower(text)
		for category, keywords := range categoryKeywords {
			for _, keyword := range keywords {
				if !matches(words, text, keyword) {
					continue
				}
				p, ok := found[keyword]
				if !ok {
					p = &Pattern{Keyword: keyword, Category: category}
					found[keyword] = p
				}
				p.Count++
				if len(p.Examples) < maxExamples {
					p.Examples = append(p.Examples, d.Decision)
				}
			}
		}
	}

	patterns := make([]Pattern, 0, len(found))
	for _, p := range found {
		patterns = append(patterns, *p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Keyword < patterns[j].Keyword
	})
	return patterns
}

// Rank orders patterns by relevance to a free-text question. Scoring:
// direct keyword mention dominates, overlap between the question's words
// and the pattern's examples comes next, raw frequency only breaks ties
// logarithmically.
func Rank(patterns []Pattern, query string) []Pattern {
	queryLower := strings.ToLower(query)
	queryWords := fieldsLower(queryLower)

	type scored struct {
		pattern Pattern
		score   float64
	}
	ranked := make([]scored, 0, len(patterns))
	for _, p := range patterns {
		score := math.Log2(1 + float64(p.Count))
		if strings.Contains(queryLower, p.Keyword) {
			score += 10.0
		}
		if len(p.Examples) > 0 && len(queryWords) > 0 {
			matching := 0
			for _, example := range p.Examples {
				if exampleMentions(example, queryWords) {
					matching++
				}
			}
			score += 5.0 * float64(matching) / float64(len(p.Examples))
		}
		ranked = append(ranked, scored{pattern: p, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]Pattern, len(ranked))
	for i, s := range ranked {
		out[i] = s.pattern
	}
	return out
}

// Summary condenses a project's decision history for presentation
type Summary struct {
	Total       int
	ByType      map[storage.DecisionType]int
	TopPatterns []Pattern           // at most 5, by frequency
	Recent      []*storage.Decision // at most 5, newest first
}

// Summarize builds the digest used by the pattern-discovery surface
func Summarize(decisions []*storage.Decision) Summary {
	summary := Summary{
		Total:  len(decisions),
		ByType: map[storage.DecisionType]int{},
	}
	for _, d := range decisions {
		summary.ByType[d.Type]++
	}

	patterns := Extract(decisions)
	if len(patterns) > 5 {
		patterns = patterns[:5]
	}
	summary.TopPatterns = patterns

	recent := make([]*storage.Decision, len(decisions))
	copy(recent, decisions)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}
	summary.Recent = recent
	return summary
}

func fieldsLower(text string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '-')
	}) {
		words[w] = true
	}
	return words
}

// matches looks for keyword as a whole word, or as a substring when the
// keyword itself is compound ("event-driven")
func matches(words map[string]bool, text, keyword string) bool {
	if words[keyword] {
		return true
	}
	if strings.ContainsAny(keyword, "- ") {
		return strings.Contains(text, keyword)
	}
	return false
}

func exampleMentions(example string, queryWords map[string]bool) bool {
	for w := range fieldsLower(example) {
		if queryWords[w] {
			return true
		}
	}
	return false
}
