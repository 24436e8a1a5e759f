package categorization

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultFuzzyThreshold accepts one edit on a five-letter merchant name
// ("IFOD" → "IFOOD" scores exactly 80) and rejects anything looser.
const DefaultFuzzyThreshold = 80

// FuzzyMatch is a near-miss hit with its similarity score (0-100).
type FuzzyMatch struct {
	Term     string
	Category string
	Score    int
	RuleID   *uuid.UUID
	IsRule   bool
}

type fuzzyPattern struct {
	term     string
	words    int
	category string
	ruleID   *uuid.UUID
	priority int
	isRule   bool
}

// FuzzyMatcher catches the merchant names OCR mangles — dropped letters,
// digit-for-letter swaps — that defeat the exact engine. It compares each
// pattern against same-sized word windows of the description. Immutable
// after construction and safe for concurrent use.
type FuzzyMatcher struct {
	patterns []fuzzyPattern
}

// NewFuzzyMatcher builds the matcher from the built-in table plus user rules.
func NewFuzzyMatcher(rules []Rule) *FuzzyMatcher {
	fm := &FuzzyMatcher{patterns: make([]fuzzyPattern, 0, len(builtinKeywords)+len(rules))}

	add := func(term, category string, ruleID *uuid.UUID, priority int, isRule bool) {
		term = normalizeTerm(term)
		if term == "" {
			return
		}
		fm.patterns = append(fm.patterns, fuzzyPattern{
			term:     term,
			words:    len(strings.Fields(term)),
			category: category,
			ruleID:   ruleID,
			priority: priority,
			isRule:   isRule,
		})
	}

	for _, rule := range rules {
		ruleID := rule.ID
		add(strings.Trim(rule.Pattern, "%"), rule.Category, &ruleID, rulePriorityFloor+rule.Priority, true)
	}
	for _, kw := range builtinKeywords {
		add(kw.term, kw.category, nil, 0, false)
	}

	return fm
}

// Match returns the best pattern scoring at or above the threshold, or nil.
func (fm *FuzzyMatcher) Match(description string, threshold int) *FuzzyMatch {
	tokens := strings.Fields(normalize(description))
	if len(tokens) == 0 {
		return nil
	}

	var best *FuzzyMatch
	bestPriority := 0
	for _, p := range fm.patterns {
		score := fm.bestWindowScore(tokens, p)
		if score < threshold {
			continue
		}
		if best == nil || score > best.Score ||
			(score == best.Score && p.priority > bestPriority) ||
			(score == best.Score && p.priority == bestPriority && len(p.term) > len(best.Term)) {
			best = &FuzzyMatch{
				Term:     p.term,
				Category: p.category,
				Score:    score,
				RuleID:   p.ruleID,
				IsRule:   p.isRule,
			}
			bestPriority = p.priority
		}
	}
	return best
}

// bestWindowScore slides a window of the pattern's own word count across the
// tokens and keeps the best score. Windows shorter than four characters are
// skipped: fuzzy-matching "DE" or "SA" against anything is pure noise.
func (fm *FuzzyMatcher) bestWindowScore(tokens []string, p fuzzyPattern) int {
	n := p.words
	if n < 1 || n > len(tokens) {
		return 0
	}
	best := 0
	for i := 0; i+n <= len(tokens); i++ {
		candidate := strings.Join(tokens[i:i+n], " ")
		if len(candidate) < 4 {
			continue
		}
		if score := fuzzyScore(candidate, p.term); score > best {
			best = score
		}
	}
	return best
}

// fuzzyScore rates how close candidate is to term (0-100).
func fuzzyScore(candidate, term string) int {
	if candidate == term {
		return 100
	}

	// Containment only counts with the term inside the candidate; the
	// reverse direction would turn POSTO into IMPOSTO.
	if strings.Contains(candidate, term) {
		return 75 + 25*len(term)/len(candidate)
	}

	maxLen := len(candidate)
	if len(term) > maxLen {
		maxLen = len(term)
	}
	if maxLen == 0 {
		return 0
	}
	score := 100 * (maxLen - levenshtein(candidate, term)) / maxLen

	// Subsequence hits (dropped letters) get a floor score shrunk by how
	// many edits separate the strings.
	if rank := fuzzy.RankMatch(term, candidate); rank >= 0 {
		if sub := 90 - 10*rank; sub > score {
			score = sub
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// levenshtein is the classic two-row edit distance over runes.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
