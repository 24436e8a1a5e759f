package categorization

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
)

// Match is one keyword or rule hit on a description.
type Match struct {
	Term      string
	Category  string
	CleanName string
	RuleID    *uuid.UUID
	Priority  int
	IsRule    bool
}

// Engine matches descriptions against the built-in merchant table plus a set
// of user rules in a single Aho-Corasick pass over the folded text. Immutable
// after construction and safe for concurrent use.
type Engine struct {
	matcher *ahocorasick.Matcher
	terms   []string
	meta    [][]Match
}

// Rules always outrank built-in keywords, whatever their own priority says.
const rulePriorityFloor = 1000

// NewEngine compiles the built-in keyword table together with the given user
// rules. Duplicate terms share one automaton state; all their metadata is
// kept and the best entry is chosen at match time.
func NewEngine(rules []Rule) *Engine {
	index := make(map[string]int, len(builtinKeywords)+len(rules))
	terms := make([]string, 0, len(builtinKeywords)+len(rules))
	meta := make([][]Match, 0, len(builtinKeywords)+len(rules))

	add := func(term string, m Match) {
		if strings.TrimSpace(term) == "" {
			return
		}
		m.Term = term
		if i, ok := index[term]; ok {
			meta[i] = append(meta[i], m)
			return
		}
		index[term] = len(terms)
		terms = append(terms, term)
		meta = append(meta, []Match{m})
	}

	for _, rule := range rules {
		cleanName := ""
		if rule.CleanName != nil {
			cleanName = *rule.CleanName
		}
		ruleID := rule.ID
		add(normalizeTerm(strings.Trim(rule.Pattern, "%")), Match{
			Category:  rule.Category,
			CleanName: cleanName,
			RuleID:    &ruleID,
			Priority:  rulePriorityFloor + rule.Priority,
			IsRule:    true,
		})
	}

	for _, kw := range builtinKeywords {
		// Built-in terms are authored unaccented; only the case changes.
		// Boundary spaces the author wrote are preserved.
		add(strings.ToUpper(kw.term), Match{
			Category:  kw.category,
			CleanName: kw.name,
		})
	}

	patterns := make([][]byte, len(terms))
	for i, t := range terms {
		patterns[i] = []byte(t)
	}

	return &Engine{
		matcher: ahocorasick.NewMatcher(patterns),
		terms:   terms,
		meta:    meta,
	}
}

// Match returns the best hit for the description, or nil when nothing in the
// table or rules occurs in it.
func (e *Engine) Match(description string) *Match {
	if e.matcher == nil || strings.TrimSpace(description) == "" {
		return nil
	}

	hits := e.matcher.Match([]byte(normalize(description)))
	if len(hits) == 0 {
		return nil
	}

	var best *Match
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.meta) {
			continue
		}
		for i := range e.meta[idx] {
			m := &e.meta[idx][i]
			if better(m, best) {
				cp := *m
				best = &cp
			}
		}
	}
	return best
}

// MatchBatch matches many descriptions in one call; the result slice is
// parallel to the input, with nil where nothing matched.
func (e *Engine) MatchBatch(descriptions []string) []*Match {
	results := make([]*Match, len(descriptions))
	for i, desc := range descriptions {
		results[i] = e.Match(desc)
	}
	return results
}

// PatternCount returns the number of distinct terms in the automaton.
func (e *Engine) PatternCount() int {
	return len(e.terms)
}

// better prefers higher priority, then the longer term: on a tie "MERCADO
// LIVRE" must beat "MERCADO" and "IMPOSTO" must beat "POSTO".
func better(m, best *Match) bool {
	if best == nil {
		return true
	}
	if m.Priority != best.Priority {
		return m.Priority > best.Priority
	}
	return len(strings.TrimSpace(m.Term)) > len(strings.TrimSpace(best.Term))
}

// accentFold maps the uppercase accented letters Brazilian bank files use to
// their plain forms, so keywords are authored once.
var accentFold = map[rune]rune{
	'Á': 'A', 'À': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A',
	'É': 'E', 'È': 'E', 'Ê': 'E', 'Ë': 'E',
	'Í': 'I', 'Ì': 'I', 'Î': 'I', 'Ï': 'I',
	'Ó': 'O', 'Ò': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'Ú': 'U', 'Ù': 'U', 'Û': 'U', 'Ü': 'U',
	'Ç': 'C',
}

// normalize uppercases, folds accents and replaces every punctuation run
// with a single space, so "PAG*IFOOD" and "TED-RECEB" still carry word
// boundaries. The result is padded with one space on each side, allowing
// boundary-anchored terms to match at the very start or end.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToUpper(s) {
		if folded, ok := accentFold[r]; ok {
			r = folded
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// normalizeTerm applies the same folding to a rule pattern, without the
// outer padding: rules match as plain substrings wherever they occur.
func normalizeTerm(s string) string {
	return strings.TrimSpace(normalize(s))
}
