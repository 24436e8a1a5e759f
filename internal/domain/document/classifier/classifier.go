// Package classifier decides which document kind a blob of OCR/PDF text
// represents. It counts, per kind, how many of that kind's keywords occur in
// the text (case-insensitive substring) and picks the highest non-zero count,
// breaking ties by a fixed priority order. All patterns are compiled into a
// single Aho-Corasick automaton, so classification is one pass over the text
// regardless of how many keywords exist.
package classifier

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
)

// A run of 47-48 digits (possibly broken by the usual "." and " " group
// separators) is a typed payment line; its presence is counted as boleto
// evidence even when no boleto wording survived OCR.
var typedLineRe = regexp.MustCompile(`(?:\d[\. ]?){46,47}\d`)

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	matcher     *ahocorasick.Matcher
	patternType []document.Type
}

// New builds the classifier automaton from the static keyword sets.
func New() *Classifier {
	var patterns [][]byte
	var patternType []document.Type

	// Iterate in priority order so the automaton layout is deterministic.
	for _, docType := range priority {
		for _, kw := range keywordSets[docType] {
			patterns = append(patterns, []byte(strings.ToUpper(kw)))
			patternType = append(patternType, docType)
		}
	}

	return &Classifier{
		matcher:     ahocorasick.NewMatcher(patterns),
		patternType: patternType,
	}
}

// Classify returns the best-matching document kind, or TypeUnknown when no
// keyword set scores above zero. It never fails; garbage in, unknown out.
func (c *Classifier) Classify(text string) document.Type {
	docType, _ := c.ClassifyWithScores(text)
	return docType
}

// ClassifyWithScores also exposes the per-kind keyword counts, for metrics
// and tests.
func (c *Classifier) ClassifyWithScores(text string) (document.Type, map[document.Type]int) {
	scores := make(map[document.Type]int)
	if strings.TrimSpace(text) == "" {
		return document.TypeUnknown, scores
	}

	// Pad with spaces so tokens carrying explicit boundaries (" iss ") can
	// match at the very start or end of the text.
	normalized := " " + strings.ToUpper(text) + " "

	// Each matched pattern index is reported once, so the per-kind score is
	// the number of distinct keywords present.
	for _, idx := range c.matcher.Match([]byte(normalized)) {
		if idx >= 0 && idx < len(c.patternType) {
			scores[c.patternType[idx]]++
		}
	}

	if typedLineRe.MatchString(text) {
		scores[document.TypeBoleto]++
	}

	best := document.TypeUnknown
	bestScore := 0
	for _, docType := range priority {
		if scores[docType] > bestScore {
			best = docType
			bestScore = scores[docType]
		}
	}

	return best, scores
}
