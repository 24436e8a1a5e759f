package categorization

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyMatcher_Match(t *testing.T) {
	matcher := NewFuzzyMatcher(nil)

	t.Run("one dropped letter", func(t *testing.T) {
		match := matcher.Match("IFOD", DefaultFuzzyThreshold)
		require.NotNil(t, match)
		assert.Equal(t, "IFOOD", match.Term)
		assert.Equal(t, CategoryFood, match.Category)
		assert.Equal(t, 80, match.Score)
	})

	t.Run("mangled streaming name", func(t *testing.T) {
		match := matcher.Match("NETFLX ASSINATURA", DefaultFuzzyThreshold)
		require.NotNil(t, match)
		assert.Equal(t, "NETFLIX", match.Term)
		assert.Equal(t, CategoryLeisure, match.Category)
		assert.Equal(t, 85, match.Score)
	})

	t.Run("exact text still scores 100", func(t *testing.T) {
		match := matcher.Match("IFOOD", 100)
		require.NotNil(t, match)
		assert.Equal(t, 100, match.Score)
	})

	t.Run("imposto outscores the posto it contains", func(t *testing.T) {
		match := matcher.Match("IMPOSTOS FEDERAIS", DefaultFuzzyThreshold)
		require.NotNil(t, match)
		assert.Equal(t, CategoryTaxes, match.Category)
	})

	t.Run("threshold rejects a near miss", func(t *testing.T) {
		assert.Nil(t, matcher.Match("NETFLX ASSINATURA", 90))
	})

	t.Run("multi word window", func(t *testing.T) {
		match := matcher.Match("PAO DE ACURAR LOJA 93", DefaultFuzzyThreshold)
		require.NotNil(t, match)
		assert.Equal(t, "PAO DE ACUCAR", match.Term)
		assert.Equal(t, CategoryFood, match.Category)
	})

	t.Run("short tokens are never compared", func(t *testing.T) {
		assert.Nil(t, matcher.Match("DE SA", DefaultFuzzyThreshold))
	})

	t.Run("unrelated text", func(t *testing.T) {
		assert.Nil(t, matcher.Match("XZQWV BANK", DefaultFuzzyThreshold))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, matcher.Match("", DefaultFuzzyThreshold))
		assert.Nil(t, matcher.Match("***", DefaultFuzzyThreshold))
	})
}

func TestFuzzyMatcher_UserRules(t *testing.T) {
	ruleID := uuid.New()
	matcher := NewFuzzyMatcher([]Rule{
		{ID: ruleID, UserID: uuid.New(), Pattern: "%CLINICA AUQMIA%", Category: CategoryOther, Priority: 3},
	})

	// One typo inside the rule's two-word pattern still resolves to it,
	// beating the builtin CLINICA keyword on score.
	match := matcher.Match("CLINISA AUQMIA", DefaultFuzzyThreshold)
	require.NotNil(t, match)
	assert.True(t, match.IsRule)
	assert.Equal(t, CategoryOther, match.Category)
	require.NotNil(t, match.RuleID)
	assert.Equal(t, ruleID, *match.RuleID)
}

func TestFuzzyScore(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		term      string
		want      int
	}{
		{"identical", "IFOOD", "IFOOD", 100},
		{"term contained in candidate", "IFOODBR", "IFOOD", 92},
		{"one substitution", "NETFLIX", "NETFLIZ", 85},
		{"one deletion", "IFOD", "IFOOD", 80},
		{"unrelated", "BANCO", "NETFLIX", 0},
		{"reverse containment is not containment", "POSTO", "IMPOSTO", 71},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fuzzyScore(tt.candidate, tt.term))
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"ABC", "", 3},
		{"", "ABC", 3},
		{"IFOOD", "IFOOD", 0},
		{"IFOD", "IFOOD", 1},
		{"POSTO", "IMPOSTO", 2},
		{"AÇAÍ", "ACAI", 2},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			assert.Equal(t, tt.want, levenshtein(tt.s1, tt.s2))
		})
	}
}
