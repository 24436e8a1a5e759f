package categorization

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Match_Builtins(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name        string
		description string
		category    string
	}{
		{
			name:        "delivery app behind a card prefix",
			description: "PAG*IFOOD",
			category:    CategoryFood,
		},
		{
			name:        "ride hailing",
			description: "UBER *TRIP 0394",
			category:    CategoryTransport,
		},
		{
			name:        "gas station",
			description: "POSTO SHELL BR 101",
			category:    CategoryFuel,
		},
		{
			name:        "utility bill",
			description: "DEB AUT ENEL DISTRIBUICAO",
			category:    CategoryHousing,
		},
		{
			name:        "pharmacy",
			description: "DROGASIL 1893 SAO PAULO",
			category:    CategoryHealth,
		},
		{
			name:        "streaming",
			description: "NETFLIX.COM ASSINATURA",
			category:    CategoryLeisure,
		},
		{
			name:        "tuition",
			description: "MENSALIDADE COLEGIO OBJETIVO",
			category:    CategoryEducation,
		},
		{
			name:        "federal tax slip",
			description: "DARF RECEITA FEDERAL 0190",
			category:    CategoryTaxes,
		},
		{
			name:        "pix keyword needs word boundaries",
			description: "ENVIO PIX QR CODE",
			category:    CategoryTransfers,
		},
		{
			name:        "payroll credit",
			description: "CRED SALARIO EMPRESA XYZ",
			category:    CategorySalary,
		},
		{
			name:        "marketplace",
			description: "AMAZON MARKETPLACE BR",
			category:    CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := engine.Match(tt.description)
			require.NotNil(t, match)
			assert.Equal(t, tt.category, match.Category)
			assert.False(t, match.IsRule)
		})
	}
}

func TestEngine_Match_Boundaries(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("ted does not fire inside limited", func(t *testing.T) {
		assert.Nil(t, engine.Match("COMPANHIA LIMITED"))
	})

	t.Run("posto does not fire inside imposto", func(t *testing.T) {
		match := engine.Match("IMPOSTO DE RENDA")
		require.NotNil(t, match)
		assert.Equal(t, CategoryTaxes, match.Category)
	})

	t.Run("punctuation becomes a word boundary", func(t *testing.T) {
		match := engine.Match("TED-RECEBIDA JOAO M")
		require.NotNil(t, match)
		assert.Equal(t, CategoryTransfers, match.Category)
	})

	t.Run("keyword at the very start of the text", func(t *testing.T) {
		match := engine.Match("IFOOD")
		require.NotNil(t, match)
		assert.Equal(t, CategoryFood, match.Category)
		assert.Equal(t, "iFood", match.CleanName)
	})
}

func TestEngine_Match_AccentFolding(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		description string
		category    string
	}{
		{"TRANSFERÊNCIA ENVIADA", CategoryTransfers},
		{"PÃO DE AÇÚCAR LJ 93", CategoryFood},
		{"CONDOMÍNIO ED AURORA", CategoryHousing},
		{"FARMÁCIA SÃO JOÃO", CategoryHealth},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			match := engine.Match(tt.description)
			require.NotNil(t, match)
			assert.Equal(t, tt.category, match.Category)
		})
	}
}

func TestEngine_Match_LongerTermWins(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name        string
		description string
		category    string
		cleanName   string
	}{
		{
			name:        "mercado livre is not a grocery",
			description: "MERCADO LIVRE*COMPRA",
			category:    CategoryOther,
			cleanName:   "Mercado Livre",
		},
		{
			name:        "mercado pago is a wallet",
			description: "MERCADO PAGO CONTA DIGITAL",
			category:    CategoryTransfers,
			cleanName:   "Mercado Pago",
		},
		{
			name:        "uber eats is food not transport",
			description: "UBER EATS PEDIDO",
			category:    CategoryFood,
			cleanName:   "Uber Eats",
		},
		{
			name:        "plain mercado stays a grocery",
			description: "MERCADO BOM PRECO",
			category:    CategoryFood,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := engine.Match(tt.description)
			require.NotNil(t, match)
			assert.Equal(t, tt.category, match.Category)
			if tt.cleanName != "" {
				assert.Equal(t, tt.cleanName, match.CleanName)
			}
		})
	}
}

func TestEngine_Match_UserRulesOutrankBuiltins(t *testing.T) {
	ruleID := uuid.New()
	clean := "Padaria da Esquina"
	rules := []Rule{
		{
			ID:        ruleID,
			UserID:    uuid.New(),
			Pattern:   "%PADARIA STELLA%",
			Category:  CategoryLeisure,
			CleanName: &clean,
			Priority:  5,
		},
	}
	engine := NewEngine(rules)

	match := engine.Match("COMPRA CARTAO PADARIA STELLA LTDA")
	require.NotNil(t, match)
	assert.True(t, match.IsRule)
	assert.Equal(t, CategoryLeisure, match.Category)
	assert.Equal(t, clean, match.CleanName)
	require.NotNil(t, match.RuleID)
	assert.Equal(t, ruleID, *match.RuleID)

	// Descriptions outside the rule still hit the builtin table.
	builtin := engine.Match("PADARIA PAO QUENTE")
	require.NotNil(t, builtin)
	assert.False(t, builtin.IsRule)
	assert.Equal(t, CategoryFood, builtin.Category)
}

func TestEngine_Match_RulePriorityOrder(t *testing.T) {
	userID := uuid.New()
	lowID, highID := uuid.New(), uuid.New()
	rules := []Rule{
		{ID: lowID, UserID: userID, Pattern: "%CLINICA%", Category: CategoryHealth, Priority: 1},
		{ID: highID, UserID: userID, Pattern: "%CLINICA VET%", Category: CategoryOther, Priority: 10},
	}
	engine := NewEngine(rules)

	match := engine.Match("CLINICA VET AUQMIA")
	require.NotNil(t, match)
	require.NotNil(t, match.RuleID)
	assert.Equal(t, highID, *match.RuleID)
	assert.Equal(t, CategoryOther, match.Category)
}

func TestEngine_Match_EmptyInput(t *testing.T) {
	engine := NewEngine(nil)
	assert.Nil(t, engine.Match(""))
	assert.Nil(t, engine.Match("   "))
	assert.Nil(t, engine.Match("..."))
}

func TestEngine_MatchBatch(t *testing.T) {
	engine := NewEngine(nil)

	matches := engine.MatchBatch([]string{
		"PAG*IFOOD",
		"SEM CORRESPONDENCIA ZZZ",
		"NETFLIX.COM",
	})

	require.Len(t, matches, 3)
	require.NotNil(t, matches[0])
	assert.Equal(t, CategoryFood, matches[0].Category)
	assert.Nil(t, matches[1])
	require.NotNil(t, matches[2])
	assert.Equal(t, CategoryLeisure, matches[2].Category)
}

func TestEngine_PatternCount(t *testing.T) {
	assert.Greater(t, NewEngine(nil).PatternCount(), 100)

	withRules := NewEngine([]Rule{{UserID: uuid.New(), Pattern: "%ACME%", Category: CategoryOther}})
	assert.Equal(t, NewEngine(nil).PatternCount()+1, withRules.PatternCount())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PAG*IFOOD", " PAG IFOOD "},
		{"transferência", " TRANSFERENCIA "},
		{"  TED -  RECEB ", " TED RECEB "},
		{"R$ 1.234,56", " R 1 234 56 "},
		{"", " "},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}
