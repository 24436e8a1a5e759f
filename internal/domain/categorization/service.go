package categorization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// RuleStore is the persistence surface the service needs.
type RuleStore interface {
	ListRules(ctx context.Context, userID uuid.UUID) ([]Rule, error)
	CreateRule(ctx context.Context, rule *Rule) error
	DeleteRule(ctx context.Context, userID, ruleID uuid.UUID) error
}

// matcherSet bundles the exact engine with its fuzzy fallback. One set is
// compiled per user (their rules layered over the builtin table) plus a
// shared builtin-only set for callers without a user context.
type matcherSet struct {
	engine *Engine
	fuzzy  *FuzzyMatcher
}

func newMatcherSet(rules []Rule) *matcherSet {
	return &matcherSet{
		engine: NewEngine(rules),
		fuzzy:  NewFuzzyMatcher(rules),
	}
}

// suggest runs the exact engine first and falls back to the fuzzy matcher.
func (m *matcherSet) suggest(description string, threshold int) (*Match, *FuzzyMatch) {
	if hit := m.engine.Match(description); hit != nil {
		return hit, nil
	}
	if hit := m.fuzzy.Match(description, threshold); hit != nil {
		return nil, hit
	}
	return nil, nil
}

// Service assigns categories to transaction descriptions. Lookups never
// fail: when the rule store is unreachable the service falls back to the
// builtin table, because a statement import must not stall on a
// categorization hiccup.
type Service struct {
	store     RuleStore
	logger    *slog.Logger
	builtin   *matcherSet
	threshold int

	cacheMu sync.RWMutex
	cache   map[uuid.UUID]*matcherSet
}

// NewService builds a service around the given rule store. A nil store is
// allowed and yields builtin-only categorization.
func NewService(store RuleStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		logger:    logger,
		builtin:   newMatcherSet(nil),
		threshold: DefaultFuzzyThreshold,
		cache:     make(map[uuid.UUID]*matcherSet),
	}
}

// Suggest categorizes a description with the builtin table only. It
// satisfies the normalizer's Categorizer contract for flows that have no
// user rules in scope, such as the CLI.
func (s *Service) Suggest(description string) (string, bool) {
	exact, fuzzy := s.builtin.suggest(description, s.threshold)
	switch {
	case exact != nil:
		return exact.Category, true
	case fuzzy != nil:
		return fuzzy.Category, true
	}
	return "", false
}

// ForUser returns a Categorizer bound to one user's rules. Store failures
// degrade to the builtin table and are logged, not returned.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) *UserCategorizer {
	return &UserCategorizer{svc: s, set: s.matchersFor(ctx, userID)}
}

func (s *Service) matchersFor(ctx context.Context, userID uuid.UUID) *matcherSet {
	s.cacheMu.RLock()
	set, ok := s.cache[userID]
	s.cacheMu.RUnlock()
	if ok {
		return set
	}

	if s.store == nil {
		return s.builtin
	}

	rules, err := s.store.ListRules(ctx, userID)
	if err != nil {
		s.logger.Warn("loading categorization rules failed, using builtin table",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return s.builtin
	}
	if len(rules) == 0 {
		set = s.builtin
	} else {
		set = newMatcherSet(rules)
	}

	s.cacheMu.Lock()
	s.cache[userID] = set
	s.cacheMu.Unlock()
	return set
}

// Categorize resolves one description for a user. The result always carries
// a category; unmatched descriptions come back as CategoryUncategorized
// with the cleaned description, never a guess.
func (s *Service) Categorize(ctx context.Context, userID uuid.UUID, description string) *Result {
	return categorizeWith(s.matchersFor(ctx, userID), description, s.threshold)
}

// CategorizeBatch resolves many descriptions with a single rule lookup.
func (s *Service) CategorizeBatch(ctx context.Context, userID uuid.UUID, descriptions []string) []*Result {
	set := s.matchersFor(ctx, userID)
	results := make([]*Result, len(descriptions))
	for i, d := range descriptions {
		results[i] = categorizeWith(set, d, s.threshold)
	}
	return results
}

func categorizeWith(set *matcherSet, description string, threshold int) *Result {
	result := &Result{
		Description: cleanDescription(description),
		Category:    CategoryUncategorized,
	}

	exact, fz := set.suggest(description, threshold)
	switch {
	case exact != nil:
		result.Category = exact.Category
		result.Matched = strings.TrimSpace(exact.Term)
		result.RuleID = exact.RuleID
		if exact.CleanName != "" {
			result.Description = exact.CleanName
		}
	case fz != nil:
		result.Category = fz.Category
		result.Matched = fz.Term
		result.RuleID = fz.RuleID
		result.Fuzzy = true
	}
	return result
}

// Rules lists the user's own rules, newest first. The builtin table is not
// included: it is not theirs to edit.
func (s *Service) Rules(ctx context.Context, userID uuid.UUID) ([]Rule, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRules(ctx, userID)
}

// ErrInvalidRule rejects a rule that cannot match anything or names an
// unknown category.
var ErrInvalidRule = errors.New("categorization: invalid rule")

// CreateRule validates and persists a user rule, then drops the user's
// compiled matchers so the next lookup sees it.
func (s *Service) CreateRule(ctx context.Context, rule *Rule) error {
	if !ValidCategory(rule.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, rule.Category)
	}
	if normalizeTerm(strings.Trim(rule.Pattern, "%")) == "" {
		return fmt.Errorf("%w: pattern %q is empty after normalization", ErrInvalidRule, rule.Pattern)
	}
	if s.store == nil {
		return fmt.Errorf("categorization: no rule store configured")
	}
	if err := s.store.CreateRule(ctx, rule); err != nil {
		return err
	}
	s.invalidate(rule.UserID)
	return nil
}

// DeleteRule removes a user rule and invalidates the cached matchers.
func (s *Service) DeleteRule(ctx context.Context, userID, ruleID uuid.UUID) error {
	if s.store == nil {
		return fmt.Errorf("categorization: no rule store configured")
	}
	if err := s.store.DeleteRule(ctx, userID, ruleID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) invalidate(userID uuid.UUID) {
	s.cacheMu.Lock()
	delete(s.cache, userID)
	s.cacheMu.Unlock()
}

// UserCategorizer is a Categorizer view over one user's compiled matchers.
type UserCategorizer struct {
	svc *Service
	set *matcherSet
}

// Suggest categorizes a description with the user's rules layered over the
// builtin table.
func (u *UserCategorizer) Suggest(description string) (string, bool) {
	exact, fz := u.set.suggest(description, u.svc.threshold)
	switch {
	case exact != nil:
		return exact.Category, true
	case fz != nil:
		return fz.Category, true
	}
	return "", false
}

// Categorize resolves one description against the user's matchers.
func (u *UserCategorizer) Categorize(description string) *Result {
	return categorizeWith(u.set, description, u.svc.threshold)
}

// descriptionPrefixes are bank-slip boilerplate stripped before display.
// Order matters: longer prefixes first so "COMPRA CARTAO" wins over
// "COMPRA".
var descriptionPrefixes = []string{
	"COMPRA CARTAO ",
	"COMPRA CARTÃO ",
	"COMPRAS C.DEB ",
	"COMPRA DEBITO ",
	"COMPRA DÉBITO ",
	"PAGAMENTO DE ",
	"PAGAMENTO ",
	"PGTO ",
	"DEB AUT ",
	"DEB.AUT ",
	"PAG*",
	"PAG *",
}

// cleanDescription turns a raw statement line into something a human wants
// to read: boilerplate prefixes dropped, trailing card references removed,
// letter case normalized.
func cleanDescription(description string) string {
	cleaned := strings.TrimSpace(description)
	upper := strings.ToUpper(cleaned)
	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(upper, prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}

	// Card machines append a terminal reference like "LOJA X *3921";
	// short numeric tails carry no meaning for the user.
	if idx := strings.LastIndex(cleaned, "*"); idx > 0 {
		tail := strings.TrimSpace(cleaned[idx+1:])
		if tail != "" && len(tail) <= 6 && isNumeric(tail) {
			cleaned = strings.TrimSpace(cleaned[:idx])
		}
	}

	if cleaned == "" {
		return strings.TrimSpace(description)
	}
	return toTitleCase(cleaned)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// toTitleCase capitalizes each word, keeping short connectives lowercase
// the way Portuguese names write them ("Pao de Acucar").
func toTitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		if i > 0 && connectives[word] {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

var connectives = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true,
}
