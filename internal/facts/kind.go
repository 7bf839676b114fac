package facts

import (
	"strings"
	"sync"
)

// Kind classifies a fact field and selects its fallback when absent.
type Kind int

const (
	// KindAuto resolves the kind from the registry, then from the field name.
	KindAuto Kind = iota
	KindCurrency
	KindName
	KindNumeric
	KindDate
	KindText
	KindCommentary
)

func (k Kind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindCurrency:
		return "currency"
	case KindName:
		return "name"
	case KindNumeric:
		return "numeric"
	case KindDate:
		return "date"
	case KindText:
		return "text"
	case KindCommentary:
		return "commentary"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name back to a Kind. Unknown names yield KindAuto.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "currency":
		return KindCurrency
	case "name", "identifier":
		return KindName
	case "numeric", "number":
		return KindNumeric
	case "date":
		return KindDate
	case "text":
		return KindText
	case "commentary", "comment":
		return KindCommentary
	default:
		return KindAuto
	}
}

// Registry holds explicit kinds and legacy aliases for known fields.
// Keys are "section.field".
type Registry struct {
	mu      sync.RWMutex
	kinds   map[string]Kind
	aliases map[string]string
}

// NewRegistry creates a Registry pre-loaded with the standard investment
// memo fields.
func NewRegistry() *Registry {
	r := &Registry{
		kinds:   make(map[string]Kind),
		aliases: make(map[string]string),
	}
	for key, k := range defaultKinds {
		r.kinds[key] = k
	}
	r.aliases["searcher_name"] = "investor_person_names"
	return r
}

var defaultKinds = map[string]Kind{
	"identification.company_name":              KindName,
	"identification.investor_name":             KindName,
	"identification.searcher_name":             KindName,
	"identification.investor_person_names":     KindName,
	"identification.fund_manager_name":         KindName,
	"identification.fund_name":                 KindName,
	"identification.search_start_date":         KindDate,
	"transaction_structure.currency":           KindCurrency,
	"transaction_structure.ev_mm":              KindNumeric,
	"transaction_structure.stake_pct":          KindNumeric,
	"transaction_structure.multiple_ev_ebitda": KindNumeric,
	"financials_history.ebitda_current_mm":     KindNumeric,
	"financials_history.revenue_current_mm":    KindNumeric,
	"returns.irr_pct":                          KindNumeric,
	"returns.moic":                             KindNumeric,
}

// Register sets an explicit kind for section.field.
func (r *Registry) Register(section, field string, k Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[section+"."+field] = k
}

// Alias declares legacy as the secondary key consulted when field is absent.
func (r *Registry) Alias(field, legacy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[field] = legacy
}

// KindOf returns the registered kind, or the name-inferred kind.
func (r *Registry) KindOf(section, field string) Kind {
	r.mu.RLock()
	k, ok := r.kinds[section+"."+field]
	r.mu.RUnlock()
	if ok {
		return k
	}
	return InferKind(field)
}

// AliasOf returns the legacy key for field, if one is registered.
func (r *Registry) AliasOf(field string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.aliases[field]
	return a, ok
}

var (
	currencyHints   = []string{"currency", "moeda"}
	dateHints       = []string{"date", "year", "periodo", "period"}
	dateTokens      = []string{"ano"}
	nameHints       = []string{"name", "nome", "identifier", "identificador", "vintage"}
	commentaryHints = []string{"commentary", "comentario"}
	numericHints    = []string{
		"pct", "percent", "multiple", "ratio", "irr", "moic", "target",
		"ticket", "revenue", "ebitda", "debt", "equity", "cash", "earnout",
		"seller_note",
	}
	numericTokens = []string{"mm", "cap"}
)

// InferKind classifies a field by its name. Short hints only match whole
// underscore-separated tokens so "commentary" is not read as "mm".
func InferKind(field string) Kind {
	name := strings.ToLower(field)
	tokens := strings.Split(name, "_")

	switch {
	case containsAny(name, currencyHints):
		return KindCurrency
	case containsAny(name, dateHints) || hasToken(tokens, dateTokens):
		return KindDate
	case containsAny(name, nameHints):
		return KindName
	case containsAny(name, commentaryHints):
		return KindCommentary
	case containsAny(name, numericHints) || hasToken(tokens, numericTokens):
		return KindNumeric
	default:
		return KindText
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasToken(tokens, want []string) bool {
	for _, t := range tokens {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}
