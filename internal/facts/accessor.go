package facts

import "strings"

// DefaultCurrency is returned for absent currency fields.
const DefaultCurrency = "BRL"

// Policy tunes the fallback applied to an absent field.
type Policy struct {
	// Default replaces the kind fallback for currency and name fields.
	Default any

	// Domain contextualizes name placeholders ("searchfund", "gestora",
	// "primario"). Empty falls back to the Accessor's domain.
	Domain string
}

// Accessor reads facts with per-kind fallbacks. It never writes to the
// underlying Facts and is safe for concurrent use.
type Accessor struct {
	facts    Facts
	registry *Registry
	domain   string
	currency string
}

// AccessorOption configures an Accessor.
type AccessorOption func(*Accessor)

// WithRegistry replaces the default kind registry.
func WithRegistry(r *Registry) AccessorOption {
	return func(a *Accessor) { a.registry = r }
}

// WithDomain sets the default placeholder domain.
func WithDomain(domain string) AccessorOption {
	return func(a *Accessor) { a.domain = domain }
}

// WithDefaultCurrency overrides DefaultCurrency.
func WithDefaultCurrency(code string) AccessorOption {
	return func(a *Accessor) { a.currency = code }
}

// NewAccessor creates an Accessor over f. A nil f behaves as empty facts.
func NewAccessor(f Facts, opts ...AccessorOption) *Accessor {
	a := &Accessor{
		facts:    f,
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = NewRegistry()
	}
	return a
}

// Facts returns the underlying fact mapping.
func (a *Accessor) Facts() Facts {
	return a.facts
}

// Get returns section.field, or the fallback for kind when the field is
// absent or empty. A nil return means the caller must omit the fact.
//
// Present values are returned verbatim. When absent, the field's registered
// legacy alias is consulted once before falling back:
//   - currency: policy.Default or the default currency, never nil
//   - name: policy.Default or a bracketed placeholder
//   - numeric, date, text, commentary: nil
func (a *Accessor) Get(section, field string, kind Kind, policy Policy) any {
	if v, ok := a.facts.Lookup(section, field); ok && !IsEmpty(v) {
		return v
	}
	if legacy, ok := a.registry.AliasOf(field); ok {
		if v, ok := a.facts.Lookup(section, legacy); ok && !IsEmpty(v) {
			return v
		}
	}

	if kind == KindAuto {
		kind = a.registry.KindOf(section, field)
	}

	switch kind {
	case KindCurrency:
		if s, ok := policy.Default.(string); ok && s != "" {
			return s
		}
		if a.currency == "" {
			return DefaultCurrency
		}
		return a.currency
	case KindName:
		if !IsEmpty(policy.Default) {
			return policy.Default
		}
		domain := policy.Domain
		if domain == "" {
			domain = a.domain
		}
		return Placeholder(field, domain)
	default:
		return nil
	}
}

// Text is Get with KindAuto rendered as a string. Null facts become "".
func (a *Accessor) Text(section, field string) string {
	return Stringify(a.Get(section, field, KindAuto, Policy{}))
}

// Currency returns the currency code for section.field, never empty.
func (a *Accessor) Currency(section, field string) string {
	return Stringify(a.Get(section, field, KindCurrency, Policy{}))
}

var domainPlaceholders = map[string]map[string]string{
	"searchfund": {
		"company_name":          "[nome da empresa]",
		"investor_name":         "[nome do search fund]",
		"search_fund_name":      "[nome do search fund]",
		"searcher_name":         "[nome do searcher]",
		"investor_person_names": "[nome do searcher]",
	},
	"gestora": {
		"fund_manager_name": "[nome da gestora]",
		"gestora_nome":      "[nome da gestora]",
		"fund_name":         "[nome do fundo]",
		"fundo_nome":        "[nome do fundo]",
	},
}

func init() {
	domainPlaceholders["primario"] = domainPlaceholders["gestora"]
	domainPlaceholders["secundario"] = domainPlaceholders["gestora"]
}

// Placeholder returns the bracketed substitute for an absent name field.
func Placeholder(field, domain string) string {
	if p, ok := domainPlaceholders[domain][field]; ok {
		return p
	}
	name := strings.ToLower(field)
	switch {
	case strings.Contains(name, "gestora") || strings.Contains(name, "manager"):
		return "[nome da gestora]"
	case strings.Contains(name, "fundo") || strings.Contains(name, "fund_name"):
		return "[nome do fundo]"
	case strings.Contains(name, "company") || strings.Contains(name, "empresa"):
		return "[nome da empresa]"
	case domain == "searchfund" && (strings.Contains(name, "investor") || strings.Contains(name, "search")):
		return "[nome do search fund]"
	case strings.Contains(name, "investor") || strings.Contains(name, "searcher"):
		return "[nome do investidor]"
	}
	return "[" + field + "]"
}
