package validator

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dusk-indust/memoforge/internal/facts"
)

// Tolerances for the derived-ratio checks.
const (
	multipleTolerance = 0.3
	marginTolerance   = 2.0 // percentage points
	paymentTolerance  = 0.5 // MM
	moicTolerance     = 0.5
	defaultHoldYears  = 5.0

	// Realized track records mix holding periods, so the IRR/MOIC bound is
	// looser than for a single projected deal.
	trackRecordMOICTolerance = 1.0
)

// Coherence check names. A document type selects the checks that apply to
// it; unselected checks never run.
const (
	CheckMultiple    = "multiple"
	CheckMargin      = "margin"
	CheckPayments    = "payments"
	CheckReturns     = "returns"
	CheckScenarios   = "scenarios"
	CheckSaaS        = "saas"
	CheckValuation   = "valuation"
	CheckTrackRecord = "track_record"
	CheckTerms       = "terms"
	CheckNAV         = "nav"
	CheckDiscount    = "discount"
	CheckTimeline    = "timeline"
	CheckReturnRange = "return_range"
)

// DefaultCoherence is used when Rules.Coherence is nil.
var DefaultCoherence = []string{CheckMultiple, CheckMargin, CheckPayments, CheckReturns, CheckScenarios}

// CoherenceIssue flags values whose stated and derived (or benchmark)
// figures disagree.
type CoherenceIssue struct {
	Check       string  `json:"check"`
	Description string  `json:"description"`
	Stated      float64 `json:"stated"`
	Derived     float64 `json:"derived"`
}

func (c CoherenceIssue) String() string {
	return fmt.Sprintf("coherence (%s): %s", c.Check, c.Description)
}

// CoherenceInput is what the checks read. Most checks look only at Facts;
// nav, discount, timeline and return_range scan the generated Text.
type CoherenceInput struct {
	Facts facts.Facts
	Text  string

	// Year anchors the timeline check. Zero means the current year.
	Year int
}

var coherenceChecks = map[string]func(CoherenceInput) []CoherenceIssue{
	CheckMultiple:    factCheck(checkMultiple),
	CheckMargin:      factCheck(checkMargin),
	CheckPayments:    factCheck(checkPayments),
	CheckReturns:     factCheck(checkReturns),
	CheckScenarios:   factCheck(checkScenarios),
	CheckSaaS:        factCheck(checkSaaS),
	CheckValuation:   factCheck(checkValuation),
	CheckTrackRecord: factCheck(checkTrackRecord),
	CheckTerms:       factCheck(checkTerms),
	CheckNAV:         textCheck(checkNAV),
	CheckDiscount:    textCheck(checkDiscount),
	CheckTimeline:    checkTimeline,
	CheckReturnRange: textCheck(checkReturnRange),
}

func factCheck(fn func(facts.Facts) []CoherenceIssue) func(CoherenceInput) []CoherenceIssue {
	return func(in CoherenceInput) []CoherenceIssue { return fn(in.Facts) }
}

func textCheck(fn func(string) []CoherenceIssue) func(CoherenceInput) []CoherenceIssue {
	return func(in CoherenceInput) []CoherenceIssue { return fn(in.Text) }
}

// CoherenceChecks returns every known check name, sorted.
func CoherenceChecks() []string {
	names := make([]string, 0, len(coherenceChecks))
	for name := range coherenceChecks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// KnownCoherenceCheck reports whether name is a registered check.
func KnownCoherenceCheck(name string) bool {
	_, ok := coherenceChecks[name]
	return ok
}

// CheckCoherence runs the named checks, in order, and reports every value
// outside tolerance. A nil checks slice runs DefaultCoherence; unknown names
// are ignored. Checks whose inputs are missing are skipped.
func CheckCoherence(in CoherenceInput, checks []string) []CoherenceIssue {
	if checks == nil {
		checks = DefaultCoherence
	}
	if in.Year == 0 {
		in.Year = time.Now().Year()
	}
	var issues []CoherenceIssue
	for _, name := range checks {
		if check, ok := coherenceChecks[name]; ok {
			issues = append(issues, check(in)...)
		}
	}
	return issues
}

func checkMultiple(f facts.Facts) []CoherenceIssue {
	ev, ok1 := f.Float("transaction_structure", "ev_mm")
	ebitda, ok2 := f.Float("financials_history", "ebitda_current_mm")
	stated, ok3 := f.Float("transaction_structure", "multiple_ev_ebitda")
	if !ok1 || !ok2 || !ok3 || ebitda == 0 {
		return nil
	}
	derived := math.Round(ev/ebitda*10) / 10
	if math.Abs(derived-stated) <= multipleTolerance {
		return nil
	}
	return []CoherenceIssue{{
		Check: "multiple",
		Description: fmt.Sprintf("stated EV/EBITDA %s differs from EV %s / EBITDA %s = %s",
			facts.FormatMultiple(stated), facts.FormatNumber(ev, -1), facts.FormatNumber(ebitda, -1), facts.FormatMultiple(derived)),
		Stated:  stated,
		Derived: derived,
	}}
}

func checkMargin(f facts.Facts) []CoherenceIssue {
	ebitda, ok1 := f.Float("financials_history", "ebitda_current_mm")
	revenue, ok2 := f.Float("financials_history", "revenue_current_mm")
	stated, ok3 := f.Float("financials_history", "ebitda_margin_current_pct")
	if !ok1 || !ok2 || !ok3 || revenue == 0 {
		return nil
	}
	derived := ebitda / revenue * 100
	if math.Abs(derived-stated) <= marginTolerance {
		return nil
	}
	return []CoherenceIssue{{
		Check: "margin",
		Description: fmt.Sprintf("stated EBITDA margin %s differs from EBITDA / revenue = %s",
			facts.FormatPercent(stated), facts.FormatPercent(derived)),
		Stated:  stated,
		Derived: derived,
	}}
}

func checkPayments(f facts.Facts) []CoherenceIssue {
	ev, ok1 := f.Float("transaction_structure", "ev_mm")
	cash, ok2 := f.Float("transaction_structure", "cash_payment_mm")
	if !ok1 || !ok2 {
		return nil
	}
	seller, _ := f.Float("transaction_structure", "seller_note_mm")
	earnout, _ := f.Float("transaction_structure", "earnout_mm")
	derived := cash + seller + earnout
	if math.Abs(derived-ev) <= paymentTolerance {
		return nil
	}
	return []CoherenceIssue{{
		Check: "payments",
		Description: fmt.Sprintf("cash %s + seller note %s + earnout %s = %s does not match EV %s",
			facts.FormatNumber(cash, -1), facts.FormatNumber(seller, -1), facts.FormatNumber(earnout, -1),
			facts.FormatNumber(derived, -1), facts.FormatNumber(ev, -1)),
		Stated:  ev,
		Derived: derived,
	}}
}

func checkReturns(f facts.Facts) []CoherenceIssue {
	irr, ok1 := f.Float("returns", "irr_pct")
	moic, ok2 := f.Float("returns", "moic")
	if !ok1 || !ok2 {
		return nil
	}
	years, ok := f.Float("returns", "holding_period_years")
	if !ok || years <= 0 {
		years = defaultHoldYears
	}
	derived := math.Pow(1+irr/100, years)
	if math.Abs(derived-moic) <= moicTolerance {
		return nil
	}
	return []CoherenceIssue{{
		Check: "returns",
		Description: fmt.Sprintf("MOIC %s is inconsistent with IRR %s over %s years (expected about %s)",
			facts.FormatMultiple(moic), facts.FormatPercent(irr), facts.FormatNumber(years, -1), facts.FormatMultiple(derived)),
		Stated:  moic,
		Derived: derived,
	}}
}

func checkScenarios(f facts.Facts) []CoherenceIssue {
	base, ok := f.Float("returns", "irr_pct")
	if !ok {
		return nil
	}
	var issues []CoherenceIssue
	if up, ok := f.Float("returns", "irr_upside_pct"); ok && up <= base {
		issues = append(issues, CoherenceIssue{
			Check:       "scenarios",
			Description: fmt.Sprintf("upside IRR %s is not above base IRR %s", facts.FormatPercent(up), facts.FormatPercent(base)),
			Stated:      up,
			Derived:     base,
		})
	}
	if down, ok := f.Float("returns", "irr_downside_pct"); ok && down >= base {
		issues = append(issues, CoherenceIssue{
			Check:       "scenarios",
			Description: fmt.Sprintf("downside IRR %s is not below base IRR %s", facts.FormatPercent(down), facts.FormatPercent(base)),
			Stated:      down,
			Derived:     base,
		})
	}
	return issues
}

// outside reports value against an inclusive benchmark range. A zero low or
// high bound is open.
func outside(check, what string, value, low, high float64, format func(float64) string) []CoherenceIssue {
	switch {
	case low != 0 && value < low:
		return []CoherenceIssue{{
			Check:       check,
			Description: fmt.Sprintf("%s %s is below the %s benchmark", what, format(value), format(low)),
			Stated:      value,
			Derived:     low,
		}}
	case high != 0 && value > high:
		return []CoherenceIssue{{
			Check:       check,
			Description: fmt.Sprintf("%s %s is above the %s benchmark", what, format(value), format(high)),
			Stated:      value,
			Derived:     high,
		}}
	}
	return nil
}

// nonZero returns section.field when it is present, numeric and non-zero.
func nonZero(f facts.Facts, section string, fields ...string) (float64, bool) {
	for _, field := range fields {
		if v, ok := f.Float(section, field); ok && v != 0 {
			return v, true
		}
	}
	return 0, false
}

func formatMonths(v float64) string {
	return facts.FormatNumber(v, -1) + " meses"
}

func checkSaaS(f facts.Facts) []CoherenceIssue {
	var issues []CoherenceIssue
	if v, ok := nonZero(f, "financials_history", "ltv_cac_ratio"); ok {
		issues = append(issues, outside(CheckSaaS, "LTV/CAC", v, 3, 10, facts.FormatMultiple)...)
	}
	if v, ok := nonZero(f, "financials_history", "net_revenue_retention_pct"); ok {
		issues = append(issues, outside(CheckSaaS, "net revenue retention", v, 100, 150, facts.FormatPercent)...)
	}
	if v, ok := nonZero(f, "financials_history", "payback_months"); ok {
		issues = append(issues, outside(CheckSaaS, "CAC payback", v, 0, 24, formatMonths)...)
	}
	return issues
}

func checkValuation(f facts.Facts) []CoherenceIssue {
	pre, ok1 := nonZero(f, "transaction_structure", "pre_money_mm")
	arr, ok2 := nonZero(f, "financials_history", "arr_mm")
	if !ok1 || !ok2 {
		return nil
	}
	return outside(CheckValuation, "pre-money / ARR multiple", pre/arr, 3, 20, facts.FormatMultiple)
}

func checkTrackRecord(f facts.Facts) []CoherenceIssue {
	var issues []CoherenceIssue
	irr, ok1 := nonZero(f, "track_record", "realized_irr_gross_pct")
	moic, ok2 := nonZero(f, "track_record", "realized_moic_gross")
	if ok1 && ok2 {
		derived := math.Pow(1+irr/100, defaultHoldYears)
		if math.Abs(derived-moic) > trackRecordMOICTolerance {
			issues = append(issues, CoherenceIssue{
				Check: CheckTrackRecord,
				Description: fmt.Sprintf("realized MOIC %s is inconsistent with realized IRR %s over a typical %s-year hold (expected about %s)",
					facts.FormatMultiple(moic), facts.FormatPercent(irr), facts.FormatNumber(defaultHoldYears, -1), facts.FormatMultiple(derived)),
				Stated:  moic,
				Derived: derived,
			})
		}
	}
	if loss, ok := nonZero(f, "track_record", "loss_ratio_pct"); ok {
		issues = append(issues, outside(CheckTrackRecord, "loss ratio", loss, 1, 25, facts.FormatPercent)...)
	}
	return issues
}

func checkTerms(f facts.Facts) []CoherenceIssue {
	var issues []CoherenceIssue
	if fee, ok := nonZero(f, "transaction_structure", "management_fee_pct"); ok {
		issues = append(issues, outside(CheckTerms, "management fee", fee, 1, 2.5, facts.FormatPercent)...)
	}
	if carry, ok := nonZero(f, "transaction_structure", "carried_interest_pct", "carry_pct"); ok {
		issues = append(issues, outside(CheckTerms, "carried interest", carry, 15, 25, facts.FormatPercent)...)
	}
	if gp, ok := nonZero(f, "transaction_structure", "gp_commitment_pct"); ok {
		issues = append(issues, outside(CheckTerms, "GP commitment", gp, 1, 0, facts.FormatPercent)...)
	}
	return issues
}
