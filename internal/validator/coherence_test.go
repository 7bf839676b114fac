package validator

import (
	"testing"

	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coherenceChecksByName(issues []CoherenceIssue) map[string]int {
	out := map[string]int{}
	for _, issue := range issues {
		out[issue.Check]++
	}
	return out
}

func TestCheckCoherence_Selection(t *testing.T) {
	f := acmeFacts()
	f["transaction_structure"]["multiple_ev_ebitda"] = 9.0

	t.Run("nil runs defaults", func(t *testing.T) {
		assert.Len(t, CheckCoherence(CoherenceInput{Facts: f}, nil), 1)
	})
	t.Run("empty disables", func(t *testing.T) {
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, []string{}))
	})
	t.Run("unselected checks do not run", func(t *testing.T) {
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, []string{CheckSaaS, CheckTerms}))
	})
	t.Run("unknown names are ignored", func(t *testing.T) {
		issues := CheckCoherence(CoherenceInput{Facts: f}, []string{"nope", CheckMultiple})
		require.Len(t, issues, 1)
		assert.Equal(t, CheckMultiple, issues[0].Check)
	})
}

func TestKnownCoherenceCheck(t *testing.T) {
	for _, name := range CoherenceChecks() {
		assert.True(t, KnownCoherenceCheck(name), name)
	}
	assert.Len(t, CoherenceChecks(), 13)
	assert.Subset(t, CoherenceChecks(), DefaultCoherence)
	assert.False(t, KnownCoherenceCheck("ltv"))
}

func TestCheckCoherence_SaaS(t *testing.T) {
	check := []string{CheckSaaS}

	t.Run("outside benchmarks", func(t *testing.T) {
		f := facts.Facts{"financials_history": {
			"ltv_cac_ratio":             2.0,
			"net_revenue_retention_pct": 160.0,
			"payback_months":            30.0,
		}}
		issues := CheckCoherence(CoherenceInput{Facts: f}, check)
		require.Len(t, issues, 3)
		assert.Contains(t, issues[0].Description, "LTV/CAC 2,0x is below")
		assert.Contains(t, issues[1].Description, "net revenue retention 160,0% is above")
		assert.Contains(t, issues[2].Description, "CAC payback 30 meses")
		assert.InDelta(t, 24.0, issues[2].Derived, 1e-9)
	})
	t.Run("healthy metrics", func(t *testing.T) {
		f := facts.Facts{"financials_history": {
			"ltv_cac_ratio":             5.0,
			"net_revenue_retention_pct": 120.0,
			"payback_months":            12.0,
		}}
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, check))
	})
	t.Run("zero values skipped", func(t *testing.T) {
		f := facts.Facts{"financials_history": {"ltv_cac_ratio": 0.0, "payback_months": ""}}
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, check))
	})
}

func TestCheckCoherence_Valuation(t *testing.T) {
	f := facts.Facts{
		"transaction_structure": {"pre_money_mm": 100.0},
		"financials_history":    {"arr_mm": 4.0},
	}
	issues := CheckCoherence(CoherenceInput{Facts: f}, []string{CheckValuation})
	require.Len(t, issues, 1)
	assert.InDelta(t, 25.0, issues[0].Stated, 1e-9)
	assert.InDelta(t, 20.0, issues[0].Derived, 1e-9)

	f["transaction_structure"]["pre_money_mm"] = 40.0
	assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, []string{CheckValuation}))

	delete(f, "financials_history")
	assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, []string{CheckValuation}))
}

func TestCheckCoherence_TrackRecord(t *testing.T) {
	check := []string{CheckTrackRecord}

	t.Run("moic inconsistent with irr", func(t *testing.T) {
		f := facts.Facts{"track_record": {"realized_irr_gross_pct": 25.0, "realized_moic_gross": 1.5}}
		issues := CheckCoherence(CoherenceInput{Facts: f}, check)
		require.Len(t, issues, 1)
		// 1.25^5 = 3.05
		assert.InDelta(t, 3.05, issues[0].Derived, 0.01)
		assert.InDelta(t, 1.5, issues[0].Stated, 1e-9)
	})
	t.Run("within the looser tolerance", func(t *testing.T) {
		f := facts.Facts{"track_record": {"realized_irr_gross_pct": 25.0, "realized_moic_gross": 2.5}}
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, check))
	})
	t.Run("loss ratio", func(t *testing.T) {
		f := facts.Facts{"track_record": {"loss_ratio_pct": 30.0}}
		issues := CheckCoherence(CoherenceInput{Facts: f}, check)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Description, "loss ratio 30,0% is above")

		f["track_record"]["loss_ratio_pct"] = 0.5
		issues = CheckCoherence(CoherenceInput{Facts: f}, check)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Description, "is below")

		f["track_record"]["loss_ratio_pct"] = 8.0
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, check))
	})
}

func TestCheckCoherence_Terms(t *testing.T) {
	check := []string{CheckTerms}

	t.Run("off-market terms", func(t *testing.T) {
		f := facts.Facts{"transaction_structure": {
			"management_fee_pct": 3.0,
			"carry_pct":          30.0,
			"gp_commitment_pct":  0.5,
		}}
		issues := CheckCoherence(CoherenceInput{Facts: f}, check)
		require.Len(t, issues, 3)
		assert.Contains(t, issues[0].Description, "management fee")
		assert.Contains(t, issues[1].Description, "carried interest 30,0%")
		assert.Contains(t, issues[2].Description, "GP commitment 0,5% is below")
	})
	t.Run("market terms", func(t *testing.T) {
		f := facts.Facts{"transaction_structure": {
			"management_fee_pct":   2.0,
			"carried_interest_pct": 20.0,
			"gp_commitment_pct":    2.0,
		}}
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, check))
	})
	t.Run("carried interest wins over carry", func(t *testing.T) {
		f := facts.Facts{"transaction_structure": {"carried_interest_pct": 20.0, "carry_pct": 40.0}}
		assert.Empty(t, CheckCoherence(CoherenceInput{Facts: f}, check))
	})
}

func TestCheckCoherence_NAV(t *testing.T) {
	check := []string{CheckNAV}

	t.Run("drifting figures", func(t *testing.T) {
		text := "O NAV reportado de R$ 450 milhões reflete a última marcação. " +
			"Em outra seção, o NAV combinado de R$ 520 milhões sustenta o preço."
		issues := CheckCoherence(CoherenceInput{Text: text}, check)
		require.Len(t, issues, 1)
		assert.InDelta(t, 450.0, issues[0].Derived, 1e-9)
		assert.InDelta(t, 520.0, issues[0].Stated, 1e-9)
	})
	t.Run("units and thousands separators", func(t *testing.T) {
		text := "O NAV de R$ 1.500 milhões foi auditado. O NAV de R$ 1,5 bilhão se mantém."
		assert.Empty(t, CheckCoherence(CoherenceInput{Text: text}, check))
	})
	t.Run("single mention", func(t *testing.T) {
		assert.Empty(t, CheckCoherence(CoherenceInput{Text: "NAV de R$ 450 milhões."}, check))
	})
}

func TestCheckCoherence_Discount(t *testing.T) {
	check := []string{CheckDiscount}

	issues := CheckCoherence(CoherenceInput{Text: "Compra com desconto de 15% sobre o NAV. O desconto de 18,5% reflete o prazo."}, check)
	require.Len(t, issues, 1)
	assert.InDelta(t, 3.5, issues[0].Stated-issues[0].Derived, 1e-9)

	assert.Empty(t, CheckCoherence(CoherenceInput{Text: "desconto de 15% e depois desconto 16%"}, check))
	assert.Empty(t, CheckCoherence(CoherenceInput{Text: "desconto de 15%"}, check))
}

func TestCheckCoherence_Timeline(t *testing.T) {
	check := []string{CheckTimeline}

	text := "O fundo foi constituído em 2012. Esperamos a primeira distribuição em 2027 e a liquidez final até 2034."
	issues := CheckCoherence(CoherenceInput{Text: text, Year: 2025}, check)
	require.Len(t, issues, 1)
	assert.Equal(t, "expected timeline spans 2027 to 2034 (7 years)", issues[0].Description)

	text = "O fundo foi constituído em 2012. Esperamos distribuições entre 2027 e 2031."
	assert.Empty(t, CheckCoherence(CoherenceInput{Text: text, Year: 2025}, check))

	text = "Marco regulatório de 2045 e saída em 2027."
	assert.Empty(t, CheckCoherence(CoherenceInput{Text: text, Year: 2025}, check), "years past the horizon are ignored")
}

func TestCheckCoherence_ReturnRange(t *testing.T) {
	check := []string{CheckReturnRange}

	text := "A TIR bruta de 55% e o MOIC de 0,8x indicam premissas fora do padrão."
	issues := CheckCoherence(CoherenceInput{Text: text}, check)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Description, "stated IRR 55,0% is above")
	assert.Contains(t, issues[1].Description, "stated MOIC 0,8x is below")

	text = "Projetamos TIR de 20% e múltiplo de 2,1x no cenário base."
	assert.Empty(t, CheckCoherence(CoherenceInput{Text: text}, check))
}

func TestValidate_SelectedCoherenceChecksUseGeneratedText(t *testing.T) {
	v := New(Config{ReferenceYear: 2025}, nil)
	sections := []Section{
		{Title: "Valuation", Paragraphs: []string{longParagraph("valuation") + "O desconto de 12% sobre o NAV."}},
		{Title: "Retornos", Paragraphs: []string{longParagraph("retornos") + "Com desconto de 20% a TIR sobe."}},
	}
	f := acmeFacts()
	f["transaction_structure"]["multiple_ev_ebitda"] = 9.0

	res := v.Validate(f, sections, Rules{Coherence: []string{CheckDiscount}})
	require.Len(t, res.Coherence, 1)
	assert.Equal(t, CheckDiscount, res.Coherence[0].Check)
	assert.Contains(t, res.Warnings, res.Coherence[0].String())
	assert.True(t, res.IsValid, "coherence issues are warnings")
}
