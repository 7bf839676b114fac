package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BuiltInTypes(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"memo_gestora",
		"memo_primario",
		"memo_searchfund",
		"memo_secundario",
		"short_gestora",
		"short_primario",
		"short_searchfund",
		"short_secundario",
	}, c.Keys())

	wantSections := map[string]int{
		"memo_gestora":     6,
		"memo_primario":    8,
		"memo_searchfund":  9,
		"memo_secundario":  8,
		"short_gestora":    6,
		"short_primario":   4,
		"short_searchfund": 6,
		"short_secundario": 4,
	}
	for key, n := range wantSections {
		t.Run(key, func(t *testing.T) {
			dt, err := c.Get(key)
			require.NoError(t, err)
			assert.Len(t, dt.Sections, n)
			assert.NotEmpty(t, dt.Style)
			assert.Contains(t, dt.ErrorPlaceholder, "%s")
			assert.NotEmpty(t, dt.Coherence)

			seen := map[string]bool{}
			for _, s := range dt.Sections {
				assert.False(t, seen[s.Title], "duplicate title %q", s.Title)
				seen[s.Title] = true
				assert.Equal(t, DefaultGenerator, s.Generator)
				assert.NotEmpty(t, s.Query, s.Title)
				assert.NotEmpty(t, s.Role, s.Title)
				assert.Len(t, dt.BlocksFor(s), len(s.Facts))
			}
		})
	}
}

func TestGet_UnknownType(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	_, err = c.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestDocumentType_BandFallbackAndRules(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	dt, err := c.Get("memo_searchfund")
	require.NoError(t, err)

	board, ok := dt.Section("8. Board e Cap Table")
	require.True(t, ok)
	assert.Equal(t, validator.Band{Min: 2, Max: 8}, dt.BandFor(board))

	overview, ok := dt.Section("1. Overview")
	require.True(t, ok)
	assert.Equal(t, dt.Band, dt.BandFor(overview))

	rules := dt.Rules()
	assert.Equal(t, dt.MinParagraphChars, rules.MinParagraphChars)
	require.Len(t, rules.Sections, len(dt.Sections))
	assert.Equal(t, dt.Titles()[0], rules.Sections[0].Title)
	assert.NotEmpty(t, rules.MustMention)
	require.NotEmpty(t, rules.Sections[0].MustMention)
	assert.Equal(t, "1. Overview", rules.Sections[0].MustMention[0].Scope)
}

func TestDocumentType_CoherenceSelection(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	want := map[string][]string{
		"memo_searchfund":  validator.DefaultCoherence,
		"memo_primario":    {validator.CheckSaaS, validator.CheckValuation, validator.CheckReturns, validator.CheckScenarios},
		"memo_gestora":     {validator.CheckTrackRecord, validator.CheckTerms},
		"memo_secundario":  {validator.CheckNAV, validator.CheckDiscount, validator.CheckTimeline, validator.CheckReturnRange, validator.CheckMultiple},
		"short_secundario": {validator.CheckNAV, validator.CheckDiscount, validator.CheckTimeline, validator.CheckReturnRange, validator.CheckMultiple},
	}
	for key, checks := range want {
		dt, err := c.Get(key)
		require.NoError(t, err)
		assert.Equal(t, checks, dt.Rules().Coherence, key)
	}

	dt, err := Parse([]byte("key: x\nsections:\n  - {title: A, role: r}\n"))
	require.NoError(t, err)
	assert.Nil(t, dt.Rules().Coherence, "omitted key keeps validator defaults")

	dt, err = Parse([]byte("key: x\ncoherence: []\nsections:\n  - {title: A, role: r}\n"))
	require.NoError(t, err)
	require.NotNil(t, dt.Rules().Coherence)
	assert.Empty(t, dt.Rules().Coherence, "empty list disables checks")
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "duplicate title",
			yaml: "key: x\nsections:\n  - {title: A, role: r}\n  - {title: A, role: r}\n",
			want: "duplicate section title",
		},
		{
			name: "no sections",
			yaml: "key: x\n",
			want: "no sections",
		},
		{
			name: "unknown block",
			yaml: "key: x\nsections:\n  - {title: A, role: r, facts: [missing]}\n",
			want: "unknown fact block",
		},
		{
			name: "unknown coherence check",
			yaml: "key: x\ncoherence: [multiple, ltv]\nsections:\n  - {title: A, role: r}\n",
			want: `unknown coherence check "ltv"`,
		},
		{
			name: "placeholder without verb",
			yaml: "key: x\nerror_placeholder: erro\nsections:\n  - {title: A, role: r}\n",
			want: "error_placeholder",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDefinition))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMerge_OverridesBuiltIn(t *testing.T) {
	dir := t.TempDir()
	def := `key: short_primario
name: Custom
sections:
  - title: Único
    role: Escreva um resumo.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(def), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c, err := Load()
	require.NoError(t, err)
	require.NoError(t, c.Merge(dir))

	dt, err := c.Get("short_primario")
	require.NoError(t, err)
	assert.Equal(t, "Custom", dt.Name)
	assert.Equal(t, []string{"Único"}, dt.Titles())
	assert.Equal(t, DefaultErrorPlaceholder, dt.ErrorPlaceholder)
}

func TestFactBlock_Render(t *testing.T) {
	f := facts.Facts{"identification": {"company_name": "Acme", "sector": ""}}
	b := FactBlock{
		Section: "identification",
		Heading: "Identificação",
		Labels: []facts.Label{
			{Field: "company_name", Label: "Empresa"},
			{Field: "sector", Label: "Setor"},
		},
	}

	out := b.Render(f)
	assert.Contains(t, out, "### Identificação")
	assert.Contains(t, out, "Empresa: Acme")
	assert.NotContains(t, out, "Setor")

	assert.Empty(t, FactBlock{Section: "returns"}.Render(f))
}
