package style

import (
	"strings"
	"testing"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subProfile() *domain.StyleProfile {
	sub := "electrophysiology"
	return &domain.StyleProfile{
		Subspecialty:  &sub,
		AnalyzedEdits: 12,
		Enabled:       true,
		Greeting:      "Dear colleague",
		Formality:     "formal",
		Confidence: map[string]float64{
			domain.StyleFieldGreeting:  0.9,
			domain.StyleFieldFormality: 0.6,
		},
	}
}

func globalProfile() *domain.StyleProfile {
	return &domain.StyleProfile{
		AnalyzedEdits: 30,
		Enabled:       true,
		Signoff:       "Yours sincerely",
		Confidence: map[string]float64{
			domain.StyleFieldSignoff: 0.8,
		},
	}
}

func TestResolvePrefersSubspecialty(t *testing.T) {
	res := Resolve(subProfile(), globalProfile())

	assert.Equal(t, SourceSubspecialty, res.Source)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "Dear colleague", res.Profile.Greeting)
}

func TestResolveFallsBackToGlobal(t *testing.T) {
	tests := []struct {
		name string
		sub  *domain.StyleProfile
	}{
		{name: "nil subspecialty profile", sub: nil},
		{name: "disabled subspecialty profile", sub: func() *domain.StyleProfile {
			p := subProfile()
			p.Enabled = false
			return p
		}()},
		{name: "no analyzed edits", sub: func() *domain.StyleProfile {
			p := subProfile()
			p.AnalyzedEdits = 0
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.sub, globalProfile())
			assert.Equal(t, SourceGlobal, res.Source)
		})
	}
}

func TestResolveGlobalNeedsConfidenceData(t *testing.T) {
	global := globalProfile()
	global.Confidence = nil

	res := Resolve(nil, global)

	assert.Equal(t, SourceDefault, res.Source)
	assert.Nil(t, res.Profile)
}

func TestResolveDefaultWhenNothingUsable(t *testing.T) {
	res := Resolve(nil, nil)
	assert.Equal(t, SourceDefault, res.Source)
}

func TestRenderGatesOnConfidenceTimesStrength(t *testing.T) {
	res := Resolve(subProfile(), nil)

	// Greeting 0.9 and formality 0.6 both clear 0.5 at full strength.
	cond := Render(res, 1.0)
	require.Len(t, cond.Fragments, 2)

	// At strength 0.7, formality drops to 0.42 and is excluded while
	// greeting stays at 0.63.
	cond = Render(res, 0.7)
	require.Len(t, cond.Fragments, 1)
	assert.Contains(t, cond.Fragments[0], "Dear colleague")
}

func TestRenderThresholdIsInclusive(t *testing.T) {
	p := subProfile()
	p.Confidence[domain.StyleFieldGreeting] = 0.5

	cond := Render(Resolve(p, nil), 1.0)

	found := false
	for _, f := range cond.Fragments {
		if strings.Contains(f, "Dear colleague") {
			found = true
		}
	}
	assert.True(t, found, "confidence exactly at the threshold should apply")
}

func TestRenderZeroStrengthDisablesEverything(t *testing.T) {
	cond := Render(Resolve(subProfile(), nil), 0)
	assert.True(t, cond.Empty())
	assert.Equal(t, "", cond.PromptSection())
}

func TestRenderDefaultSourceIsEmpty(t *testing.T) {
	cond := Render(Resolution{Source: SourceDefault}, 1.0)
	assert.True(t, cond.Empty())
}

func TestRenderSkipsFieldsWithoutConfidence(t *testing.T) {
	p := subProfile()
	p.Signoff = "Kind regards"
	// No signoff confidence key: the analyzer has no signal for it.

	cond := Render(Resolve(p, nil), 1.0)

	for _, f := range cond.Fragments {
		assert.NotContains(t, f, "Kind regards")
	}
}

func TestRenderSkipsEmptyValues(t *testing.T) {
	p := subProfile()
	p.Greeting = ""

	cond := Render(Resolve(p, nil), 1.0)

	for _, f := range cond.Fragments {
		assert.NotContains(t, f, "greeting")
	}
}

func TestRenderVocabularyDeterministic(t *testing.T) {
	p := subProfile()
	p.Vocabulary = map[string]string{
		"shortness of breath": "dyspnoea",
		"heart attack":        "myocardial infarction",
	}
	p.Confidence[domain.StyleFieldVocabulary] = 0.95

	first := Render(Resolve(p, nil), 1.0).PromptSection()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Render(Resolve(p, nil), 1.0).PromptSection())
	}
	assert.Contains(t, first, `"myocardial infarction" instead of "heart attack"`)
}

func TestClampStrength(t *testing.T) {
	assert.Equal(t, 0.0, ClampStrength(-0.3))
	assert.Equal(t, 1.0, ClampStrength(2.5))
	assert.Equal(t, 0.4, ClampStrength(0.4))
}

func TestPromptSectionFormat(t *testing.T) {
	cond := Render(Resolve(subProfile(), nil), 1.0)
	section := cond.PromptSection()

	assert.True(t, strings.HasPrefix(section, "Style instructions"))
	assert.Equal(t, len(cond.Fragments), strings.Count(section, "\n- "))
}
