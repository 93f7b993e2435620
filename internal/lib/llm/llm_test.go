package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLetterPromptIncludesSources(t *testing.T) {
	prompt := buildLetterPrompt(LetterRequest{
		PatientName:  "Jane Citizen",
		Subspecialty: "electrophysiology",
		Transcript:   "Patient reports palpitations.",
		ReferralText: []string{"GP referral noting AF.", ""},
		StyleSection: "Style instructions (follow these writing preferences):\n- Keep letters brief\n",
	})

	assert.Contains(t, prompt, "Jane Citizen")
	assert.Contains(t, prompt, "electrophysiology")
	assert.Contains(t, prompt, "Patient reports palpitations.")
	assert.Contains(t, prompt, "Referral document 1:")
	assert.NotContains(t, prompt, "Referral document 2:", "empty referral text is skipped")
	assert.Contains(t, prompt, "Keep letters brief")
}

func TestParseClaims(t *testing.T) {
	claims, err := parseClaims(`[{"claim":"on 5mg bisoprolol","span_start":10,"span_end":28,"severity":"high"}]`)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "on 5mg bisoprolol", claims[0].Claim)
	assert.Equal(t, 10, claims[0].SpanStart)
	assert.Equal(t, "high", claims[0].Severity)
}

func TestParseClaimsStripsCodeFence(t *testing.T) {
	raw := "```json\n[{\"claim\":\"x\",\"span_start\":0,\"span_end\":1,\"severity\":\"low\"}]\n```"
	claims, err := parseClaims(raw)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestParseClaimsEmptyArray(t *testing.T) {
	claims, err := parseClaims("[]")
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	_, err := parseClaims("the letter looks fine to me")
	require.Error(t, err)

	_, err = parseClaims(strings.TrimSpace("```\n```"))
	require.Error(t, err)
}
