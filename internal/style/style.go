// Package style resolves a clinician's effective writing-style profile and
// renders it into prompt conditioning for letter generation.
//
// Resolution falls back subspecialty -> global -> default. Each profile
// field is only applied when its analyzer confidence, scaled by the user's
// learning strength, clears the apply threshold; low-confidence or disabled
// hints never reach the prompt.
package style

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dictatemed/dictatemed/internal/domain"
)

// ApplyThreshold is the minimum confidence-times-strength score a field
// needs before its hint is included in the prompt.
const ApplyThreshold = 0.5

// Source identifies which profile level a resolution landed on.
type Source string

const (
	SourceSubspecialty Source = "subspecialty"
	SourceGlobal       Source = "global"

	// SourceDefault means no usable profile exists; generation runs without
	// style conditioning.
	SourceDefault Source = "default"
)

// Resolution is the outcome of profile fallback. Profile is nil when Source
// is SourceDefault.
type Resolution struct {
	Source  Source
	Profile *domain.StyleProfile
}

// Conditioning is the rendered set of natural-language style instructions.
type Conditioning struct {
	Source    Source
	Fragments []string
}

// Empty reports whether the conditioning contributes nothing to the prompt.
func (c Conditioning) Empty() bool {
	return len(c.Fragments) == 0
}

// PromptSection renders the fragments as a block to append to the
// generation prompt. Returns "" when there is nothing to apply.
func (c Conditioning) PromptSection() string {
	if c.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("Style instructions (follow these writing preferences):\n")
	for _, f := range c.Fragments {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	return b.String()
}

// Resolve picks the effective profile for a user+subspecialty pair.
//
// The subspecialty profile wins when it is enabled and has analyzed edits.
// The global profile is next, but additionally needs confidence data: a
// global profile without confidence scores cannot make apply decisions.
// Otherwise generation proceeds unconditioned.
func Resolve(sub, global *domain.StyleProfile) Resolution {
	if sub != nil && sub.Enabled && sub.AnalyzedEdits > 0 {
		return Resolution{Source: SourceSubspecialty, Profile: sub}
	}

	if global != nil && global.Enabled && global.AnalyzedEdits > 0 && len(global.Confidence) > 0 {
		return Resolution{Source: SourceGlobal, Profile: global}
	}

	return Resolution{Source: SourceDefault}
}

// ClampStrength bounds a learning-strength multiplier to [0, 1].
func ClampStrength(strength float64) float64 {
	if strength < 0 {
		return 0
	}
	if strength > 1 {
		return 1
	}
	return strength
}

// shouldApply decides whether a single field's hint is included. A missing
// confidence key means the analyzer has no signal and the field is skipped.
func shouldApply(p *domain.StyleProfile, field string, strength float64) bool {
	confidence, ok := p.Confidence[field]
	if !ok {
		return false
	}
	return confidence*strength >= ApplyThreshold
}

// Render produces prompt conditioning for a resolution. strength is the
// user's learning-strength setting; it scales every field's confidence
// before the threshold check, so strength zero disables all conditioning.
func Render(res Resolution, strength float64) Conditioning {
	cond := Conditioning{Source: res.Source}
	if res.Source == SourceDefault || res.Profile == nil {
		return cond
	}

	p := res.Profile
	strength = ClampStrength(strength)

	if shouldApply(p, domain.StyleFieldSectionOrder, strength) && len(p.SectionOrder) > 0 {
		cond.Fragments = append(cond.Fragments,
			fmt.Sprintf("Order the letter sections as: %s.", strings.Join(p.SectionOrder, ", ")))
	}

	if shouldApply(p, domain.StyleFieldVerbosity, strength) && p.Verbosity != "" {
		cond.Fragments = append(cond.Fragments,
			fmt.Sprintf("Aim for a %s level of detail.", p.Verbosity))
	}

	if shouldApply(p, domain.StyleFieldVocabulary, strength) && len(p.Vocabulary) > 0 {
		cond.Fragments = append(cond.Fragments, vocabularyFragment(p.Vocabulary))
	}

	if shouldApply(p, domain.StyleFieldGreeting, strength) && p.Greeting != "" {
		cond.Fragments = append(cond.Fragments,
			fmt.Sprintf("Open the letter with the greeting %q.", p.Greeting))
	}

	if shouldApply(p, domain.StyleFieldClosing, strength) && p.Closing != "" {
		cond.Fragments = append(cond.Fragments,
			fmt.Sprintf("Close the letter with %q.", p.Closing))
	}

	if shouldApply(p, domain.StyleFieldSignoff, strength) && p.Signoff != "" {
		cond.Fragments = append(cond.Fragments,
			fmt.Sprintf("Sign off with %q.", p.Signoff))
	}

	if shouldApply(p, domain.StyleFieldFormality, strength) && p.Formality != "" {
		cond.Fragments = append(cond.Fragments,
			fmt.Sprintf("Maintain a %s tone throughout.", p.Formality))
	}

	return cond
}

// vocabularyFragment renders preferred substitutions in a stable order so
// prompts are deterministic for the same profile.
func vocabularyFragment(vocabulary map[string]string) string {
	keys := make([]string, 0, len(vocabulary))
	for k := range vocabulary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%q instead of %q", vocabulary[k], k))
	}

	return fmt.Sprintf("Prefer the following phrasings: %s.", strings.Join(pairs, "; "))
}
