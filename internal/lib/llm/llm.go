// Package llm wraps the text-generation provider behind the Generator
// interface: letter drafting, document text extraction, and the
// hallucination audit all go through it.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// LetterRequest carries everything the provider needs to draft a
// consultation letter. StyleSection is pre-rendered prompt conditioning and
// may be empty.
type LetterRequest struct {
	PatientName  string
	PatientDOB   string
	Subspecialty string
	Transcript   string
	ReferralText []string
	StyleSection string
}

// LetterResult is a generated draft plus the model that produced it.
type LetterResult struct {
	Content string
	Model   string
}

// Claim is a statement in generated text the audit pass could not ground in
// the source material. Spans index into the letter content.
type Claim struct {
	Claim     string `json:"claim"`
	SpanStart int    `json:"span_start"`
	SpanEnd   int    `json:"span_end"`
	Severity  string `json:"severity"`
}

// Generator is the LLM boundary. Implementations must be safe for
// concurrent use.
type Generator interface {
	// GenerateLetter drafts a consultation letter from dictation and
	// referral source material.
	GenerateLetter(ctx context.Context, req LetterRequest) (LetterResult, error)

	// ExtractDocument pulls plain text out of a referral document.
	ExtractDocument(ctx context.Context, data []byte, mimeType string) (string, error)

	// AuditLetter compares a drafted letter against its source material and
	// returns claims that lack support. An empty slice means the letter is
	// fully grounded.
	AuditLetter(ctx context.Context, letter string, sources []string) ([]Claim, error)
}

// buildLetterPrompt assembles the generation prompt. Source material is
// fenced so the model can tell instruction from data.
func buildLetterPrompt(req LetterRequest) string {
	var b strings.Builder

	b.WriteString("You are drafting a cardiology consultation letter on behalf of the treating specialist.\n")
	b.WriteString("Write the letter using only facts present in the dictation and referral material below.\n")
	b.WriteString("Do not invent findings, medications, doses, or dates.\n\n")

	if req.PatientName != "" {
		b.WriteString("Patient: " + req.PatientName + "\n")
	}
	if req.PatientDOB != "" {
		b.WriteString("Date of birth: " + req.PatientDOB + "\n")
	}
	if req.Subspecialty != "" {
		b.WriteString("Subspecialty context: " + req.Subspecialty + "\n")
	}
	b.WriteString("\n")

	if req.Transcript != "" {
		b.WriteString("Dictation transcript:\n\"\"\"\n")
		b.WriteString(req.Transcript)
		b.WriteString("\n\"\"\"\n\n")
	}

	for i, text := range req.ReferralText {
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "Referral document %d:\n\"\"\"\n", i+1)
		b.WriteString(text)
		b.WriteString("\n\"\"\"\n\n")
	}

	if req.StyleSection != "" {
		b.WriteString(req.StyleSection)
		b.WriteString("\n")
	}

	b.WriteString("Return only the letter text.")

	return b.String()
}
