package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/dictatemed/dictatemed/internal/config"
)

const defaultModel = "gemini-2.0-flash"

// GenAIClient implements Generator on top of the Gemini API.
type GenAIClient struct {
	client *genai.Client
	model  string
}

var _ Generator = (*GenAIClient)(nil)

// NewGenAIClient builds a Gemini-backed Generator from config.
func NewGenAIClient(ctx context.Context, cfg *config.Config) (*GenAIClient, error) {
	if cfg.LLM.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}

	model := cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}

	return &GenAIClient{client: client, model: model}, nil
}

func (c *GenAIClient) GenerateLetter(ctx context.Context, req LetterRequest) (LetterResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildLetterPrompt(req), genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return LetterResult{}, errors.Wrap(err, "generating letter")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return LetterResult{}, errors.New("model returned an empty letter")
	}

	return LetterResult{Content: text, Model: c.model}, nil
}

func (c *GenAIClient) ExtractDocument(ctx context.Context, data []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText("Extract the complete plain text of this clinical document. " +
			"Preserve headings, medication lists, and measurements. Return only the text."),
		genai.NewPartFromBytes(data, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", errors.Wrap(err, "extracting document text")
	}

	return strings.TrimSpace(resp.Text()), nil
}

func (c *GenAIClient) AuditLetter(ctx context.Context, letter string, sources []string) ([]Claim, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildAuditPrompt(letter, sources), genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, errors.Wrap(err, "auditing letter")
	}

	claims, err := parseClaims(resp.Text())
	if err != nil {
		return nil, errors.Wrap(err, "parsing audit response")
	}

	return claims, nil
}

func buildAuditPrompt(letter string, sources []string) string {
	var b strings.Builder

	b.WriteString("You are verifying a clinical letter against its source material.\n")
	b.WriteString("List every factual claim in the letter that the sources do not support: ")
	b.WriteString("findings, medications, doses, dates, and measurements.\n")
	b.WriteString("Respond with a JSON array of objects with keys \"claim\", \"span_start\", ")
	b.WriteString("\"span_end\", and \"severity\" (one of \"low\", \"medium\", \"high\"). ")
	b.WriteString("Spans are byte offsets into the letter. Respond with [] when every claim is supported.\n\n")

	b.WriteString("Letter:\n\"\"\"\n")
	b.WriteString(letter)
	b.WriteString("\n\"\"\"\n\n")

	for i, src := range sources {
		if src == "" {
			continue
		}
		fmt.Fprintf(&b, "Source %d:\n\"\"\"\n", i+1)
		b.WriteString(src)
		b.WriteString("\n\"\"\"\n\n")
	}

	b.WriteString("Return only the JSON array.")

	return b.String()
}

// parseClaims tolerates markdown code fences around the JSON body, which
// some model revisions add despite instructions.
func parseClaims(raw string) ([]Claim, error) {
	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}

	if body == "" {
		return nil, errors.New("empty audit response")
	}

	var claims []Claim
	if err := json.Unmarshal([]byte(body), &claims); err != nil {
		return nil, err
	}
	return claims, nil
}
