// Package extract turns raw meeting notes into a structured ExtractionResult
// by calling a generative completion service.
package extract

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rapportlabs/rapport/internal/models"
)

// Sentinel errors surfaced after the retry budget is exhausted.
var (
	// ErrParseFailed means the service responded but the reply was not the
	// expected JSON object.
	ErrParseFailed = errors.New("extraction response is not valid JSON")

	// ErrServiceFailed means the completion request itself failed
	// (transport error, API error, or per-attempt timeout).
	ErrServiceFailed = errors.New("completion service request failed")
)

// Extractor extracts structured contact knowledge from raw meeting text.
type Extractor interface {
	Extract(ctx context.Context, text, nameHint string) (*models.ExtractionResult, error)
}

// extractionPromptTemplate describes the full response schema. Raw meeting
// text is injected via an XML tag to prevent prompt injection; the optional
// known name follows in its own tag.
const extractionPromptTemplate = `You are a contact-intelligence extraction system. Analyze the meeting notes and extract structured information about the other person.

Return ONLY a single JSON object with three top-level keys: "contact", "meeting", "action_playbook". Omit or use null for anything the text does not support; use empty arrays for list fields with no information. Do not invent facts.

{
  "contact": {
    "name": "their name, inferred from the text",
    "nickname": "...", "gender": "...", "age_group": "e.g. 20-30, 30-40",
    "hometown": "...", "city": "city of residence",
    "phone": "...", "email": "...", "wechat": "...", "linkedin": "...",
    "education_school": "...", "education_major": "...", "education_degree": "...",
    "career_summary": "1-3 sentence career overview",
    "preferred_contact_method": "...", "preferred_contact_time": "...",
    "communication_style": "direct, indirect, ...",
    "current_company": "...", "current_position": "...", "current_industry": "...",
    "current_location": "...", "startup_status": "...",
    "focus_topics": [], "current_projects": [],
    "short_term_goals": [], "long_term_goals": [],
    "resource_needs": [], "resource_offers": [],
    "excitement_points": [], "anxiety_points": [], "sensitive_points": []
  },
  "meeting": {
    "topics": ["topics discussed"],
    "key_facts": [{"fact": "...", "category": "..."}],
    "sentiment": "positive | neutral | negative",
    "my_commitments": [{"commitment": "...", "deadline": "YYYY-MM-DD if given"}],
    "their_commitments": [{"commitment": "...", "deadline": "..."}],
    "open_loops": ["unfinished threads"],
    "next_conversation_hooks": ["questions or topics for next time"]
  },
  "action_playbook": {
    "gift_care": {
      "preferences": [], "taboos": [], "gift_occasions": [],
      "gift_recommendations": {"small": [], "medium": [], "formal": []}
    },
    "conversation_hooks": {
      "top_topics": ["top 3 most engaging topics"], "open_loops": [],
      "conversation_questions": ["5-10 questions to ask next time"],
      "conversation_avoid": []
    },
    "collaboration_map": {
      "how_i_can_help_them": [], "how_they_can_help_me": [],
      "exchange_boundaries": [],
      "contact_rhythm": {"frequency": "...", "style": "..."}
    },
    "relationship_health": {
      "relationship_stage": "new | acquaintance | friend | ally | key_partner",
      "temperature_score": 75,
      "recent_risks": [],
      "next_action": {"action": "...", "timing": "...", "reason": "..."}
    }
  }
}

Rules:
- key_facts are facts the person explicitly stated, not guesses.
- All string values in Simplified Chinese.
- Dates in ISO 8601 (YYYY-MM-DD).

<meeting_notes>%s</meeting_notes>`

// completionFunc performs one completion attempt and returns the raw
// response text. Injected so tests can substitute a deterministic fake.
type completionFunc func(ctx context.Context, prompt string) (string, error)

// ClaudeExtractor implements Extractor on the Anthropic API.
type ClaudeExtractor struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
	maxRetries  int
	timeout     time.Duration
	logger      *slog.Logger

	complete completionFunc
}

// Options configures a ClaudeExtractor.
type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int64
	MaxRetries  int
	Timeout     time.Duration
}

// NewClaudeExtractor creates an extractor backed by the Anthropic API.
func NewClaudeExtractor(opts Options, logger *slog.Logger) *ClaudeExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	c := anthropic.NewClient(option.WithAPIKey(opts.APIKey))
	e := &ClaudeExtractor{
		client:      &c,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		maxRetries:  opts.MaxRetries,
		timeout:     opts.Timeout,
		logger:      logger,
	}
	e.complete = e.completeClaude
	return e
}

// Extract sends the raw text to the completion service and parses the reply.
// On transport failure or a malformed reply it re-sends the identical request
// up to maxRetries more times, then surfaces ErrServiceFailed or
// ErrParseFailed. A partially parsed result is never returned.
func (e *ClaudeExtractor) Extract(ctx context.Context, text, nameHint string) (*models.ExtractionResult, error) {
	prompt := fmt.Sprintf(extractionPromptTemplate, xmlEscape(text))
	if nameHint != "" {
		prompt += fmt.Sprintf("\n<known_name>%s</known_name>", xmlEscape(nameHint))
	}

	attempts := e.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrServiceFailed, err)
		}

		raw, err := e.complete(ctx, prompt)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrServiceFailed, err)
			e.logger.Warn("extraction attempt failed", "attempt", attempt, "error", err)
			continue
		}

		result, err := ParseResult(raw)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrParseFailed, err)
			e.logger.Warn("extraction response unparseable", "attempt", attempt, "error", err)
			continue
		}

		e.logger.Debug("extraction succeeded", "attempt", attempt)
		return result, nil
	}

	return nil, fmt.Errorf("extraction failed after %d attempts: %w", attempts, lastErr)
}

// completeClaude performs one bounded completion request against the API.
func (e *ClaudeExtractor) completeClaude(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   e.maxTokens,
		Temperature: anthropic.Float(e.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You are a precise contact-information extraction system. Output only valid JSON."},
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling completion API: %w", err)
	}

	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			return resp.Content[i].Text, nil
		}
	}
	return "", fmt.Errorf("empty response from completion API")
}

// ParseResult decodes a raw completion reply into an ExtractionResult.
// Markdown code fences around the JSON object are tolerated; missing
// top-level keys decode to empty sections.
func ParseResult(raw string) (*models.ExtractionResult, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("parsing extraction response: %w", err)
	}
	return &result, nil
}

// stripCodeFence removes a surrounding ```json ... ``` fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// xmlEscape replaces characters with special meaning in XML to prevent
// prompt injection when embedding user content in XML-delimited templates.
func xmlEscape(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		// EscapeText only fails on invalid UTF-8; return original on error.
		return s
	}
	return buf.String()
}
