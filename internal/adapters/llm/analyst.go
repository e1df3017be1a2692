// Package llm implements opinion classification and summarization on top of
// the OpenAI chat completion API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"safestay/internal/domain"
)

const (
	defaultModel = "gpt-4o-mini"
	maxAttempts  = 3

	classifySystemPrompt = `You are a content classifier for a travel safety service.
Given community posts, decide for each whether it discusses personal safety,
crime, or how safe an area feels (relevant) or anything else (not relevant).
Respond with JSON only: {"results":[{"id":"<post id>","relevant":true|false}]}`

	summarizeSystemPrompt = `You are a travel safety analyst. Summarize what locals say
about safety around an accommodation. Use only the posts provided. Respond with
JSON only: {"positive":["..."],"negative":["..."]} where each entry is one short
takeaway a traveler can act on. At most 5 entries per list.`
)

// chatCompleter is the slice of the OpenAI client we use; tests substitute a
// scripted implementation.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Analyst struct {
	cc         chatCompleter
	model      string
	rl         *rate.Limiter
	retryDelay time.Duration
}

func New(apiKey, model string, rps int) *Analyst {
	if model == "" {
		model = defaultModel
	}
	if rps <= 0 {
		rps = 2
	}
	return &Analyst{
		cc:         openai.NewClient(apiKey),
		model:      model,
		rl:         rate.NewLimiter(rate.Limit(rps), rps),
		retryDelay: 2 * time.Second,
	}
}

// NewWithCompleter wires a custom completion backend; used by tests.
func NewWithCompleter(cc chatCompleter, model string) *Analyst {
	return &Analyst{cc: cc, model: model, rl: rate.NewLimiter(rate.Inf, 1), retryDelay: time.Millisecond}
}

// ClassifySafetyRelevance returns a verdict per opinion ID. Opinions the
// model does not mention are absent from the map.
func (a *Analyst) ClassifySafetyRelevance(ctx context.Context, ops []domain.CommunityOpinion) (map[string]bool, error) {
	if len(ops) == 0 {
		return map[string]bool{}, nil
	}

	var b strings.Builder
	for _, op := range ops {
		fmt.Fprintf(&b, "id: %s\npost: %s\n---\n", op.ID, truncate(op.Text(), 1500))
	}

	content, err := a.complete(ctx, classifySystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []struct {
			ID       string `json:"id"`
			Relevant bool   `json:"relevant"`
		} `json:"results"`
	}
	if err := unmarshalLoose(content, &parsed); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}

	known := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		known[op.ID] = struct{}{}
	}
	out := make(map[string]bool, len(parsed.Results))
	for _, r := range parsed.Results {
		if _, ok := known[r.ID]; !ok {
			continue // hallucinated id
		}
		out[r.ID] = r.Relevant
	}
	return out, nil
}

// SummarizeTakeaways condenses nearby opinions into positive and negative
// traveler takeaways.
func (a *Analyst) SummarizeTakeaways(ctx context.Context, ops []domain.CommunityOpinion) (domain.TakeawayDraft, error) {
	if len(ops) == 0 {
		return domain.TakeawayDraft{}, nil
	}

	var b strings.Builder
	for i, op := range ops {
		place := ""
		if op.PlaceName != nil {
			place = " (about " + *op.PlaceName + ")"
		}
		fmt.Fprintf(&b, "post %d%s: %s\n---\n", i+1, place, truncate(op.Text(), 1500))
	}

	content, err := a.complete(ctx, summarizeSystemPrompt, b.String())
	if err != nil {
		return domain.TakeawayDraft{}, err
	}

	var draft domain.TakeawayDraft
	if err := unmarshalLoose(content, &draft); err != nil {
		return domain.TakeawayDraft{}, fmt.Errorf("parse summary response: %w", err)
	}
	return draft, nil
}

// complete runs one chat completion with retries on transient failures.
func (a *Analyst) complete(ctx context.Context, system, user string) (string, error) {
	if err := a.rl.Wait(ctx); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := a.cc.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			Temperature: 0.1,
		})
		if err == nil && len(resp.Choices) > 0 {
			return resp.Choices[0].Message.Content, nil
		}
		if err == nil {
			err = fmt.Errorf("completion returned no choices")
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("chat completion failed")

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * a.retryDelay):
			}
		}
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", maxAttempts, lastErr)
}

// unmarshalLoose tolerates prose or code fences around the JSON object.
func unmarshalLoose(raw string, dst any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(raw[start:end+1]), dst)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
