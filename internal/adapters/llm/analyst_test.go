package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"safestay/internal/domain"
)

type scriptedCompleter struct {
	replies []string
	errs    []error
	calls   int
	lastReq openai.ChatCompletionRequest
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := s.calls
	s.calls++
	s.lastReq = req
	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}
	reply := s.replies[len(s.replies)-1]
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: reply}}},
	}, nil
}

func strp(s string) *string { return &s }

func TestClassifySafetyRelevance(t *testing.T) {
	cc := &scriptedCompleter{replies: []string{
		"Here you go:\n```json\n{\"results\":[{\"id\":\"op-1\",\"relevant\":true},{\"id\":\"op-2\",\"relevant\":false},{\"id\":\"ghost\",\"relevant\":true}]}\n```",
	}}
	a := NewWithCompleter(cc, "test-model")

	ops := []domain.CommunityOpinion{
		{ID: "op-1", Title: strp("Is it safe at night?")},
		{ID: "op-2", Title: strp("Best tacos nearby")},
	}
	got, err := a.ClassifySafetyRelevance(context.Background(), ops)
	if err != nil {
		t.Fatalf("ClassifySafetyRelevance: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 verdicts (hallucinated id dropped), got %v", got)
	}
	if !got["op-1"] || got["op-2"] {
		t.Fatalf("unexpected verdicts: %v", got)
	}
	if cc.lastReq.Model != "test-model" {
		t.Fatalf("model not forwarded: %q", cc.lastReq.Model)
	}
}

func TestClassify_RetriesTransientError(t *testing.T) {
	cc := &scriptedCompleter{
		errs:    []error{errors.New("rate limited"), nil},
		replies: []string{"", `{"results":[{"id":"op-1","relevant":true}]}`},
	}
	a := NewWithCompleter(cc, "test-model")

	got, err := a.ClassifySafetyRelevance(context.Background(), []domain.CommunityOpinion{{ID: "op-1"}})
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if !got["op-1"] || cc.calls != 2 {
		t.Fatalf("verdicts=%v calls=%d", got, cc.calls)
	}
}

func TestSummarizeTakeaways(t *testing.T) {
	cc := &scriptedCompleter{replies: []string{
		`{"positive":["Well-lit main streets","Locals walk alone at night"],"negative":["Car break-ins near the lake"]}`,
	}}
	a := NewWithCompleter(cc, "test-model")

	ops := []domain.CommunityOpinion{
		{ID: "op-1", Body: strp("Streets are well lit."), PlaceName: strp("Echo Park")},
	}
	draft, err := a.SummarizeTakeaways(context.Background(), ops)
	if err != nil {
		t.Fatalf("SummarizeTakeaways: %v", err)
	}
	if len(draft.Positive) != 2 || len(draft.Negative) != 1 {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}

func TestSummarize_EmptyInput(t *testing.T) {
	cc := &scriptedCompleter{}
	a := NewWithCompleter(cc, "test-model")
	draft, err := a.SummarizeTakeaways(context.Background(), nil)
	if err != nil {
		t.Fatalf("SummarizeTakeaways: %v", err)
	}
	if cc.calls != 0 || len(draft.Positive) != 0 {
		t.Fatalf("expected no completion call for empty input")
	}
}
