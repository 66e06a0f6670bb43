package qa_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"pdfchat/llm"
	"pdfchat/qa"
	"pdfchat/retrieval"
)

type stubIndex struct {
	results []string
	err     error
}

func (s stubIndex) Search(_ context.Context, _ []float32, k int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if k > len(s.results) {
		k = len(s.results)
	}
	return s.results[:k], nil
}

type stubIndexes struct {
	index retrieval.Index
	err   error
}

func (s stubIndexes) Ensure(context.Context, int64, string) (retrieval.Index, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.index, nil
}

type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s stubEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors, nil
}

type stubLLM struct {
	answer   string
	err      error
	lastUser string
}

func (s *stubLLM) Generate(_ context.Context, messages []llm.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for _, msg := range messages {
		if msg.Role == llm.RoleUser {
			s.lastUser = msg.Content
		}
	}
	return s.answer, nil
}

func newService(indexes qa.Indexes, embedder stubEmbedder, client *stubLLM) *qa.Service {
	return qa.NewService(indexes, embedder, client, 0, zerolog.Nop())
}

func TestAnswerReturnsGeneratedText(t *testing.T) {
	client := &stubLLM{answer: "The report covers 2023."}
	svc := newService(
		stubIndexes{index: stubIndex{results: []string{"chunk one", "chunk two"}}},
		stubEmbedder{vectors: [][]float32{{0.1, 0.2}}},
		client,
	)

	answer, err := svc.Answer(context.Background(), 1, "document text", "What year does the report cover?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "The report covers 2023." {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestAnswerPromptCarriesContextAndQuestion(t *testing.T) {
	client := &stubLLM{answer: "ok"}
	svc := newService(
		stubIndexes{index: stubIndex{results: []string{"relevant chunk"}}},
		stubEmbedder{vectors: [][]float32{{0.1}}},
		client,
	)

	if _, err := svc.Answer(context.Background(), 1, "text", "the question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"relevant chunk", "the question"} {
		if !strings.Contains(client.lastUser, want) {
			t.Fatalf("prompt missing %q: %q", want, client.lastUser)
		}
	}
}

func TestAnswerEmptyRetrievalFallsBack(t *testing.T) {
	client := &stubLLM{answer: "should not be used"}
	svc := newService(
		stubIndexes{index: stubIndex{}},
		stubEmbedder{vectors: [][]float32{{0.1}}},
		client,
	)

	answer, err := svc.Answer(context.Background(), 1, "text", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "No relevant documents found in the index." {
		t.Fatalf("expected the no-context fallback, got %q", answer)
	}
	if client.lastUser != "" {
		t.Fatal("generation must be skipped when retrieval finds nothing")
	}
}

func TestAnswerBlankGenerationFallsBack(t *testing.T) {
	svc := newService(
		stubIndexes{index: stubIndex{results: []string{"chunk"}}},
		stubEmbedder{vectors: [][]float32{{0.1}}},
		&stubLLM{answer: "   "},
	)

	answer, err := svc.Answer(context.Background(), 1, "text", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "No answer was found for your question." {
		t.Fatalf("expected the no-output fallback, got %q", answer)
	}
}

func TestAnswerWrapsPipelineFailures(t *testing.T) {
	cases := map[string]*qa.Service{
		"index build": newService(
			stubIndexes{err: errors.New("boom")},
			stubEmbedder{vectors: [][]float32{{0.1}}},
			&stubLLM{answer: "x"},
		),
		"embedding": newService(
			stubIndexes{index: stubIndex{results: []string{"chunk"}}},
			stubEmbedder{err: errors.New("boom")},
			&stubLLM{answer: "x"},
		),
		"generation": newService(
			stubIndexes{index: stubIndex{results: []string{"chunk"}}},
			stubEmbedder{vectors: [][]float32{{0.1}}},
			&stubLLM{err: errors.New("boom")},
		),
	}

	for name, svc := range cases {
		_, err := svc.Answer(context.Background(), 1, "text", "question")
		if err == nil {
			t.Fatalf("%s: expected an error", name)
		}
		var genErr *qa.GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("%s: expected *GenerationError, got %T", name, err)
		}
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	svc := newService(
		stubIndexes{index: stubIndex{results: []string{"chunk"}}},
		stubEmbedder{vectors: [][]float32{{0.1}}},
		&stubLLM{answer: "x"},
	)

	if _, err := svc.Answer(context.Background(), 1, "text", "   "); err == nil {
		t.Fatal("expected error for blank question")
	}
}
