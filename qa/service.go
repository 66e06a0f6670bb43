// Package qa orchestrates the question-answering pipeline: chunk the
// document, index it, retrieve the most relevant chunks, and condition the
// language model on them.
package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"pdfchat/embeddings"
	"pdfchat/llm"
	"pdfchat/retrieval"
)

const defaultTopK = 4

const (
	noContextAnswer = "No relevant documents found in the index."
	noOutputAnswer  = "No answer was found for your question."
)

// GenerationError wraps any downstream pipeline failure. Callers surface a
// generic message to clients; the wrapped cause is for server-side logs only.
type GenerationError struct {
	Step string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Indexes provides a ready retrieval index for a document's current text.
type Indexes interface {
	Ensure(ctx context.Context, textID int64, text string) (retrieval.Index, error)
}

type Service struct {
	indexes  Indexes
	embedder embeddings.Embedder
	llm      llm.Client
	topK     int
	logger   zerolog.Logger
}

func NewService(indexes Indexes, embedder embeddings.Embedder, llmClient llm.Client, topK int, logger zerolog.Logger) *Service {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Service{
		indexes:  indexes,
		embedder: embedder,
		llm:      llmClient,
		topK:     topK,
		logger:   logger,
	}
}

// Answer resolves question against the document's text. Expected outcomes
// (no matching chunks, no model output) come back as literal fallback answers
// with a nil error; everything else fails with a *GenerationError.
func (s *Service) Answer(ctx context.Context, textID int64, text, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &GenerationError{Step: "validate question", Err: fmt.Errorf("question cannot be empty")}
	}

	index, err := s.indexes.Ensure(ctx, textID, text)
	if err != nil {
		return "", &GenerationError{Step: "build retrieval index", Err: err}
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", &GenerationError{Step: "embed question", Err: err}
	}
	if len(vectors) == 0 {
		return "", &GenerationError{Step: "embed question", Err: fmt.Errorf("embedder returned no vectors")}
	}

	contexts, err := index.Search(ctx, vectors[0], s.topK)
	if err != nil {
		return "", &GenerationError{Step: "similarity search", Err: err}
	}
	if len(contexts) == 0 {
		s.logger.Debug().Int64("text_id", textID).Msg("similarity search returned no chunks")
		return noContextAnswer, nil
	}

	answer, err := s.llm.Generate(ctx, promptMessages(contexts, question))
	if err != nil {
		return "", &GenerationError{Step: "generate answer", Err: err}
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		s.logger.Debug().Int64("text_id", textID).Msg("model produced no output, using fallback answer")
		return noOutputAnswer, nil
	}

	return answer, nil
}
