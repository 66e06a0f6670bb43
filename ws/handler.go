package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pdfchat/store"
)

// Literal client-facing error frames. Internal failure detail stays in the
// server logs.
const (
	errInvalidFormat = "Invalid message format or error receiving data."
	errRateLimited   = "Rate limit exceeded. Please wait before sending more messages."
	errInvalidShape  = "Invalid request. 'text_id' must be an integer, and 'question' is required."
	errTextNotFound  = "PDF text not found."
	errAnswerFailed  = "Failed to process the question. Please try again later."
	errUnexpected    = "An unexpected error occurred. Please try again later."
)

// Limiter admits or rejects one message for a client at a point in time.
type Limiter interface {
	Admit(clientID string, now time.Time) bool
}

// Answerer resolves a question against a document's text.
type Answerer interface {
	Answer(ctx context.Context, textID int64, text, question string) (string, error)
}

// Handler runs the question channel: one goroutine per session, messages
// within a session handled strictly in receipt order, exactly one outbound
// frame per inbound frame.
type Handler struct {
	manager *Manager
	limiter Limiter
	texts   store.TextStore
	answers Answerer
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHandler(manager *Manager, limiter Limiter, texts store.TextStore, answers Answerer, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		manager: manager,
		limiter: limiter,
		texts:   texts,
		answers: answers,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Connect(w, r)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	defer h.manager.Disconnect(session)

	logger := h.logger.With().Str("client", session.ClientID()).Logger()
	logger.Info().Msg("question channel opened")

	for {
		data, err := session.Receive()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Warn().Err(err).Msg("question channel failed")
				_ = session.Send(ErrorMessage(errUnexpected))
			} else {
				logger.Info().Msg("question channel closed")
			}
			return
		}

		if err := h.handleFrame(r.Context(), logger, session, data); err != nil {
			logger.Warn().Err(err).Msg("send response frame")
			return
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, logger zerolog.Logger, session *Session, data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		logger.Debug().Err(err).Msg("unparseable frame")
		return session.Send(ErrorMessage(errInvalidFormat))
	}

	if !h.limiter.Admit(session.ClientID(), h.now()) {
		return session.Send(ErrorMessage(errRateLimited))
	}

	textID, question, ok := parseQuestion(fields)
	if !ok {
		return session.Send(ErrorMessage(errInvalidShape))
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	text, err := h.texts.GetText(ctx, textID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return session.Send(ErrorMessage(errTextNotFound))
		}
		logger.Error().Err(err).Int64("text_id", textID).Msg("fetch pdf text")
		return session.Send(ErrorMessage(errAnswerFailed))
	}

	answer, err := h.answers.Answer(ctx, textID, text, question)
	if err != nil {
		logger.Error().Err(err).Int64("text_id", textID).Msg("question pipeline failed")
		return session.Send(ErrorMessage(errAnswerFailed))
	}

	return session.Send(AnswerMessage(answer))
}

// parseQuestion validates the payload shape: an integer text_id and a
// non-empty question string.
func parseQuestion(fields map[string]json.RawMessage) (int64, string, bool) {
	rawID, ok := fields["text_id"]
	if !ok {
		return 0, "", false
	}
	var textID int64
	if err := json.Unmarshal(rawID, &textID); err != nil {
		return 0, "", false
	}

	rawQuestion, ok := fields["question"]
	if !ok {
		return 0, "", false
	}
	var question string
	if err := json.Unmarshal(rawQuestion, &question); err != nil {
		return 0, "", false
	}
	if strings.TrimSpace(question) == "" {
		return 0, "", false
	}

	return textID, question, true
}
