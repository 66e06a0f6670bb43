// Package api exposes the HTTP surface: PDF upload, the question websocket,
// and health endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"pdfchat/store"
	"pdfchat/ws"
)

const maxUploadBytes = 32 << 20

// TextExtractor converts raw PDF bytes to plain text.
type TextExtractor func(data []byte) (string, error)

type Server struct {
	logger    zerolog.Logger
	texts     store.TextStore
	blobs     store.BlobStore
	limiter   ws.Limiter
	extract   TextExtractor
	questions http.Handler
	handler   http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

func New(logger zerolog.Logger, texts store.TextStore, blobs store.BlobStore, limiter ws.Limiter, extract TextExtractor, questions http.Handler) *Server {
	s := &Server{
		logger:    logger,
		texts:     texts,
		blobs:     blobs,
		limiter:   limiter,
		extract:   extract,
		questions: questions,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Handler wraps the routes with access logging.
func (s *Server) Handler() http.Handler {
	return hlog.NewHandler(s.logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			s.logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("dur", dur).
				Msg("http")
		})(s.handler),
	)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.Handle("/ws/question", s.questions)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Welcome to Pdf Chat Bot!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	if !s.limiter.Admit(ws.ClientIdentity(r), time.Now()) {
		s.writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded, please try again later"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid file type, only PDFs are allowed"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload body: %w", err))
		return
	}

	text, err := s.extract(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("extract pdf text: %w", err))
		return
	}

	ctx := r.Context()
	id, err := s.texts.SaveText(ctx, header.Filename, text)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("save pdf text: %w", err))
		return
	}

	// Archival of the raw bytes is best effort; the extracted text is
	// already committed and answerable.
	if err := s.blobs.Put(ctx, header.Filename, data); err != nil {
		s.logger.Error().Err(err).Str("filename", header.Filename).Msg("archive pdf blob")
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		ID:       id,
		Filename: header.Filename,
		Message:  "File successfully uploaded and text extracted.",
	})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn().Int("status", status).Err(err).Msg("api error")
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
