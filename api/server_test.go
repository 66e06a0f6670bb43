package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pdfchat/api"
	"pdfchat/store"
)

type stubTexts struct {
	id       int64
	err      error
	saved    string
	filename string
}

func (s *stubTexts) SaveText(_ context.Context, filename, content string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.filename = filename
	s.saved = content
	return s.id, nil
}

func (s *stubTexts) GetText(context.Context, int64) (string, error) {
	return "", store.ErrNotFound
}

type stubBlobs struct {
	keys []string
	err  error
}

func (s *stubBlobs) Put(_ context.Context, key string, _ []byte) error {
	if s.err != nil {
		return s.err
	}
	s.keys = append(s.keys, key)
	return nil
}

type stubLimiter struct {
	allow bool
}

func (s stubLimiter) Admit(string, time.Time) bool { return s.allow }

func newTestServer(texts *stubTexts, blobs *stubBlobs, limiter stubLimiter, extract api.TextExtractor) *api.Server {
	return api.New(zerolog.Nop(), texts, blobs, limiter, extract, http.NotFoundHandler())
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/upload", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	return r
}

func TestRootWelcome(t *testing.T) {
	server := newTestServer(&stubTexts{}, &stubBlobs{}, stubLimiter{allow: true}, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "Welcome to Pdf Chat Bot!" {
		t.Fatalf("unexpected welcome message: %q", resp.Message)
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(&stubTexts{}, &stubBlobs{}, stubLimiter{allow: true}, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestUploadSuccess(t *testing.T) {
	texts := &stubTexts{id: 42}
	blobs := &stubBlobs{}
	server := newTestServer(texts, blobs, stubLimiter{allow: true}, func([]byte) (string, error) {
		return "extracted text", nil
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, uploadRequest(t, "report.pdf", []byte("%PDF-1.4")))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID       int64  `json:"id"`
		Filename string `json:"filename"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 42 || resp.Filename != "report.pdf" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Message != "File successfully uploaded and text extracted." {
		t.Fatalf("unexpected message: %q", resp.Message)
	}

	if texts.saved != "extracted text" {
		t.Fatalf("extracted text not persisted: %q", texts.saved)
	}
	if len(blobs.keys) != 1 || blobs.keys[0] != "report.pdf" {
		t.Fatalf("blob not archived: %v", blobs.keys)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	server := newTestServer(&stubTexts{}, &stubBlobs{}, stubLimiter{allow: true}, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, uploadRequest(t, "notes.txt", []byte("plain text")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestUploadRateLimited(t *testing.T) {
	server := newTestServer(&stubTexts{}, &stubBlobs{}, stubLimiter{allow: false}, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, uploadRequest(t, "report.pdf", []byte("%PDF-1.4")))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestUploadExtractionFailure(t *testing.T) {
	server := newTestServer(&stubTexts{}, &stubBlobs{}, stubLimiter{allow: true}, func([]byte) (string, error) {
		return "", errors.New("not a pdf")
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, uploadRequest(t, "broken.pdf", []byte("garbage")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestUploadStoreFailure(t *testing.T) {
	server := newTestServer(&stubTexts{err: errors.New("db down")}, &stubBlobs{}, stubLimiter{allow: true}, func([]byte) (string, error) {
		return "text", nil
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, uploadRequest(t, "report.pdf", []byte("%PDF-1.4")))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestUploadSurvivesBlobFailure(t *testing.T) {
	server := newTestServer(&stubTexts{id: 7}, &stubBlobs{err: errors.New("disk full")}, stubLimiter{allow: true}, func([]byte) (string, error) {
		return "text", nil
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, uploadRequest(t, "report.pdf", []byte("%PDF-1.4")))

	// Archival is best effort; the upload already succeeded.
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestUploadRequiresPost(t *testing.T) {
	server := newTestServer(&stubTexts{}, &stubBlobs{}, stubLimiter{allow: true}, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/upload", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}
