package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/docchat/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewWithConfig(ClientConfig{
		BaseURL:   server.URL,
		Timeout:   2 * time.Second,
		RateLimit: 1000,
	})
	require.NoError(t, err)
	return c
}

func TestNewWithConfig(t *testing.T) {
	c, err := NewWithConfig(ClientConfig{BaseURL: "http://localhost:5000/"})
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, c.config.Timeout)
	assert.Equal(t, float64(5), c.config.RateLimit)
	assert.Equal(t, "http://localhost:5000/api/ask", c.endpoint(askPath))

	_, err = NewWithConfig(ClientConfig{BaseURL: "localhost"})
	assert.Error(t, err)
}

func TestListDocuments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, documentsPath, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(requestIDHeader))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"a1","filename":"a.pdf"},{"id":42,"filename":"b.pdf"}]`))
	})

	docs, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Document{
		{ID: "a1", Filename: "a.pdf"},
		{ID: "42", Filename: "b.pdf"},
	}, docs)
}

func TestListDocumentsFailureIsUniform(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database offline"}`))
	})

	_, err := c.ListDocuments(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, LoadFallback, UserMessage(err, "unused"))
}

func TestListDocumentsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documents":[]}`))
	})

	_, err := c.ListDocuments(context.Background())
	var malformed *MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
}

func TestUploadDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, uploadPath, r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "notes.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4", string(content))
		assert.Len(t, r.MultipartForm.File, 1)

		json.NewEncoder(w).Encode(map[string]any{"success": true, "doc_id": "d7", "filename": "notes.pdf"})
	})

	doc, err := c.UploadDocument(context.Background(), "/tmp/notes.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, models.Document{ID: "d7", Filename: "notes.pdf"}, doc)
}

func TestUploadDocumentErrors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		status      int
		body        string
		want        string
		fromServer  bool
	}{
		{
			name:        "server message surfaced verbatim",
			contentType: "application/json",
			status:      http.StatusBadRequest,
			body:        `{"error":"Only PDF files are supported"}`,
			want:        "Only PDF files are supported",
			fromServer:  true,
		},
		{
			name:        "missing error field",
			contentType: "application/json",
			status:      http.StatusInternalServerError,
			body:        `{"success":false}`,
			want:        UploadFallback,
		},
		{
			name:        "empty body",
			contentType: "application/json",
			status:      http.StatusBadGateway,
			want:        UploadFallback,
		},
		{
			name:        "html error page",
			contentType: "text/html; charset=utf-8",
			status:      http.StatusRequestEntityTooLarge,
			body:        "<!doctype html>\n<html><head><title>413 Request Entity Too Large</title></head><body><h1>Request Entity Too Large</h1></body></html>",
			want:        "413 Request Entity Too Large",
			fromServer:  true,
		},
		{
			name:        "plain text body",
			contentType: "text/plain",
			status:      http.StatusInternalServerError,
			body:        "boom",
			want:        UploadFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.UploadDocument(context.Background(), "notes.pdf", strings.NewReader("%PDF"))
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.fromServer, apiErr.FromServer)
			assert.Equal(t, tt.want, UserMessage(err, UploadFallback))
		})
	}
}

func TestUploadDocumentMissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"filename":"notes.pdf"}`))
	})

	_, err := c.UploadDocument(context.Background(), "notes.pdf", strings.NewReader("%PDF"))
	var malformed *MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
}

func TestAsk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, askPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req askRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What is the summary?", req.Question)
		assert.Equal(t, []string{"d7"}, req.DocIDs)

		w.Write([]byte(`{"answer":"It is a summary.","confidence":0.87,"source_document":"notes.pdf"}`))
	})

	answer, err := c.Ask(context.Background(), "What is the summary?", []string{"d7"})
	require.NoError(t, err)
	assert.Equal(t, "It is a summary.", answer.Text)
	require.NotNil(t, answer.Confidence)
	assert.InDelta(t, 0.87, *answer.Confidence, 1e-9)
	assert.Equal(t, "notes.pdf", answer.SourceDocument)
}

func TestAskOptionalFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, []any{}, raw["doc_ids"])

		w.Write([]byte(`{"answer":"No context."}`))
	})

	answer, err := c.Ask(context.Background(), "Anything?", nil)
	require.NoError(t, err)
	assert.Equal(t, "No context.", answer.Text)
	assert.Nil(t, answer.Confidence)
	assert.Empty(t, answer.SourceDocument)
}

func TestAskOutOfRangeConfidenceDropped(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *float64
	}{
		{"above one", `{"answer":"a","confidence":1.7,"source_document":"notes.pdf"}`, nil},
		{"negative", `{"answer":"a","confidence":-0.2,"source_document":"notes.pdf"}`, nil},
		{"upper bound kept", `{"answer":"a","confidence":1,"source_document":"notes.pdf"}`, floatPtr(1)},
		{"lower bound kept", `{"answer":"a","confidence":0,"source_document":"notes.pdf"}`, floatPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			answer, err := c.Ask(context.Background(), "q", []string{"d7"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer.Confidence)
			assert.Equal(t, "notes.pdf", answer.SourceDocument)
		})
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestNewPanicsOnInvalidURL(t *testing.T) {
	assert.Panics(t, func() { New("not a url") })
	assert.NotPanics(t, func() { New("http://localhost:5000") })
}

func TestAskErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"no documents indexed"}`))
		})

		_, err := c.Ask(context.Background(), "q", []string{"d1"})
		assert.Equal(t, "no documents indexed", UserMessage(err, AskFallback))
	})

	t.Run("malformed success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		})

		_, err := c.Ask(context.Background(), "q", []string{"d1"})
		var malformed *MalformedResponseError
		assert.True(t, errors.As(err, &malformed))
		assert.Equal(t, AskFallback, UserMessage(err, AskFallback))
	})

	t.Run("transport failure", func(t *testing.T) {
		c, err := NewWithConfig(ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		require.NoError(t, err)

		_, err = c.Ask(context.Background(), "q", []string{"d1"})
		var transport *TransportError
		assert.True(t, errors.As(err, &transport))
		assert.Equal(t, AskFallback, UserMessage(err, AskFallback))
	})

	t.Run("deadline", func(t *testing.T) {
		release := make(chan struct{})
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.Ask(ctx, "q", []string{"d1"})
		var transport *TransportError
		require.True(t, errors.As(err, &transport))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestUserMessageValidation(t *testing.T) {
	assert.Equal(t, "Only PDF files are supported", UserMessage(ErrNotPDF, UploadFallback))
	assert.Equal(t, UploadFallback, UserMessage(errors.New("disk"), UploadFallback))
}
