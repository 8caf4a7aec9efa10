package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxErrorBody = 1 << 20

// APIError is a non-success response. Message is the server's own error
// text when the body carried one, otherwise the operation's fallback.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	FromServer bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// TransportError wraps failures that never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is a success status with a body we could not use.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ValidationError is a local rejection; no request was sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var ErrNotPDF = &ValidationError{Message: "Only PDF files are supported"}

// UserMessage picks the text shown to the user for err: validation and
// server-reported messages verbatim, fallback for everything else.
func UserMessage(err error, fallback string) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// decodeError reads a non-success response into an *APIError.
func decodeError(op string, resp *http.Response, fallback string) *APIError {
	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Message: fallback}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return apiErr
	}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			apiErr.Message = msg
			apiErr.FromServer = true
		}
		return apiErr
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		if msg := htmlErrorTitle(body); msg != "" {
			apiErr.Message = msg
			apiErr.FromServer = true
		}
	}

	return apiErr
}

// htmlErrorTitle pulls a readable message out of a framework error page.
func htmlErrorTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	selectors := []string{"title", "h1"}
	for _, selector := range selectors {
		if text := strings.Join(strings.Fields(doc.Find(selector).First().Text()), " "); text != "" {
			return text
		}
	}
	return ""
}
