package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
)

// Generic messages used when the server gives no usable error text.
const (
	LoadFallback   = "Failed to load documents"
	UploadFallback = "Upload failed"
)

type documentPayload struct {
	ID       models.DocID `json:"id"`
	Filename string       `json:"filename"`
}

// ListDocuments fetches the authoritative document list in server order.
// Any non-success status is a load error; the body is not consulted.
func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	const op = "list documents"

	req, err := http.NewRequest(http.MethodGet, c.endpoint(documentsPath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return nil, err
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: LoadFallback}
	}

	var payload []documentPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &MalformedResponseError{Op: op, Err: err}
	}

	docs := make([]models.Document, 0, len(payload))
	for _, p := range payload {
		if p.ID == "" {
			return nil, &MalformedResponseError{Op: op, Err: errors.New("document without id")}
		}
		docs = append(docs, models.Document{ID: string(p.ID), Filename: p.Filename})
	}

	c.log.Debug("documents listed", zap.Int("count", len(docs)))
	return docs, nil
}

// UploadDocument sends content as the single "file" part of a multipart body.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (models.Document, error) {
	const op = "upload document"

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", "application/pdf")

	part, err := writer.CreatePart(header)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return models.Document{}, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint(uploadPath), &body)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return models.Document{}, err
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Document{}, decodeError(op, resp, UploadFallback)
	}

	var payload struct {
		DocID    models.DocID `json:"doc_id"`
		Filename string       `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Document{}, &MalformedResponseError{Op: op, Err: err}
	}
	if payload.DocID == "" {
		return models.Document{}, &MalformedResponseError{Op: op, Err: errors.New("missing doc_id")}
	}

	doc := models.Document{ID: string(payload.DocID), Filename: payload.Filename}
	c.log.Info("document uploaded", zap.String("doc_id", doc.ID), zap.String("filename", doc.Filename))
	return doc, nil
}
