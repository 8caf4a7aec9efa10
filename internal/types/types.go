package types

import (
	"context"
	"io"

	"github.com/xhad/docchat/internal/models"
)

// Core interfaces
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UploadDocument(ctx context.Context, filename string, content io.Reader) (models.Document, error)
}

type AnswerService interface {
	Ask(ctx context.Context, question string, docIDs []string) (models.Answer, error)
}

// StatusSink receives user-visible status text.
type StatusSink interface {
	Set(text string)
	SetTransient(text string)
	Clear()
}
