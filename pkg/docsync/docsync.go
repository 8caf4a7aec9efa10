// Package docsync keeps the session's document list in step with the
// remote document store.
package docsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/internal/types"
	"github.com/xhad/docchat/pkg/client"
	"github.com/xhad/docchat/pkg/logger"
	"github.com/xhad/docchat/pkg/session"
)

const (
	LoadingMessage   = "Loading documents..."
	UploadingMessage = "Uploading document..."

	StatusUploading = "Uploading..."
	StatusUploaded  = "Document uploaded successfully!"
)

type SyncConfig struct {
	Store          types.DocumentStore
	Session        *session.Session
	Status         types.StatusSink
	MaxUploadBytes int64
	Timeout        time.Duration
	Logger         *zap.Logger
}

type Synchronizer struct {
	config SyncConfig
	log    *zap.Logger
}

func NewWithConfig(config SyncConfig) (*Synchronizer, error) {
	if config.Store == nil {
		return nil, errors.New("document store is required")
	}
	if config.Session == nil {
		return nil, errors.New("session is required")
	}
	if config.Status == nil {
		return nil, errors.New("status sink is required")
	}
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = 16 * 1024 * 1024
	}

	return &Synchronizer{
		config: config,
		log:    logger.OrNop(config.Logger).With(zap.String("module", "docsync")),
	}, nil
}

// LoadAll replaces the session's documents with the store's list. On
// failure the documents are left alone and the error is shown as status.
func (s *Synchronizer) LoadAll(ctx context.Context) error {
	release, err := s.config.Session.TryAcquire(LoadingMessage)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	docs, err := s.config.Store.ListDocuments(ctx)
	if err != nil {
		s.log.Error("failed to load documents", zap.Error(err))
		s.config.Status.Set(models.ErrorPrefix + client.UserMessage(err, client.LoadFallback))
		return fmt.Errorf("failed to load documents: %w", err)
	}

	evicted := s.config.Session.ReplaceDocuments(docs)
	s.log.Info("documents loaded", zap.Int("count", len(docs)), zap.Strings("evicted", evicted))

	if s.config.Session.Policy() == session.PolicyLegacy {
		if dangling := s.config.Session.Violations(); len(dangling) > 0 {
			s.log.Warn("selection references documents no longer listed", zap.Strings("doc_ids", dangling))
		}
	}
	return nil
}

// Upload validates and sends the PDF at path. The new document becomes the
// only selection.
func (s *Synchronizer) Upload(ctx context.Context, path string) (models.Document, error) {
	if !IsPDF(path) {
		return models.Document{}, s.reject(path, client.ErrNotPDF)
	}

	file, err := os.Open(path)
	if err != nil {
		return models.Document{}, s.reject(path, &client.ValidationError{
			Message: fmt.Sprintf("Cannot read %s", filepath.Base(path)),
		})
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return models.Document{}, s.reject(path, &client.ValidationError{
			Message: fmt.Sprintf("Cannot read %s", filepath.Base(path)),
		})
	}
	if info.Size() > s.config.MaxUploadBytes {
		return models.Document{}, s.reject(path, &client.ValidationError{
			Message: fmt.Sprintf("File exceeds the %s upload limit", formatBytes(s.config.MaxUploadBytes)),
		})
	}

	return s.upload(ctx, filepath.Base(path), file)
}

// UploadReader is Upload for content that is not on disk.
func (s *Synchronizer) UploadReader(ctx context.Context, filename string, content io.Reader) (models.Document, error) {
	if !IsPDF(filename) {
		return models.Document{}, s.reject(filename, client.ErrNotPDF)
	}
	return s.upload(ctx, filename, content)
}

func (s *Synchronizer) upload(ctx context.Context, filename string, content io.Reader) (models.Document, error) {
	release, err := s.config.Session.TryAcquire(UploadingMessage)
	if err != nil {
		return models.Document{}, err
	}
	defer release()

	s.config.Status.Set(StatusUploading)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc, err := s.config.Store.UploadDocument(ctx, filename, content)
	if err != nil {
		s.log.Error("upload failed", zap.String("filename", filename), zap.Error(err))
		s.config.Status.Set(models.ErrorPrefix + client.UserMessage(err, client.UploadFallback))
		return models.Document{}, fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	s.config.Session.AddUploaded(doc)
	s.config.Status.SetTransient(StatusUploaded)
	s.log.Info("document added", zap.String("doc_id", doc.ID), zap.String("filename", doc.Filename))
	return doc, nil
}

func (s *Synchronizer) reject(name string, err *client.ValidationError) error {
	s.log.Warn("upload rejected", zap.String("file", name), zap.String("reason", err.Message))
	s.config.Status.Set(models.ErrorPrefix + err.Message)
	return err
}

func (s *Synchronizer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// IsPDF reports whether name has a .pdf suffix, ignoring case.
func IsPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%d MB", n/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%d KB", n/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}
