package document

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"tradegate/internal/document/artifact"
	"tradegate/internal/platform/metrics"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
	"tradegate/pkg/platform/sentinel"
)

// Store is the record persistence port, satisfied by document/store.
type Store interface {
	Upsert(ctx context.Context, doc *Document) error
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, documentID id.DocumentID) error
	FindByID(ctx context.Context, documentID id.DocumentID) (*Document, error)
	FindByIDForUpdate(ctx context.Context, documentID id.DocumentID) (*Document, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Document, error)
	ListRejectedBefore(ctx context.Context, cutoff time.Time) ([]*Document, error)
}

// Service enforces upload policy and owns the artifact lifecycle.
type Service struct {
	store     Store
	artifacts artifact.Storage
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, artifacts artifact.Storage, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact storage is required")
	}

	svc := &Service{
		store:     store,
		artifacts: artifacts,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// extensionsByMime cross-checks the declared MIME type against the filename
// extension. A mismatch is a rejection, never a silent coercion.
var extensionsByMime = map[string][]string{
	"application/pdf": {".pdf"},
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/webp":      {".webp"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
}

// Accept validates the upload against the caller-declared policy, stores the
// artifact under a collision-resistant name, and replaces any existing record
// for (account, kind). The fresh record always starts pending.
func (s *Service) Accept(ctx context.Context, accountID id.AccountID, kind Kind, upload Upload, pol UploadPolicy) (*Document, error) {
	if err := validateUpload(upload, pol); err != nil {
		return nil, err
	}

	name := s.storageName(accountID, kind, upload.Filename)
	reference, err := s.artifacts.Put(ctx, name, bytes.NewReader(upload.Content))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store document")
	}

	doc := &Document{
		ID:          id.NewDocumentID(),
		AccountID:   accountID,
		Kind:        kind,
		Reference:   reference,
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		Size:        int64(len(upload.Content)),
		Status:      StatusPending,
		SubmittedAt: s.now(),
	}
	if err := s.store.Upsert(ctx, doc); err != nil {
		// The orphaned artifact is cheap next to a lost record; remove it.
		if delErr := s.artifacts.Delete(ctx, reference); delErr != nil {
			s.logger.WarnContext(ctx, "orphaned artifact cleanup failed",
				"reference", reference, "error", delErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record document")
	}
	return doc, nil
}

// Delete removes a document on behalf of its owner. Approved documents are
// immutable to owners. Record deletion wins over artifact deletion: a failed
// artifact removal is logged, never surfaced, so no undeletable row lingers.
func (s *Service) Delete(ctx context.Context, documentID id.DocumentID, requesterID id.AccountID) error {
	doc, err := s.store.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load document")
	}

	if doc.AccountID != requesterID {
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	if doc.Status == StatusApproved {
		return dErrors.New(dErrors.CodeConflict, "approved documents cannot be deleted")
	}

	if err := s.store.Delete(ctx, documentID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete document")
	}
	if err := s.artifacts.Delete(ctx, doc.Reference); err != nil {
		s.logger.WarnContext(ctx, "artifact deletion failed",
			"document_id", documentID, "reference", doc.Reference, "error", err)
	}
	return nil
}

// RetentionSweep deletes rejected documents older than maxAge and reports how
// many went. One stubborn document never aborts the sweep.
func (s *Service) RetentionSweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	docs, err := s.store.ListRejectedBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list expired documents")
	}

	deleted := 0
	for _, doc := range docs {
		if err := s.store.Delete(ctx, doc.ID); err != nil {
			s.logger.WarnContext(ctx, "retention sweep skipped document",
				"document_id", doc.ID, "error", err)
			continue
		}
		if err := s.artifacts.Delete(ctx, doc.Reference); err != nil {
			s.logger.WarnContext(ctx, "artifact deletion failed during sweep",
				"document_id", doc.ID, "reference", doc.Reference, "error", err)
		}
		deleted++
		if s.metrics != nil {
			s.metrics.DocumentsSwept.Inc()
		}
	}
	return deleted, nil
}

func validateUpload(upload Upload, pol UploadPolicy) error {
	if int64(len(upload.Content)) > pol.MaxSize {
		return dErrors.Newf(dErrors.CodePolicy, "file exceeds the %d byte limit", pol.MaxSize)
	}

	allowed := false
	for _, mimeType := range pol.AllowedTypes {
		if upload.MimeType == mimeType {
			allowed = true
			break
		}
	}
	if !allowed {
		return dErrors.Newf(dErrors.CodePolicy, "unsupported media type %q", upload.MimeType)
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	for _, expected := range extensionsByMime[upload.MimeType] {
		if ext == expected {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodePolicy, "file extension %q does not match declared type %q", ext, upload.MimeType)
}

// storageName builds a collision-resistant artifact name so concurrent
// uploads of different kinds for one account never race on a path.
func (s *Service) storageName(accountID id.AccountID, kind Kind, filename string) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s/%d_%s%s", accountID, kind, s.now().UnixNano(), hex.EncodeToString(suffix), ext)
}
