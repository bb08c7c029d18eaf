package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/storage"
)

type documentStore interface {
	ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)
}

type documentApplicationStore interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
}

type documentFileOpener interface {
	Open(relPath string) (io.ReadCloser, error)
}

// DownloadLink is a time-limited reference to a stored document file.
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentService exposes attached-document listings and signed downloads.
type DocumentService struct {
	documents documentStore
	apps      documentApplicationStore
	files     documentFileOpener
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(documents documentStore, apps documentApplicationStore, files documentFileOpener, signer *storage.SignedURLSigner, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{documents: documents, apps: apps, files: files, signer: signer, logger: logger}
}

// ListForApplication returns the documents attached to one application.
// Applicants only see documents on their own applications.
func (s *DocumentService) ListForApplication(ctx context.Context, applicationID string, actor *models.JWTClaims) ([]models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if !actor.Role.IsStaffRole() && !app.OwnedBy(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application does not belong to you")
	}
	docs, err := s.documents.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// IssueDownloadLink returns a signed, expiring file URL for one document.
func (s *DocumentService) IssueDownloadLink(ctx context.Context, documentID string, actor *models.JWTClaims) (*DownloadLink, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	app, err := s.apps.FindByID(ctx, doc.ApplicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if !actor.Role.IsStaffRole() && !app.OwnedBy(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document does not belong to you")
	}

	token, expiresAt, err := s.signer.Generate(doc.ID, doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &DownloadLink{URL: fmt.Sprintf("/api/v1/files/%s", token), ExpiresAt: expiresAt}, nil
}

// OpenSigned validates a signed token and opens the referenced file.
func (s *DocumentService) OpenSigned(ctx context.Context, token string) (*models.Document, io.ReadCloser, error) {
	documentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.FilePath != relPath {
		// The token was signed for a path the document no longer points at,
		// typically after a resubmission replaced the file.
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download token no longer matches the document")
	}
	reader, err := s.files.Open(doc.FilePath)
	if err != nil {
		s.logger.Warn("failed to open stored document", zap.String("path", doc.FilePath), zap.Error(err))
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "stored file is missing")
	}
	return doc, reader, nil
}
