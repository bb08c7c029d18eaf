package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/storage"
)

type documentStoreStub struct {
	docs map[string]*models.Document
}

func (s *documentStoreStub) ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error) {
	var result []models.Document
	for _, d := range s.docs {
		if d.ApplicationID == applicationID {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (s *documentStoreStub) FindByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return doc, nil
}

type documentAppStub struct {
	app *models.Application
}

func (s *documentAppStub) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if s.app == nil || s.app.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.app, nil
}

type fileOpenerStub struct {
	files map[string]string
}

func (s *fileOpenerStub) Open(relPath string) (io.ReadCloser, error) {
	content, ok := s.files[relPath]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func newDocumentFixture() (*DocumentService, *documentStoreStub, *fileOpenerStub) {
	app := ownedApplication("applicant-1")
	docs := &documentStoreStub{docs: map[string]*models.Document{
		"doc-1": {
			ID:            "doc-1",
			ApplicationID: app.ID,
			DocType:       "passport",
			FileName:      "passport.pdf",
			FilePath:      "applications/app-1/passport.pdf",
			MimeType:      "application/pdf",
		},
	}}
	files := &fileOpenerStub{files: map[string]string{
		"applications/app-1/passport.pdf": "%PDF-1.4 passport scan",
	}}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewDocumentService(docs, &documentAppStub{app: app}, files, signer, nil)
	return svc, docs, files
}

func TestListForApplicationDeniesForeignApplicant(t *testing.T) {
	svc, _, _ := newDocumentFixture()

	_, err := svc.ListForApplication(context.Background(), ownedApplication("applicant-1").ID, applicantClaims("someone-else"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestListForApplicationAllowsStaff(t *testing.T) {
	svc, _, _ := newDocumentFixture()

	docs, err := svc.ListForApplication(context.Background(), ownedApplication("applicant-1").ID, staffClaims("staff-1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "passport", docs[0].DocType)
}

func TestSignedDownloadRoundTrip(t *testing.T) {
	svc, _, _ := newDocumentFixture()
	app := ownedApplication("applicant-1")

	link, err := svc.IssueDownloadLink(context.Background(), "doc-1", applicantClaims(*app.ApplicantUserID))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "/api/v1/files/"))
	assert.True(t, link.ExpiresAt.After(time.Now()))

	token := strings.TrimPrefix(link.URL, "/api/v1/files/")
	doc, reader, err := svc.OpenSigned(context.Background(), token)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "doc-1", doc.ID)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(content), "passport scan")
}

func TestIssueDownloadLinkDeniesForeignApplicant(t *testing.T) {
	svc, _, _ := newDocumentFixture()

	_, err := svc.IssueDownloadLink(context.Background(), "doc-1", applicantClaims("someone-else"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestOpenSignedRejectsTamperedToken(t *testing.T) {
	svc, _, _ := newDocumentFixture()

	_, _, err := svc.OpenSigned(context.Background(), "doc-1.9999999999.cGF0aA.deadbeef")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestOpenSignedRejectsStaleTokenAfterReplacement(t *testing.T) {
	svc, docs, _ := newDocumentFixture()
	app := ownedApplication("applicant-1")

	link, err := svc.IssueDownloadLink(context.Background(), "doc-1", applicantClaims(*app.ApplicantUserID))
	require.NoError(t, err)
	token := strings.TrimPrefix(link.URL, "/api/v1/files/")

	// A resubmission moved the document onto a new stored file.
	docs.docs["doc-1"].FilePath = "applications/app-1/passport-v2.pdf"

	_, _, err = svc.OpenSigned(context.Background(), token)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "no longer matches")
}

func TestOpenSignedMissingStoredFile(t *testing.T) {
	svc, _, files := newDocumentFixture()
	app := ownedApplication("applicant-1")

	link, err := svc.IssueDownloadLink(context.Background(), "doc-1", applicantClaims(*app.ApplicantUserID))
	require.NoError(t, err)
	token := strings.TrimPrefix(link.URL, "/api/v1/files/")

	delete(files.files, "applications/app-1/passport.pdf")

	_, _, err = svc.OpenSigned(context.Background(), token)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
