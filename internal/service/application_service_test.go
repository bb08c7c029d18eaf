package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
)

type applicationStoreStub struct {
	created   []*models.Application
	app       *models.Application
	listed    []models.Application
	total     int
	filter    models.ApplicationFilter
	listCalls int
	findErr   error
	deleted   []string
}

func (s *applicationStoreStub) Create(ctx context.Context, app *models.Application) error {
	app.ID = "app-1"
	s.created = append(s.created, app)
	return nil
}

func (s *applicationStoreStub) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.app, nil
}

func (s *applicationStoreStub) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	s.filter = filter
	s.listCalls++
	return s.listed, s.total, nil
}

func (s *applicationStoreStub) UpdatePayload(ctx context.Context, id string, fields models.JSONMap, status *models.ApplicationStatus) error {
	return nil
}

func (s *applicationStoreStub) SoftDelete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type auditStoreStub struct {
	logs []*models.AuditLog
}

func (s *auditStoreStub) Create(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func (s *auditStoreStub) ListByRecord(ctx context.Context, tableName, recordID string) ([]models.AuditLog, error) {
	var result []models.AuditLog
	for _, l := range s.logs {
		if l.TableName == tableName && l.RecordID != nil && *l.RecordID == recordID {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (s *auditStoreStub) DeleteByRecord(ctx context.Context, tableName, recordID string) (int64, error) {
	return int64(len(s.logs)), nil
}

type cacheRepoStub struct {
	values   map[string][]byte
	patterns []string
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	s.values[key] = raw
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	s.values = make(map[string][]byte)
	return nil
}

func newApplicationFixture(app *models.Application) (*ApplicationService, *applicationStoreStub, *auditStoreStub) {
	store := &applicationStoreStub{app: app}
	auditStore := &auditStoreStub{}
	svc := NewApplicationService(store, nil, NewAuditService(auditStore, nil), nil, nil)
	return svc, store, auditStore
}

func TestApplicationCreateRejectsUnknownPayloadKey(t *testing.T) {
	svc, store, _ := newApplicationFixture(nil)

	_, err := svc.Create(context.Background(), dto.CreateApplicationRequest{
		Kind:    models.KindDirectHire,
		Payload: map[string]interface{}{"favorite_color": "blue"},
	}, staffClaims("staff-1"))

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, store.created)
}

func TestApplicationCreateScopesApplicantToSelf(t *testing.T) {
	svc, store, audit := newApplicationFixture(nil)

	other := "someone-else"
	app, err := svc.Create(context.Background(), dto.CreateApplicationRequest{
		Kind:            models.KindDirectHire,
		ApplicantUserID: &other,
		Payload:         map[string]interface{}{"first_name": "Maria"},
	}, applicantClaims("user-1"))
	require.NoError(t, err)

	require.NotNil(t, app.ApplicantUserID)
	assert.Equal(t, "user-1", *app.ApplicantUserID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Contains(t, app.ControlNumber, "DH-")
	require.Len(t, store.created, 1)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionApplicationCreate, audit.logs[0].Action)
}

func TestApplicationGetDeniesForeignApplicant(t *testing.T) {
	owner := "user-1"
	svc, _, _ := newApplicationFixture(&models.Application{ID: "app-1", Kind: models.KindDirectHire, ApplicantUserID: &owner})

	_, err := svc.Get(context.Background(), "app-1", applicantClaims("intruder"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestApplicationListScopesApplicants(t *testing.T) {
	svc, store, _ := newApplicationFixture(nil)

	_, _, err := svc.List(context.Background(), dto.ListApplicationsRequest{}, applicantClaims("user-1"))
	require.NoError(t, err)
	require.NotNil(t, store.filter.ApplicantUserID)
	assert.Equal(t, "user-1", *store.filter.ApplicantUserID)
}

func TestApplicationListRejectsUnknownKind(t *testing.T) {
	svc, _, _ := newApplicationFixture(nil)

	_, _, err := svc.List(context.Background(), dto.ListApplicationsRequest{Kind: "seafarer"}, staffClaims("staff-1"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestApplicationDeleteRequiresAdmin(t *testing.T) {
	svc, store, _ := newApplicationFixture(&models.Application{ID: "app-1", Kind: models.KindDirectHire})

	err := svc.Delete(context.Background(), "app-1", staffClaims("staff-1"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, store.deleted)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(context.Background(), "app-1", admin))
	assert.Equal(t, []string{"app-1"}, store.deleted)
}

func newCachedApplicationFixture() (*ApplicationService, *applicationStoreStub, *cacheRepoStub) {
	store := &applicationStoreStub{
		listed: []models.Application{{ID: "app-1", Kind: models.KindDirectHire, ControlNumber: "DH-2026-ABCD1234"}},
		total:  1,
	}
	cacheRepo := &cacheRepoStub{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, nil)
	svc := NewApplicationService(store, cacheSvc, NewAuditService(&auditStoreStub{}, nil), nil, nil)
	return svc, store, cacheRepo
}

func TestApplicationListServesRepeatQueriesFromCache(t *testing.T) {
	svc, store, _ := newCachedApplicationFixture()
	req := dto.ListApplicationsRequest{Kind: "direct_hire", Page: 2}

	first, pg, err := svc.List(context.Background(), req, staffClaims("staff-1"))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 2, pg.Page)

	store.listed = nil
	store.total = 0
	second, pg, err := svc.List(context.Background(), req, staffClaims("staff-1"))
	require.NoError(t, err)

	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, pg.TotalCount)
}

func TestApplicationListCacheKeyedByApplicantScope(t *testing.T) {
	svc, store, _ := newCachedApplicationFixture()

	_, _, err := svc.List(context.Background(), dto.ListApplicationsRequest{}, staffClaims("staff-1"))
	require.NoError(t, err)
	_, _, err = svc.List(context.Background(), dto.ListApplicationsRequest{}, applicantClaims("user-1"))
	require.NoError(t, err)

	// The applicant's scoped listing must not be served from the staff page.
	assert.Equal(t, 2, store.listCalls)
}

func TestApplicationWritesInvalidateCachedListings(t *testing.T) {
	svc, store, cacheRepo := newCachedApplicationFixture()
	req := dto.ListApplicationsRequest{}

	_, _, err := svc.List(context.Background(), req, staffClaims("staff-1"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), dto.CreateApplicationRequest{
		Kind:    models.KindDirectHire,
		Payload: map[string]interface{}{"first_name": "Maria"},
	}, staffClaims("staff-1"))
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.patterns, "applications:list:*")

	_, _, err = svc.List(context.Background(), req, staffClaims("staff-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
}

func TestApplicationGetNotFound(t *testing.T) {
	svc, store, _ := newApplicationFixture(nil)
	store.findErr = sql.ErrNoRows

	_, err := svc.Get(context.Background(), "missing", staffClaims("staff-1"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
