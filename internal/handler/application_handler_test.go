package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/middleware"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
)

type applicationServiceMock struct {
	createResp *models.Application
	createErr  error
	getResp    *models.Application
	getErr     error
	listResp   []models.Application
	listErr    error
	updateResp *models.Application
	updateErr  error
	deleteErr  error

	createCalled bool
	listCalled   bool
	lastListReq  dto.ListApplicationsRequest
	lastID       string
}

func (m *applicationServiceMock) Create(ctx context.Context, req dto.CreateApplicationRequest, actor *models.JWTClaims) (*models.Application, error) {
	m.createCalled = true
	return m.createResp, m.createErr
}

func (m *applicationServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error) {
	m.lastID = id
	return m.getResp, m.getErr
}

func (m *applicationServiceMock) List(ctx context.Context, req dto.ListApplicationsRequest, actor *models.JWTClaims) ([]models.Application, *models.Pagination, error) {
	m.listCalled = true
	m.lastListReq = req
	if m.listErr != nil {
		return nil, nil, m.listErr
	}
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, nil
}

func (m *applicationServiceMock) Update(ctx context.Context, id string, req dto.UpdateApplicationRequest, actor *models.JWTClaims) (*models.Application, error) {
	m.lastID = id
	return m.updateResp, m.updateErr
}

func (m *applicationServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	m.lastID = id
	return m.deleteErr
}

func TestApplicationHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{
		createResp: &models.Application{ID: "app-1", ControlNumber: "DH-2026-ABCD1234"},
	}
	handler := NewApplicationHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreateApplicationRequest{
		Kind:    models.KindDirectHire,
		Payload: map[string]interface{}{"first_name": "Mara"},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
}

func TestApplicationHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApplicationHandler(&applicationServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications", bytes.NewBufferString(`{"kind":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplicationHandlerListBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{
		listResp: []models.Application{{ID: "app-1"}},
	}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applications?kind=direct_hire&needs_correction=true&page=2", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listCalled)
	assert.Equal(t, "direct_hire", mockSvc.lastListReq.Kind)
	require.NotNil(t, mockSvc.lastListReq.NeedsCorrection)
	assert.True(t, *mockSvc.lastListReq.NeedsCorrection)
	assert.Equal(t, 2, mockSvc.lastListReq.Page)
}

func TestApplicationHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applications/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", mockSvc.lastID)
}

func TestApplicationHandlerDeleteForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{deleteErr: appErrors.ErrForbidden}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/applications/app-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})

	handler.Delete(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
