package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/middleware"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
)

type correctionServiceMock struct {
	flagErr    error
	listResp   []models.CorrectionEntry
	listErr    error
	resolveErr error
	submitErr  error

	flagCalled   bool
	listCalled   bool
	submitCalled bool
	lastFlagReq  dto.FlagFieldsRequest
	lastSubmit   dto.SubmitCorrectionRequest
	lastAppID    string
	readBodies   []string
}

func (m *correctionServiceMock) FlagFields(ctx context.Context, applicationID string, req dto.FlagFieldsRequest, actor *models.JWTClaims) error {
	m.flagCalled = true
	m.lastAppID = applicationID
	m.lastFlagReq = req
	return m.flagErr
}

func (m *correctionServiceMock) List(ctx context.Context, applicationID string, includeResolved bool, actor *models.JWTClaims) ([]models.CorrectionEntry, error) {
	m.listCalled = true
	m.lastAppID = applicationID
	return m.listResp, m.listErr
}

func (m *correctionServiceMock) ResolveField(ctx context.Context, applicationID string, req dto.ResolveFieldRequest, actor *models.JWTClaims) error {
	m.lastAppID = applicationID
	return m.resolveErr
}

func (m *correctionServiceMock) SubmitCorrection(ctx context.Context, applicationID string, req dto.SubmitCorrectionRequest, actor *models.JWTClaims) error {
	m.submitCalled = true
	m.lastAppID = applicationID
	m.lastSubmit = req
	for _, doc := range req.Documents {
		if doc.Content == nil {
			continue
		}
		raw, _ := io.ReadAll(doc.Content)
		m.readBodies = append(m.readBodies, string(raw))
	}
	return m.submitErr
}

func staffContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	c, r := gin.CreateTestContext(w)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})
	return c, r
}

func TestCorrectionHandlerFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &correctionServiceMock{}
	handler := NewCorrectionHandler(mockSvc)

	payload, _ := json.Marshal(dto.FlagFieldsRequest{
		Items: []dto.FlagFieldItem{{FieldKey: "first_name", Message: "name mismatch"}},
	})
	w := httptest.NewRecorder()
	c, _ := staffContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/corrections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.Flag(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.flagCalled)
	assert.Equal(t, "app-1", mockSvc.lastAppID)
	require.Len(t, mockSvc.lastFlagReq.Items, 1)
	assert.Equal(t, "first_name", mockSvc.lastFlagReq.Items[0].FieldKey)
}

func TestCorrectionHandlerFlagInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCorrectionHandler(&correctionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := staffContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/corrections", bytes.NewBufferString(`{"items":[`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Flag(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorrectionHandlerListServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &correctionServiceMock{listErr: appErrors.ErrForbidden}
	handler := NewCorrectionHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := staffContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applications/app-1/corrections", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.List(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, mockSvc.listCalled)
}

func TestCorrectionHandlerSubmitJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &correctionServiceMock{}
	handler := NewCorrectionHandler(mockSvc)

	payload, _ := json.Marshal(dto.SubmitCorrectionRequest{
		Payload: map[string]interface{}{"first_name": "Mara"},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/corrections/submit", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "applicant-1", Role: models.RoleApplicant})

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.submitCalled)
	assert.Equal(t, "Mara", mockSvc.lastSubmit.Payload["first_name"])
}

func TestCorrectionHandlerSubmitMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &correctionServiceMock{}
	handler := NewCorrectionHandler(mockSvc)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("firstName", "Mara"))
	part, err := writer.CreateFormFile("passport", "passport.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/corrections/submit", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "applicant-1", Role: models.RoleApplicant})

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mara", mockSvc.lastSubmit.Payload["firstName"])
	require.Len(t, mockSvc.lastSubmit.Documents, 1)
	assert.Equal(t, "passport", mockSvc.lastSubmit.Documents[0].FieldKey)
	assert.Equal(t, "passport.pdf", mockSvc.lastSubmit.Documents[0].FileName)
}

func TestCorrectionHandlerSubmitClosesFilePartsAfterService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &correctionServiceMock{}
	handler := NewCorrectionHandler(mockSvc)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("passport", "passport.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte(strings.Repeat("a", 64)))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	engine.MaxMultipartMemory = 1 // force the file part onto disk
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/corrections/submit", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "applicant-1", Role: models.RoleApplicant})

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)

	// The full body was readable while the service ran.
	require.Equal(t, []string{strings.Repeat("a", 64)}, mockSvc.readBodies)

	// The descriptor is released once the handler returns.
	require.Len(t, mockSvc.lastSubmit.Documents, 1)
	_, err = mockSvc.lastSubmit.Documents[0].Content.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestCorrectionHandlerSubmitConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &correctionServiceMock{
		submitErr: appErrors.Clone(appErrors.ErrConflict, "application has no active correction request"),
	}
	handler := NewCorrectionHandler(mockSvc)

	payload, _ := json.Marshal(dto.SubmitCorrectionRequest{
		Payload: map[string]interface{}{"first_name": "Mara"},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/corrections/submit", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "applicant-1", Role: models.RoleApplicant})

	handler.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)
}
