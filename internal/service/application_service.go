package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
)

type applicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	UpdatePayload(ctx context.Context, id string, fields models.JSONMap, status *models.ApplicationStatus) error
	SoftDelete(ctx context.Context, id string) error
}

var controlNumberPrefixes = map[models.ApplicationKind]string{
	models.KindDirectHire:      "DH",
	models.KindBalikManggagawa: "BM",
	models.KindGovToGov:        "GG",
}

const (
	listingCachePrefix  = "applications:list:"
	listingCachePattern = listingCachePrefix + "*"
)

// applicationListPage is the cached shape of one listing result.
type applicationListPage struct {
	Items []models.Application `json:"items"`
	Total int                  `json:"total"`
}

// listingCacheKey derives a canonical cache key from a normalized filter.
// The applicant scope is part of the key so cached staff listings can never
// leak into an applicant's view.
func listingCacheKey(f models.ApplicationFilter) string {
	var kind, status, needs, applicant string
	if f.Kind != nil {
		kind = string(*f.Kind)
	}
	if f.Status != nil {
		status = string(*f.Status)
	}
	if f.NeedsCorrection != nil {
		needs = strconv.FormatBool(*f.NeedsCorrection)
	}
	if f.ApplicantUserID != nil {
		applicant = *f.ApplicantUserID
	}
	return fmt.Sprintf("%s%s:%s:%s:%s:%s:%d:%d",
		listingCachePrefix, kind, status, needs, applicant, f.Search, f.Page, f.PageSize)
}

// ApplicationService manages the case record lifecycle around the
// correction workflow: intake, listing, payload updates and soft deletion.
type ApplicationService struct {
	apps      applicationStore
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService constructs an ApplicationService. The cache is
// optional; a nil cache disables listing caching.
func NewApplicationService(apps applicationStore, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{apps: apps, cache: cache, audit: audit, validator: validate, logger: logger}
}

// Create registers a new application. Payload keys must be declared in the
// kind's field schema.
func (s *ApplicationService) Create(ctx context.Context, req dto.CreateApplicationRequest, actor *models.JWTClaims) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	schema, ok := models.SchemaFor(req.Kind)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown application kind %q", req.Kind))
	}
	for key := range req.Payload {
		if !schema.KnownPayloadField(key) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is not part of the %s schema", key, req.Kind))
		}
	}

	applicantID := req.ApplicantUserID
	if actor.Role == models.RoleApplicant {
		// Applicants can only file for themselves.
		applicantID = &actor.UserID
	}

	app := &models.Application{
		Kind:            req.Kind,
		ControlNumber:   s.generateControlNumber(req.Kind),
		ApplicantUserID: applicantID,
		Status:          models.StatusPending,
		Payload:         models.JSONMap(req.Payload),
		CreatedBy:       &actor.UserID,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.invalidateListings(ctx)

	newValues, _ := json.Marshal(app)
	s.audit.Record(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionApplicationCreate,
		TableName: "applications",
		RecordID:  &app.ID,
		NewValues: newValues,
		IPAddress: "system",
		UserAgent: "application-service",
	})
	return app, nil
}

// Get fetches one application. Applicants only see their own.
func (s *ApplicationService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if !actor.Role.IsStaffRole() && !app.OwnedBy(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application does not belong to you")
	}
	return app, nil
}

// List returns applications matching the query. Applicant listings are
// scoped to the caller regardless of the requested filter.
func (s *ApplicationService) List(ctx context.Context, req dto.ListApplicationsRequest, actor *models.JWTClaims) ([]models.Application, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	filter := models.ApplicationFilter{
		NeedsCorrection: req.NeedsCorrection,
		Search:          req.Search,
		Page:            req.Page,
		PageSize:        req.PageSize,
	}
	if kind := strings.TrimSpace(req.Kind); kind != "" {
		k := models.ApplicationKind(kind)
		if !k.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown application kind %q", kind))
		}
		filter.Kind = &k
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		st := models.ApplicationStatus(status)
		filter.Status = &st
	}
	if !actor.Role.IsStaffRole() {
		filter.ApplicantUserID = &actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := listingCacheKey(filter)
	var cached applicationListPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}, nil
	}

	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	s.cache.Set(ctx, key, applicationListPage{Items: apps, Total: total})

	return apps, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// invalidateListings drops every cached listing page. Any write to an
// application can change which pages a filter matches, so invalidation is
// pattern-wide rather than per-key.
func (s *ApplicationService) invalidateListings(ctx context.Context) {
	if err := s.cache.InvalidatePattern(ctx, listingCachePattern); err != nil {
		s.logger.Warn("failed to invalidate cached listings", zap.Error(err))
	}
}

// Update merges payload fields and optionally changes the status. Staff only.
func (s *ApplicationService) Update(ctx context.Context, id string, req dto.UpdateApplicationRequest, actor *models.JWTClaims) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaffRole() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff may update applications")
	}
	if len(req.Payload) == 0 && req.Status == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}

	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	schema, _ := models.SchemaFor(app.Kind)
	for key := range req.Payload {
		if !schema.KnownPayloadField(key) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is not part of the %s schema", key, app.Kind))
		}
	}

	oldValues, _ := json.Marshal(map[string]interface{}{"payload": app.Payload, "status": app.Status})
	if err := s.apps.UpdatePayload(ctx, app.ID, models.JSONMap(req.Payload), req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}
	s.invalidateListings(ctx)

	updated, err := s.apps.FindByID(ctx, app.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload application")
	}

	newValues, _ := json.Marshal(map[string]interface{}{"payload": updated.Payload, "status": updated.Status})
	s.audit.Record(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionApplicationUpdate,
		TableName: "applications",
		RecordID:  &app.ID,
		OldValues: oldValues,
		NewValues: newValues,
		IPAddress: "system",
		UserAgent: "application-service",
	})
	return updated, nil
}

// Delete soft-deletes an application. Admin and superadmin only.
func (s *ApplicationService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may delete applications")
	}

	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if err := s.apps.SoftDelete(ctx, app.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete application")
	}
	s.invalidateListings(ctx)

	oldValues, _ := json.Marshal(app)
	s.audit.Record(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionApplicationDelete,
		TableName: "applications",
		RecordID:  &app.ID,
		OldValues: oldValues,
		IPAddress: "system",
		UserAgent: "application-service",
	})
	return nil
}

func (s *ApplicationService) generateControlNumber(kind models.ApplicationKind) string {
	prefix, ok := controlNumberPrefixes[kind]
	if !ok {
		prefix = "APP"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("2006"), suffix)
}
