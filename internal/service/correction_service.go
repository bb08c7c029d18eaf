package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/jobs"
	"github.com/balikbayani/portal-api/pkg/storage"
)

type correctionLedger interface {
	ListByApplication(ctx context.Context, applicationID string, includeResolved bool) ([]models.CorrectionEntry, error)
	LatestByField(ctx context.Context, applicationID, fieldKey string) (*models.CorrectionEntry, error)
	LatestPerField(ctx context.Context, applicationID string, fieldKeys []string) ([]models.CorrectionEntry, error)
	FlagFields(ctx context.Context, applicationID string, items []models.FlagItem, createdBy string, note *string) error
	Resolve(ctx context.Context, applicationID, fieldKey string, resolved bool) (int, error)
}

type correctionApplicationStore interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ApplyCorrection(ctx context.Context, id string, fields models.JSONMap) error
}

type correctionDocumentStore interface {
	FindLatestByType(ctx context.Context, applicationID, docType string) (*models.Document, error)
	Replace(ctx context.Context, oldID string, doc *models.Document) error
}

type correctionFileStore interface {
	Store(r io.Reader, originalName, mimeType, ownerID, category string) (*storage.StoredFile, error)
	Delete(relPath string) error
}

type correctionCleanup interface {
	Enqueue(task jobs.CleanupTask) error
}

type correctionNotifier interface {
	NotifyCorrectionRequested(ctx context.Context, app *models.Application, items []models.FlagItem, note *string)
	NotifyCorrectionSubmitted(ctx context.Context, app *models.Application, fieldKeys []string)
	NotifyStaffResubmission(ctx context.Context, app *models.Application, entries []models.CorrectionEntry)
}

type correctionAuditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

// CorrectionService orchestrates the correction-and-resubmission workflow:
// staff flag fields, the applicant resubmits the flagged values, staff
// verify and resolve individual ledger entries. The application-level
// needs_correction/correction_fields pair is a projection of the ledger and
// is written exclusively through this service.
type CorrectionService struct {
	ledger    correctionLedger
	apps      correctionApplicationStore
	documents correctionDocumentStore
	files     correctionFileStore
	cleanup   correctionCleanup
	notifier  correctionNotifier
	audit     correctionAuditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCorrectionService constructs a CorrectionService.
func NewCorrectionService(
	ledger correctionLedger,
	apps correctionApplicationStore,
	documents correctionDocumentStore,
	files correctionFileStore,
	cleanup correctionCleanup,
	notifier correctionNotifier,
	audit correctionAuditRecorder,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *CorrectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrectionService{
		ledger:    ledger,
		apps:      apps,
		documents: documents,
		files:     files,
		cleanup:   cleanup,
		notifier:  notifier,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// FlagFields flags one or more fields for correction. Re-flagging an
// already-flagged field rewrites the existing ledger row in place.
func (s *CorrectionService) FlagFields(ctx context.Context, applicationID string, req dto.FlagFieldsRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaffRole() {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff may flag fields")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}

	items := make([]models.FlagItem, 0, len(req.Items))
	for _, item := range req.Items {
		key := strings.TrimSpace(item.FieldKey)
		if key == "" {
			return appErrors.Clone(appErrors.ErrValidation, "field_key must not be blank")
		}
		items = append(items, models.FlagItem{FieldKey: key, Message: item.Message})
	}

	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	note := req.Note
	if note != nil && strings.TrimSpace(*note) == "" {
		note = nil
	}

	if err := s.ledger.FlagFields(ctx, app.ID, items, actor.UserID, note); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag fields")
	}
	s.invalidateListings(ctx)

	s.notifier.NotifyCorrectionRequested(ctx, app, items, note)

	newValues, _ := json.Marshal(map[string]interface{}{
		"fields": flagKeys(items),
		"note":   note,
	})
	s.audit.Record(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionCorrectionFlag,
		TableName: "applications",
		RecordID:  &app.ID,
		NewValues: newValues,
		IPAddress: "system",
		UserAgent: "correction-service",
	})
	return nil
}

// List returns the ledger for one application, ordered oldest first. Staff
// see any application; applicants only their own.
func (s *CorrectionService) List(ctx context.Context, applicationID string, includeResolved bool, actor *models.JWTClaims) ([]models.CorrectionEntry, error) {
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
	entries, err := s.ledger.ListByApplication(ctx, app.ID, includeResolved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list correction entries")
	}
	return entries, nil
}

// ResolveField toggles the resolution state of one flagged field. Resolving
// is set-based across matching ledger rows; when the last unresolved entry
// resolves the application projection clears entirely, otherwise the
// projection's field list stays as-is. Un-resolving always forces the
// application flag back on.
func (s *CorrectionService) ResolveField(ctx context.Context, applicationID string, req dto.ResolveFieldRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaffRole() {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff may resolve fields")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolve payload")
	}
	fieldKey := strings.TrimSpace(req.FieldKey)
	if fieldKey == "" {
		return appErrors.Clone(appErrors.ErrValidation, "field_key must not be blank")
	}

	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	var oldResolvedAt *time.Time
	prior, err := s.ledger.LatestByField(ctx, app.ID, fieldKey)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction entry")
	}
	if prior != nil {
		oldResolvedAt = prior.ResolvedAt
	}

	resolved := *req.Resolved
	if _, err := s.ledger.Resolve(ctx, app.ID, fieldKey, resolved); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resolution state")
	}
	s.invalidateListings(ctx)

	var newResolvedAt *time.Time
	if resolved {
		now := time.Now().UTC()
		newResolvedAt = &now
	}
	oldValues, _ := json.Marshal(map[string]interface{}{"field_key": fieldKey, "resolved_at": oldResolvedAt})
	newValues, _ := json.Marshal(map[string]interface{}{"field_key": fieldKey, "resolved_at": newResolvedAt})
	s.audit.Record(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionCorrectionResolve,
		TableName: "correction_entries",
		RecordID:  &app.ID,
		OldValues: oldValues,
		NewValues: newValues,
		IPAddress: "system",
		UserAgent: "correction-service",
	})
	return nil
}

// SubmitCorrection applies an applicant's resubmission. The submission must
// be restricted to the currently flagged fields; any disallowed key fails
// the whole call before any state changes. On success the application flag
// clears unconditionally while the ledger entries stay unresolved pending
// staff verification.
func (s *CorrectionService) SubmitCorrection(ctx context.Context, applicationID string, req dto.SubmitCorrectionRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleApplicant {
		return appErrors.Clone(appErrors.ErrForbidden, "only applicants may resubmit corrections")
	}

	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if !app.OwnedBy(actor.UserID) {
		return appErrors.Clone(appErrors.ErrForbidden, "application does not belong to you")
	}
	if !app.NeedsCorrection {
		return appErrors.Clone(appErrors.ErrConflict, "application has no active correction request")
	}

	// Multipart part names arrive in form naming; translate everything
	// through the kind's schema before validating. Keys already in field-key
	// form pass through unchanged.
	schema, _ := models.SchemaFor(app.Kind)
	if len(req.Payload) > 0 {
		normalized := make(map[string]interface{}, len(req.Payload))
		for key, value := range req.Payload {
			normalized[schema.FieldKeyForForm(key)] = value
		}
		req.Payload = normalized
	}
	for i := range req.Documents {
		req.Documents[i].FieldKey = schema.FieldKeyForForm(req.Documents[i].FieldKey)
	}

	submittedKeys := collectSubmittedKeys(req)
	if len(submittedKeys) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "resubmission must include at least one field")
	}
	for _, key := range submittedKeys {
		if !app.HasCorrectionField(key) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(
				"field %q is not flagged for correction; allowed fields: [%s]",
				key, strings.Join(app.CorrectionFields, ", ")))
		}
	}

	payloadFields := make(models.JSONMap, len(req.Payload))
	for key, value := range req.Payload {
		if models.IsDocumentField(key) {
			continue
		}
		payloadFields[key] = value
	}
	if err := s.apps.ApplyCorrection(ctx, app.ID, payloadFields); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply correction")
	}
	s.invalidateListings(ctx)

	// Document replacements are individually fault-tolerant: one bad upload
	// must not discard the applicant's remaining changes.
	for _, doc := range req.Documents {
		if err := s.replaceDocument(ctx, app, actor.UserID, doc); err != nil {
			s.logger.Warn("failed to replace document during resubmission",
				zap.String("application_id", app.ID),
				zap.String("field_key", doc.FieldKey),
				zap.Error(err))
		}
	}

	newValues, _ := json.Marshal(map[string]interface{}{"fields": submittedKeys})
	s.audit.Record(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionCorrectionSubmit,
		TableName: "applications",
		RecordID:  &app.ID,
		NewValues: newValues,
		IPAddress: "system",
		UserAgent: "correction-service",
	})

	s.notifier.NotifyCorrectionSubmitted(ctx, app, submittedKeys)

	entries, err := s.ledger.LatestPerField(ctx, app.ID, submittedKeys)
	if err != nil {
		s.logger.Warn("failed to load ledger entries for staff fan-out",
			zap.String("application_id", app.ID), zap.Error(err))
		return nil
	}
	s.notifier.NotifyStaffResubmission(ctx, app, entries)
	return nil
}

// invalidateListings drops cached application listings after a projection
// write; flag and resolution changes move applications across the
// needs_correction filter.
func (s *CorrectionService) invalidateListings(ctx context.Context) {
	if err := s.cache.InvalidatePattern(ctx, listingCachePattern); err != nil {
		s.logger.Warn("failed to invalidate cached listings", zap.Error(err))
	}
}

func (s *CorrectionService) replaceDocument(ctx context.Context, app *models.Application, ownerID string, sub dto.DocumentSubmission) error {
	if !models.IsDocumentField(sub.FieldKey) {
		return fmt.Errorf("field %q is not a document field", sub.FieldKey)
	}
	docType := models.DocumentType(sub.FieldKey)

	var oldID string
	meta := sub.Meta
	existing, err := s.documents.FindLatestByType(ctx, app.ID, docType)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load existing document: %w", err)
	}
	if existing != nil {
		oldID = existing.ID
		meta = existing.Meta.Merge(sub.Meta)
	}

	stored, err := s.files.Store(sub.Content, sub.FileName, sub.MimeType, ownerID, docType)
	if err != nil {
		return fmt.Errorf("store document file: %w", err)
	}

	doc := &models.Document{
		ApplicationID: app.ID,
		DocType:       docType,
		FileName:      stored.FileName,
		FilePath:      stored.FilePath,
		FileSize:      stored.FileSize,
		MimeType:      stored.MimeType,
		Meta:          meta,
	}
	if err := s.documents.Replace(ctx, oldID, doc); err != nil {
		if cleanupErr := s.files.Delete(stored.FilePath); cleanupErr != nil {
			s.logger.Warn("failed to clean up orphaned upload", zap.String("path", stored.FilePath), zap.Error(cleanupErr))
		}
		return fmt.Errorf("replace document row: %w", err)
	}

	// The replaced row no longer references the old file. Removal happens off
	// the request path when a queue is wired.
	if existing != nil && existing.FilePath != "" {
		task := jobs.CleanupTask{RelPath: existing.FilePath, ApplicationID: app.ID, DocType: docType}
		if s.cleanup != nil {
			if err := s.cleanup.Enqueue(task); err != nil {
				s.logger.Warn("failed to enqueue file cleanup", zap.String("path", existing.FilePath), zap.Error(err))
			}
		} else if err := s.files.Delete(existing.FilePath); err != nil {
			s.logger.Warn("failed to delete superseded file", zap.String("path", existing.FilePath), zap.Error(err))
		}
	}
	return nil
}

func collectSubmittedKeys(req dto.SubmitCorrectionRequest) []string {
	seen := make(map[string]struct{}, len(req.Payload)+len(req.Documents))
	keys := make([]string, 0, len(req.Payload)+len(req.Documents))
	for key := range req.Payload {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, doc := range req.Documents {
		if _, ok := seen[doc.FieldKey]; ok {
			continue
		}
		seen[doc.FieldKey] = struct{}{}
		keys = append(keys, doc.FieldKey)
	}
	return keys
}

func flagKeys(items []models.FlagItem) []string {
	seen := make(map[string]struct{}, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.FieldKey]; ok {
			continue
		}
		seen[item.FieldKey] = struct{}{}
		keys = append(keys, item.FieldKey)
	}
	return keys
}
