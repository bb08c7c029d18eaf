package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// NotificationService formats and dispatches in-app notifications for the
// correction workflow, and serves each user's inbox.
type NotificationService struct {
	repo   notificationStore
	cache  *CacheService
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationStore, cache *CacheService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, cache: cache, logger: logger}
}

// NotifyCorrectionRequested messages the applicant after staff flag fields.
// Every flagged item appears exactly once as a "Label: message" line.
// Staff-created applications without an owning applicant are skipped.
func (s *NotificationService) NotifyCorrectionRequested(ctx context.Context, app *models.Application, items []models.FlagItem, note *string) {
	if app.ApplicantUserID == nil {
		s.logger.Debug("skipping applicant notification for unowned application",
			zap.String("application_id", app.ID))
		return
	}
	schema, _ := models.SchemaFor(app.Kind)

	var b strings.Builder
	b.WriteString("Your application needs correction before it can proceed.\n")
	if app.ControlNumber != "" {
		fmt.Fprintf(&b, "Reference: %s\n", app.ControlNumber)
	}
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&b, "• %s: %s\n", schema.LabelFor(item.FieldKey), item.Message)
	}
	if note != nil && *note != "" {
		fmt.Fprintf(&b, "\nNote from the evaluator: %s\n", *note)
	}
	b.WriteString("\nPlease resubmit the listed items through the portal.")

	s.dispatch(ctx, &models.Notification{
		UserID:          *app.ApplicantUserID,
		Kind:            models.NotificationCorrectionRequested,
		Title:           "Correction requested",
		Body:            b.String(),
		ApplicationKind: app.Kind,
		ApplicationID:   app.ID,
	})
}

// NotifyCorrectionSubmitted confirms the applicant's resubmission.
func (s *NotificationService) NotifyCorrectionSubmitted(ctx context.Context, app *models.Application, fieldKeys []string) {
	if app.ApplicantUserID == nil {
		return
	}
	schema, _ := models.SchemaFor(app.Kind)
	labels := make([]string, 0, len(fieldKeys))
	for _, key := range fieldKeys {
		labels = append(labels, schema.LabelFor(key))
	}

	var b strings.Builder
	b.WriteString("We received your corrected submission.\n")
	if app.ControlNumber != "" {
		fmt.Fprintf(&b, "Reference: %s\n", app.ControlNumber)
	}
	fmt.Fprintf(&b, "\nUpdated: %s\n", humanJoin(labels))
	b.WriteString("\nOur staff will verify the changes and get back to you.")

	s.dispatch(ctx, &models.Notification{
		UserID:          *app.ApplicantUserID,
		Kind:            models.NotificationCorrectionSubmitted,
		Title:           "Resubmission received",
		Body:            b.String(),
		ApplicationKind: app.Kind,
		ApplicationID:   app.ID,
	})
}

// NotifyStaffResubmission fans out one notification per staff member who
// most recently flagged any of the resubmitted fields, listing all of that
// member's fields. Entries without an attributable staff id are skipped.
func (s *NotificationService) NotifyStaffResubmission(ctx context.Context, app *models.Application, entries []models.CorrectionEntry) {
	schema, _ := models.SchemaFor(app.Kind)

	fieldsByStaff := make(map[string][]string)
	order := make([]string, 0)
	for _, entry := range entries {
		if entry.CreatedBy == nil || *entry.CreatedBy == "" {
			s.logger.Warn("correction entry has no attributable staff, skipping fan-out",
				zap.String("application_id", app.ID),
				zap.String("field_key", entry.FieldKey))
			continue
		}
		staffID := *entry.CreatedBy
		if _, ok := fieldsByStaff[staffID]; !ok {
			order = append(order, staffID)
		}
		fieldsByStaff[staffID] = append(fieldsByStaff[staffID], schema.LabelFor(entry.FieldKey))
	}

	for _, staffID := range order {
		labels := fieldsByStaff[staffID]
		body := fmt.Sprintf("The applicant resubmitted %s on application %s. Please review and resolve the correction entries.",
			humanJoin(labels), app.ControlNumber)
		s.dispatch(ctx, &models.Notification{
			UserID:          staffID,
			Kind:            models.NotificationResubmissionReview,
			Title:           "Resubmission ready for review",
			Body:            body,
			ApplicationKind: app.Kind,
			ApplicationID:   app.ID,
		})
	}
}

// ListForUser returns the caller's inbox, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, actor *models.JWTClaims, limit int) ([]models.Notification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.repo.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.JWTClaims, id string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	s.invalidateUnread(ctx, actor.UserID)
	return nil
}

// UnreadCount returns the caller's unread total, served from cache when warm.
func (s *NotificationService) UnreadCount(ctx context.Context, actor *models.JWTClaims) (int, error) {
	if actor == nil {
		return 0, appErrors.ErrUnauthorized
	}
	key := unreadCacheKey(actor.UserID)
	var cached int
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	s.cache.Set(ctx, key, count)
	return count, nil
}

func (s *NotificationService) dispatch(ctx context.Context, n *models.Notification) {
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("failed to dispatch notification",
			zap.String("user_id", n.UserID),
			zap.String("kind", n.Kind),
			zap.Error(err))
		return
	}
	s.invalidateUnread(ctx, n.UserID)
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, unreadCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate unread cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func unreadCacheKey(userID string) string {
	return "notifications:unread:" + userID
}

// humanJoin joins labels grammatically: one item as-is, two or more as
// "a, b and c".
func humanJoin(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
