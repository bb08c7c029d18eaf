package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/models"
)

type notificationStoreStub struct {
	created []models.Notification
	unread  int
	markErr error
}

func (s *notificationStoreStub) Create(ctx context.Context, n *models.Notification) error {
	s.created = append(s.created, *n)
	return nil
}

func (s *notificationStoreStub) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	var result []models.Notification
	for _, n := range s.created {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, userID string) error {
	return s.markErr
}

func (s *notificationStoreStub) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.unread, nil
}

func notificationApp(applicantID string) *models.Application {
	return &models.Application{
		ID:               "app-1",
		Kind:             models.KindDirectHire,
		ControlNumber:    "DH-2026-ABCD1234",
		ApplicantUserID:  &applicantID,
		NeedsCorrection:  true,
		CorrectionFields: pq.StringArray{"first_name"},
	}
}

func TestNotifyCorrectionRequestedItemizesFields(t *testing.T) {
	store := &notificationStoreStub{}
	svc := NewNotificationService(store, nil, nil)

	note := "bring the original documents"
	svc.NotifyCorrectionRequested(context.Background(), notificationApp("user-1"), []models.FlagItem{
		{FieldKey: "first_name", Message: "does not match the passport"},
		{FieldKey: "document_passport", Message: "scan is unreadable"},
	}, &note)

	require.Len(t, store.created, 1)
	body := store.created[0].Body
	assert.Contains(t, body, "Reference: DH-2026-ABCD1234")
	assert.Contains(t, body, "• First Name: does not match the passport")
	assert.Contains(t, body, "• Passport: scan is unreadable")
	assert.Contains(t, body, "bring the original documents")
	assert.Equal(t, "user-1", store.created[0].UserID)
}

func TestNotifyCorrectionRequestedSkipsUnownedApplication(t *testing.T) {
	store := &notificationStoreStub{}
	svc := NewNotificationService(store, nil, nil)

	app := notificationApp("user-1")
	app.ApplicantUserID = nil
	svc.NotifyCorrectionRequested(context.Background(), app, []models.FlagItem{{FieldKey: "first_name"}}, nil)

	assert.Empty(t, store.created)
}

func TestNotifyStaffResubmissionGroupsByStaff(t *testing.T) {
	store := &notificationStoreStub{}
	svc := NewNotificationService(store, nil, nil)

	alice := "staff-alice"
	bob := "staff-bob"
	entries := []models.CorrectionEntry{
		{FieldKey: "first_name", CreatedBy: &alice},
		{FieldKey: "email", CreatedBy: &alice},
		{FieldKey: "document_passport", CreatedBy: &bob},
		{FieldKey: "jobsite", CreatedBy: nil},
	}
	svc.NotifyStaffResubmission(context.Background(), notificationApp("user-1"), entries)

	// One notification per attributable staff member; the orphaned entry is
	// skipped rather than dispatched to nobody.
	require.Len(t, store.created, 2)
	assert.Equal(t, alice, store.created[0].UserID)
	assert.Contains(t, store.created[0].Body, "First Name and Email Address")
	assert.Equal(t, bob, store.created[1].UserID)
	assert.Contains(t, store.created[1].Body, "Passport")
}

func TestMarkReadMapsRepoFailureToNotFound(t *testing.T) {
	store := &notificationStoreStub{markErr: errors.New("no rows affected")}
	svc := NewNotificationService(store, nil, nil)

	err := svc.MarkRead(context.Background(), applicantClaims("user-1"), "n1")
	assert.Error(t, err)
}

func TestUnreadCountFallsBackToStoreWithoutCache(t *testing.T) {
	store := &notificationStoreStub{unread: 7}
	svc := NewNotificationService(store, nil, nil)

	count, err := svc.UnreadCount(context.Background(), applicantClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestHumanJoin(t *testing.T) {
	assert.Equal(t, "", humanJoin(nil))
	assert.Equal(t, "Passport", humanJoin([]string{"Passport"}))
	assert.Equal(t, "A and B", humanJoin([]string{"A", "B"}))
	assert.Equal(t, "A, B and C", humanJoin([]string{"A", "B", "C"}))
}
