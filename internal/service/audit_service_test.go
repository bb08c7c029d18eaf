package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
)

type failingAuditStore struct {
	auditStoreStub
}

func (s *failingAuditStore) Create(ctx context.Context, log *models.AuditLog) error {
	return errors.New("disk full")
}

func TestAuditRecordNeverPropagatesFailure(t *testing.T) {
	svc := NewAuditService(&failingAuditStore{}, nil)

	// Must not panic or surface the error in any way.
	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionLogin})
}

func TestAuditRecordTolerateNilReceiverAndLog(t *testing.T) {
	var svc *AuditService
	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionLogin})

	NewAuditService(&auditStoreStub{}, nil).Record(context.Background(), nil)
}

func TestAuditListRequiresAdmin(t *testing.T) {
	svc := NewAuditService(&auditStoreStub{}, nil)

	_, err := svc.ListForRecord(context.Background(), "applications", "app-1", staffClaims("staff-1"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = svc.ListForRecord(context.Background(), "applications", "app-1", admin)
	assert.NoError(t, err)
}

func TestAuditPurgeRestrictedToSuperadmin(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, nil)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.PurgeRecord(context.Background(), "applications", "app-1", admin)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	super := &models.JWTClaims{UserID: "root-1", Role: models.RoleSuperAdmin}
	_, err = svc.PurgeRecord(context.Background(), "applications", "app-1", super)
	require.NoError(t, err)

	// The purge itself leaves an audit trail.
	require.NotEmpty(t, store.logs)
	assert.Equal(t, models.AuditActionAuditPurge, store.logs[len(store.logs)-1].Action)
}
