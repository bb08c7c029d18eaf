package service

import (
	"context"

	"go.uber.org/zap"
)

type reconcileApplicationStore interface {
	ListDriftedFlags(ctx context.Context) ([]string, error)
	ClearCorrectionState(ctx context.Context, id string) error
}

// ReconcileService repairs projection drift between the correction ledger
// and the denormalized needs_correction flag. It only acts on one drift
// direction: a set flag with no unresolved ledger entries. An application
// with unresolved entries and a cleared flag is awaiting staff verification
// after a resubmission and must not be touched.
type ReconcileService struct {
	apps   reconcileApplicationStore
	logger *zap.Logger
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(apps reconcileApplicationStore, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{apps: apps, logger: logger}
}

// Run performs one reconciliation sweep and returns the number of repaired
// applications.
func (s *ReconcileService) Run(ctx context.Context) (int, error) {
	ids, err := s.apps.ListDriftedFlags(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, id := range ids {
		if err := s.apps.ClearCorrectionState(ctx, id); err != nil {
			s.logger.Warn("failed to clear drifted correction flag",
				zap.String("application_id", id), zap.Error(err))
			continue
		}
		repaired++
	}
	if repaired > 0 {
		s.logger.Info("reconciled correction flags", zap.Int("repaired", repaired))
	}
	return repaired, nil
}
