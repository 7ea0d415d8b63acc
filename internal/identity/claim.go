package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alizand/leadwire/internal/metrics"
	"github.com/alizand/leadwire/internal/model"
	"go.uber.org/zap"
)

var (
	// ErrNoneAvailable means the pool has no verified, active, unassigned
	// identity left.
	ErrNoneAvailable = errors.New("identity: none available")
	// ErrContention is retriable: every claim attempt lost the assignment
	// race.
	ErrContention = errors.New("identity: claim contention")
)

const claimAttempts = 3

// Store is the persistence the claim protocol needs. Assign must be a
// compare-and-set: it takes effect only while the identity is still
// unassigned, and reports whether it won.
type Store interface {
	Assigned(ctx context.Context, tenantID int64) (*model.SenderIdentity, error)
	OldestAvailable(ctx context.Context) (*model.SenderIdentity, error)
	Assign(ctx context.Context, identityID, tenantID int64, at time.Time) (bool, error)
	Release(ctx context.Context, identityID int64) error
}

type Service struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, now: time.Now, log: log}
}

// Claim returns the tenant's active identity, claiming the oldest available
// one from the pool when the tenant holds none. Repeated calls are
// idempotent. The CAS retry loop guarantees no identity is ever held by two
// tenants at once.
func (s *Service) Claim(ctx context.Context, tenantID int64) (*model.SenderIdentity, error) {
	held, err := s.store.Assigned(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("assigned lookup: %w", err)
	}
	if held != nil {
		metrics.ClaimsTotal.WithLabelValues("held").Inc()
		return held, nil
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		cand, err := s.store.OldestAvailable(ctx)
		if err != nil {
			return nil, fmt.Errorf("available lookup: %w", err)
		}
		if cand == nil {
			metrics.ClaimsTotal.WithLabelValues("none").Inc()
			return nil, ErrNoneAvailable
		}

		now := s.now()
		won, err := s.store.Assign(ctx, cand.ID, tenantID, now)
		if err != nil {
			return nil, fmt.Errorf("assign: %w", err)
		}
		if won {
			cand.AssignedTenant = &tenantID
			cand.AssignedAt = &now
			metrics.ClaimsTotal.WithLabelValues("claimed").Inc()
			s.log.Info("sender identity claimed",
				zap.Int64("tenant_id", tenantID),
				zap.Int64("identity_id", cand.ID),
				zap.String("address", cand.Address))
			return cand, nil
		}
		// lost the race; pick again
	}

	metrics.ClaimsTotal.WithLabelValues("contention").Inc()
	return nil, ErrContention
}

// Release unassigns the tenant's identity, if any. Releasing while holding
// nothing is a no-op.
func (s *Service) Release(ctx context.Context, tenantID int64) error {
	held, err := s.store.Assigned(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("assigned lookup: %w", err)
	}
	if held == nil {
		return nil
	}
	return s.store.Release(ctx, held.ID)
}
