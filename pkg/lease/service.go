package lease

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openintent-ai/openintent/internal/telemetry"
)

// Service is the thin application layer over Store, recording metrics
// alongside the durable operations.
type Service struct {
	store *Store
}

// NewService constructs a Service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Acquire acquires a lease, recording the outcome in LeaseAcquisitionsTotal.
func (s *Service) Acquire(ctx context.Context, intentID uuid.UUID, scope, holder string, ttl time.Duration) (Lease, error) {
	l, err := s.store.Acquire(ctx, intentID, scope, holder, ttl)
	switch {
	case err == nil:
		telemetry.LeaseAcquisitionsTotal.WithLabelValues("granted").Inc()
	default:
		if _, ok := err.(*ErrConflict); ok {
			telemetry.LeaseAcquisitionsTotal.WithLabelValues("conflict").Inc()
		} else {
			telemetry.LeaseAcquisitionsTotal.WithLabelValues("error").Inc()
		}
	}
	return l, err
}

// Release releases a lease.
func (s *Service) Release(ctx context.Context, leaseID uuid.UUID, holder string) error {
	return s.store.Release(ctx, leaseID, holder)
}

// Renew renews a lease.
func (s *Service) Renew(ctx context.Context, leaseID uuid.UUID, holder string, ttl time.Duration) (Lease, error) {
	return s.store.Renew(ctx, leaseID, holder, ttl)
}

// List lists leases for an intent.
func (s *Service) List(ctx context.Context, intentID uuid.UUID) ([]Lease, error) {
	return s.store.List(ctx, intentID)
}
