package governance

import (
	"context"

	"github.com/google/uuid"
)

// Service layers Slack notification over the Store's durable operations.
type Service struct {
	store    *Store
	notifier *Notifier
}

// NewService constructs a Service.
func NewService(store *Store, notifier *Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

func (s *Service) RecordCost(ctx context.Context, intentID uuid.UUID, agentID, costType string, amount float64, currency, description string) (CostEntry, error) {
	return s.store.RecordCost(ctx, intentID, agentID, costType, amount, currency, description)
}

func (s *Service) CostSummary(ctx context.Context, intentID uuid.UUID) (CostSummary, error) {
	return s.store.CostSummary(ctx, intentID)
}

func (s *Service) CreateAttachment(ctx context.Context, intentID uuid.UUID, filename, contentType string, data []byte, blobHandle, createdBy string, metadata map[string]any) (Attachment, error) {
	return s.store.CreateAttachment(ctx, intentID, filename, contentType, data, blobHandle, createdBy, metadata)
}

func (s *Service) RequestArbitration(ctx context.Context, intentID uuid.UUID, requestedBy, reason string, options []string) (ArbitrationRequest, error) {
	req, err := s.store.RequestArbitration(ctx, intentID, requestedBy, reason, options)
	if err != nil {
		return ArbitrationRequest{}, err
	}
	s.notifier.NotifyArbitrationRequested(ctx, req)
	return req, nil
}

func (s *Service) RecordDecision(ctx context.Context, intentID uuid.UUID, decidedBy, decision, rationale string) (Decision, error) {
	d, err := s.store.RecordDecision(ctx, intentID, decidedBy, decision, rationale)
	if err != nil {
		return Decision{}, err
	}
	s.notifier.NotifyDecisionRecorded(ctx, d)
	return d, nil
}
