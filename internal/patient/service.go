package patient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/pagination"
)

type Service struct {
	store     Store
	publisher messaging.PublisherInterface
	metrics   OperationRecorder
	logger    *zap.Logger
}

// NewService creates the patient service. publisher and metrics may be nil.
func NewService(store Store, publisher messaging.PublisherInterface, metrics OperationRecorder, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger)
	return &Service{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("patient"),
	}
}

func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*DetailResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	patient := NewPatient(req)
	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		return tx.Create(ctx, &patient)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register patient: %w", err)
	}

	s.logger.Info("patient registered", zap.Int64("patient_id", patient.ID))
	s.record(ctx, "register")
	s.publish(ctx, messaging.EventPatientCreated, patient, nil)

	resp := NewDetailResponse(patient)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, params pagination.Params) (*PageResponse, error) {
	params.Validate()
	if _, ok := sortColumns[params.Sort.Field]; !ok {
		return nil, NewValidationError("sort", fmt.Sprintf("unsupported sort field %q", params.Sort.Field))
	}
	if !params.Sort.ValidDirection() {
		return nil, NewValidationError("sort", fmt.Sprintf("unsupported sort direction %q", params.Sort.Direction))
	}

	patients, total, err := s.store.FindActivePage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	content := make([]ListItemResponse, 0, len(patients))
	for _, p := range patients {
		content = append(content, NewListItemResponse(p))
	}

	return &PageResponse{
		Content:    content,
		Pagination: params.CalculateMeta(total),
	}, nil
}

func (s *Service) Detail(ctx context.Context, id int64) (*DetailResponse, error) {
	patient, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient %d: %w", id, err)
	}

	resp := NewDetailResponse(*patient)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req UpdateRequest) (*DetailResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	id := *req.ID

	var merged Patient
	var changed []string
	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		existing, err := tx.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		merged = Merge(*existing, req)
		changed = ChangedFields(*existing, merged)
		if len(changed) == 0 {
			return nil
		}
		return tx.Save(ctx, &merged)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update patient %d: %w", id, err)
	}

	if len(changed) > 0 {
		s.logger.Info("patient updated", zap.Int64("patient_id", id), zap.Strings("changed_fields", changed))
		s.record(ctx, "update")
		s.publish(ctx, messaging.EventPatientUpdated, merged, changed)
	}

	resp := NewDetailResponse(merged)
	return &resp, nil
}

func (s *Service) Deactivate(ctx context.Context, id int64) (*DetailResponse, error) {
	var patient Patient
	var wasActive bool
	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		existing, err := tx.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		patient = *existing
		wasActive = patient.Active
		if !wasActive {
			return nil
		}
		patient.Active = false
		return tx.Save(ctx, &patient)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate patient %d: %w", id, err)
	}

	if wasActive {
		s.logger.Info("patient deactivated", zap.Int64("patient_id", id))
		s.record(ctx, "deactivate")
		s.publish(ctx, messaging.EventPatientDeactivated, patient, []string{"ativo"})
	}

	resp := NewDetailResponse(patient)
	return &resp, nil
}

func (s *Service) record(ctx context.Context, operation string) {
	if s.metrics != nil {
		s.metrics.RecordPatientOperation(ctx, operation)
	}
}

// publish sends a lifecycle event after commit. Failures are logged only; the
// change is already durable.
func (s *Service) publish(ctx context.Context, routingKey string, p Patient, changed []string) {
	if s.publisher == nil {
		return
	}

	event := messaging.NewPatientEvent(routingKey, messaging.PatientEventData{
		PatientID:     p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		Active:        p.Active,
		ChangedFields: changed,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	})
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("failed to publish patient event",
			zap.String("routing_key", routingKey),
			zap.Int64("patient_id", p.ID),
			zap.Error(err),
		)
	}
}
