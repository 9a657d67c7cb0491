package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/pagination"
)

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	Register(ctx context.Context, req RegistrationRequest) (*DetailResponse, error)
	List(ctx context.Context, params pagination.Params) (*PageResponse, error)
	Detail(ctx context.Context, id int64) (*DetailResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*DetailResponse, error)
	Deactivate(ctx context.Context, id int64) (*DetailResponse, error)
}

// OperationRecorder counts completed patient operations
type OperationRecorder interface {
	RecordPatientOperation(ctx context.Context, operation string)
}

var _ ServiceInterface = (*Service)(nil)
