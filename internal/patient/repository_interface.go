package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/pagination"
)

// Store defines the contract for patient data access
type Store interface {
	FindByID(ctx context.Context, id int64) (*Patient, error)
	FindActivePage(ctx context.Context, params pagination.Params) ([]Patient, int, error)
	// WithinTx runs fn in one transaction, committing when fn returns nil
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the write side of the store, bound to an open transaction
type TxStore interface {
	Create(ctx context.Context, p *Patient) error
	FindByIDForUpdate(ctx context.Context, id int64) (*Patient, error)
	Save(ctx context.Context, p *Patient) error
}

var (
	_ Store   = (*Repository)(nil)
	_ TxStore = (*txRepository)(nil)
)
