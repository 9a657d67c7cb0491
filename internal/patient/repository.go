package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/db"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/pagination"
)

const patientColumns = `id, nome, email, telefone, cpf, logradouro, numero, complemento,
	bairro, cidade, uf, cep, ativo, created_at, updated_at`

// sortColumns maps the sortable JSON field names to table columns
var sortColumns = map[string]string{
	"id":       "id",
	"nome":     "nome",
	"email":    "email",
	"telefone": "telefone",
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM pacientes WHERE id = $1`
	return findOne(ctx, r.db, query, id)
}

func (r *Repository) FindActivePage(ctx context.Context, params pagination.Params) ([]Patient, int, error) {
	column, ok := sortColumns[params.Sort.Field]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort field %q", params.Sort.Field)
	}
	direction := "ASC"
	if params.Sort.Direction == pagination.Desc {
		direction = "DESC"
	}

	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pacientes WHERE ativo = TRUE`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count active patients: %w", err)
	}
	if total == 0 {
		return []Patient{}, 0, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM pacientes
		WHERE ativo = TRUE
		ORDER BY %s %s, id ASC
		LIMIT $1 OFFSET $2
	`, patientColumns, pq.QuoteIdentifier(column), direction)

	rows, err := r.db.QueryContext(ctx, query, params.Size, params.CalculateOffset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list active patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate patients: %w", err)
	}

	return patients, total, nil
}

func (r *Repository) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

// txRepository runs the write operations on a single transaction
type txRepository struct {
	tx *sql.Tx
}

func (r *txRepository) Create(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO pacientes
		(nome, email, telefone, cpf, logradouro, numero, complemento, bairro, cidade, uf, cep, ativo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := r.tx.QueryRowContext(ctx, query,
		p.Name,
		p.Email,
		p.Phone,
		p.Document,
		p.Address.Street,
		p.Address.Number,
		nullString(p.Address.Complement),
		p.Address.District,
		p.Address.City,
		p.Address.State,
		p.Address.Zip,
		p.Active,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert patient: %w", err)
	}
	return nil
}

func (r *txRepository) FindByIDForUpdate(ctx context.Context, id int64) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM pacientes WHERE id = $1 FOR UPDATE`
	return findOne(ctx, r.tx, query, id)
}

func (r *txRepository) Save(ctx context.Context, p *Patient) error {
	now := time.Now().UTC()
	query := `
		UPDATE pacientes
		SET nome = $2, telefone = $3, logradouro = $4, numero = $5, complemento = $6,
		    bairro = $7, cidade = $8, uf = $9, cep = $10, ativo = $11, updated_at = $12
		WHERE id = $1
	`

	result, err := r.tx.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Phone,
		p.Address.Street,
		p.Address.Number,
		nullString(p.Address.Complement),
		p.Address.District,
		p.Address.City,
		p.Address.State,
		p.Address.Zip,
		p.Active,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPatientNotFound
	}

	p.UpdatedAt = &now
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func findOne(ctx context.Context, q db.Querier, query string, id int64) (*Patient, error) {
	p, err := scanPatient(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var complement sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Document,
		&p.Address.Street,
		&p.Address.Number,
		&complement,
		&p.Address.District,
		&p.Address.City,
		&p.Address.State,
		&p.Address.Zip,
		&p.Active,
		&p.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}

	if complement.Valid {
		p.Address.Complement = complement.String
	}
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
