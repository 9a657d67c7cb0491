package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/pagination"
)

// memStore is an in-memory Store. WithinTx works on a copy of the records
// and only publishes it when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	patients map[int64]Patient
	nextID   int64

	saveErr   error
	createErr error
	commits   int
}

func newMemStore(seed ...Patient) *memStore {
	s := &memStore{patients: make(map[int64]Patient), nextID: 1}
	for _, p := range seed {
		if p.ID == 0 {
			p.ID = s.nextID
		}
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
		s.patients[p.ID] = p
	}
	return s
}

func (s *memStore) FindByID(ctx context.Context, id int64) (*Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (s *memStore) FindActivePage(ctx context.Context, params pagination.Params) ([]Patient, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := sortColumns[params.Sort.Field]; !ok {
		return nil, 0, fmt.Errorf("unsupported sort field %q", params.Sort.Field)
	}

	active := make([]Patient, 0, len(s.patients))
	for _, p := range s.patients {
		if p.Active {
			active = append(active, p)
		}
	}

	key := func(p Patient) string {
		switch params.Sort.Field {
		case "nome":
			return p.Name
		case "email":
			return p.Email
		case "telefone":
			return p.Phone
		}
		return ""
	}
	sort.Slice(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if params.Sort.Field == "id" {
			if params.Sort.Direction == pagination.Desc {
				return a.ID > b.ID
			}
			return a.ID < b.ID
		}
		if c := strings.Compare(key(a), key(b)); c != 0 {
			if params.Sort.Direction == pagination.Desc {
				return c > 0
			}
			return c < 0
		}
		return a.ID < b.ID
	})

	total := len(active)
	start := params.CalculateOffset()
	if start >= total {
		return []Patient{}, total, nil
	}
	end := start + params.Size
	if end > total {
		end = total
	}
	return active[start:end], total, nil
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, patients: make(map[int64]Patient, len(s.patients)), nextID: s.nextID}
	for id, p := range s.patients {
		tx.patients[id] = p
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.patients = tx.patients
	s.nextID = tx.nextID
	s.commits++
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patients)
}

func (s *memStore) get(id int64) (Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	return p, ok
}

type memTx struct {
	store    *memStore
	patients map[int64]Patient
	nextID   int64
}

func (t *memTx) Create(ctx context.Context, p *Patient) error {
	if t.store.createErr != nil {
		return t.store.createErr
	}
	p.ID = t.nextID
	p.CreatedAt = time.Now().UTC()
	t.nextID++
	t.patients[p.ID] = *p
	return nil
}

func (t *memTx) FindByIDForUpdate(ctx context.Context, id int64) (*Patient, error) {
	p, ok := t.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (t *memTx) Save(ctx context.Context, p *Patient) error {
	// Apply before failing so a rollback is observable
	t.patients[p.ID] = *p
	if t.store.saveErr != nil {
		return t.store.saveErr
	}
	now := time.Now().UTC()
	p.UpdatedAt = &now
	t.patients[p.ID] = *p
	return nil
}

var errStoreDown = errors.New("connection refused")

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, eventData)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	operations []string
}

func (m *recordingMetrics) RecordPatientOperation(ctx context.Context, operation string) {
	m.operations = append(m.operations, operation)
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }

func validRegistration() RegistrationRequest {
	return RegistrationRequest{
		Name:     "Maria Souza",
		Email:    "maria@example.com",
		Phone:    "111",
		Document: "12345678900",
		Address: AddressRequest{
			Street:   "Rua A",
			Number:   "10",
			District: "Centro",
			City:     "Recife",
			State:    "PE",
			Zip:      "50000-000",
		},
	}
}

func samplePatient(id int64, name string, active bool) Patient {
	return Patient{
		ID:       id,
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Phone:    "111",
		Document: "12345678900",
		Address: Address{
			Street:   "Rua A",
			Number:   "10",
			District: "Centro",
			City:     "Recife",
			State:    "PE",
			Zip:      "50000-000",
		},
		Active:    active,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
