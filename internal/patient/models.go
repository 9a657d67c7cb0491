package patient

import (
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/pagination"
)

// Address is the postal address embedded in a Patient
type Address struct {
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	Zip        string
}

// Patient is a clinic patient record. Patients are never removed; deactivation
// clears Active.
type Patient struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Document  string
	Address   Address
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// NewPatient builds an active patient from a registration request
func NewPatient(req RegistrationRequest) Patient {
	return Patient{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Document: strings.TrimSpace(req.Document),
		Address: Address{
			Street:     strings.TrimSpace(req.Address.Street),
			Number:     strings.TrimSpace(req.Address.Number),
			Complement: strings.TrimSpace(req.Address.Complement),
			District:   strings.TrimSpace(req.Address.District),
			City:       strings.TrimSpace(req.Address.City),
			State:      strings.TrimSpace(req.Address.State),
			Zip:        strings.TrimSpace(req.Address.Zip),
		},
		Active: true,
	}
}

// AddressRequest is the address part of a registration request
type AddressRequest struct {
	Street     string `json:"logradouro" validate:"notblank,max=100"`
	Number     string `json:"numero" validate:"notblank,max=20"`
	Complement string `json:"complemento" validate:"max=100"`
	District   string `json:"bairro" validate:"notblank,max=100"`
	City       string `json:"cidade" validate:"notblank,max=100"`
	State      string `json:"uf" validate:"notblank,max=2"`
	Zip        string `json:"cep" validate:"notblank,max=9"`
}

// RegistrationRequest represents the request to register a new patient
type RegistrationRequest struct {
	Name     string         `json:"nome" validate:"notblank,max=100"`
	Email    string         `json:"email" validate:"notblank,email,max=100"`
	Phone    string         `json:"telefone" validate:"notblank,max=20"`
	Document string         `json:"cpf" validate:"notblank,max=14"`
	Address  AddressRequest `json:"endereco"`
}

// AddressUpdate carries the address fields of an update. Nil or blank fields
// keep their current value.
type AddressUpdate struct {
	Street     *string `json:"logradouro,omitempty" validate:"omitempty,max=100"`
	Number     *string `json:"numero,omitempty" validate:"omitempty,max=20"`
	Complement *string `json:"complemento,omitempty" validate:"omitempty,max=100"`
	District   *string `json:"bairro,omitempty" validate:"omitempty,max=100"`
	City       *string `json:"cidade,omitempty" validate:"omitempty,max=100"`
	State      *string `json:"uf,omitempty" validate:"omitempty,max=2"`
	Zip        *string `json:"cep,omitempty" validate:"omitempty,max=9"`
}

// UpdateRequest represents the request to update a patient. Email and
// document are immutable and have no fields here.
type UpdateRequest struct {
	ID      *int64         `json:"id" validate:"required"`
	Name    *string        `json:"nome,omitempty" validate:"omitempty,max=100"`
	Phone   *string        `json:"telefone,omitempty" validate:"omitempty,max=20"`
	Address *AddressUpdate `json:"endereco,omitempty"`
}

// AddressResponse is the address as returned to clients
type AddressResponse struct {
	Street     string `json:"logradouro"`
	Number     string `json:"numero"`
	Complement string `json:"complemento"`
	District   string `json:"bairro"`
	City       string `json:"cidade"`
	State      string `json:"uf"`
	Zip        string `json:"cep"`
}

// DetailResponse is the full view of a patient
type DetailResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"nome"`
	Email    string          `json:"email"`
	Phone    string          `json:"telefone"`
	Document string          `json:"cpf"`
	Address  AddressResponse `json:"endereco"`
	Active   bool            `json:"ativo"`
}

// ListItemResponse is the abbreviated view used by the listing
type ListItemResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email"`
	Phone string `json:"telefone"`
}

// PageResponse is one page of active patients
type PageResponse struct {
	Content    []ListItemResponse `json:"content"`
	Pagination pagination.Meta    `json:"pagination"`
}

// NewDetailResponse projects a patient into its detail view
func NewDetailResponse(p Patient) DetailResponse {
	return DetailResponse{
		ID:       p.ID,
		Name:     p.Name,
		Email:    p.Email,
		Phone:    p.Phone,
		Document: p.Document,
		Address: AddressResponse{
			Street:     p.Address.Street,
			Number:     p.Address.Number,
			Complement: p.Address.Complement,
			District:   p.Address.District,
			City:       p.Address.City,
			State:      p.Address.State,
			Zip:        p.Address.Zip,
		},
		Active: p.Active,
	}
}

// NewListItemResponse projects a patient into its list view
func NewListItemResponse(p Patient) ListItemResponse {
	return ListItemResponse{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Phone: p.Phone,
	}
}
