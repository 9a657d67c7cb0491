package patient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/pagination"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service ServiceInterface
	logger  *zap.Logger
}

func NewHandler(service ServiceInterface, logger *zap.Logger) *Handler {
	logger = logging.OrNop(logger)
	return &Handler{
		service: service,
		logger:  logger.Named("patient.handler"),
	}
}

// RegisterRoutes mounts the patient endpoints on r. wrap decorates each
// handler with the permission it needs; pass nil to mount them unprotected.
func (h *Handler) RegisterRoutes(r *mux.Router, wrap func(permission string, next http.HandlerFunc) http.Handler) {
	if wrap == nil {
		wrap = func(_ string, next http.HandlerFunc) http.Handler { return next }
	}

	r.Handle("/pacientes", wrap("patient:create", h.Register)).Methods(http.MethodPost)
	r.Handle("/pacientes", wrap("patient:view", h.List)).Methods(http.MethodGet)
	r.Handle("/pacientes", wrap("patient:update", h.Update)).Methods(http.MethodPut)
	r.Handle("/pacientes/{id:[0-9]+}", wrap("patient:view", h.Detail)).Methods(http.MethodGet)
	r.Handle("/pacientes/{id:[0-9]+}", wrap("patient:delete", h.Deactivate)).Methods(http.MethodDelete)
}

type errorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if !h.decode(w, r, &req) {
		return
	}

	patient, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/pacientes/%d", patient.ID))
	respondJSON(w, http.StatusCreated, patient)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r)

	page, err := h.service.List(r.Context(), params)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	patient, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, patient)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	patient, err := h.service.Update(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, patient)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	patient, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, patient)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "Request validation failed",
			Fields:  verr.Fields,
		})
	case errors.Is(err, ErrPatientNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
	default:
		h.logger.Error("patient request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// pathID reads the numeric {id} route variable. Ids that do not fit an int64
// cannot exist, so they are reported as not found.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, errorResponse{
		Error:   errorType,
		Message: message,
	})
}
