package http

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/auth"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/patient"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/telemetry"
)

// Dependencies are the collaborators the router wires into its handlers.
// Everything except DB is optional.
type Dependencies struct {
	DB          *sql.DB
	Publisher   messaging.PublisherInterface
	Verifier    auth.TokenVerifier
	Permissions auth.Permissions
	Metrics     *telemetry.Metrics
	Logger      *zap.Logger
	ServiceName string
}

// SetupRouter initializes all routes for the application. Patient routes are
// protected only when a Verifier is supplied.
func SetupRouter(deps Dependencies) *mux.Router {
	logger := logging.OrNop(deps.Logger)

	var recorder patient.OperationRecorder
	var httpMetrics HTTPMetricsRecorder
	var authMetrics auth.MetricsRecorder
	if deps.Metrics != nil {
		recorder, httpMetrics, authMetrics = deps.Metrics, deps.Metrics, deps.Metrics
	}

	patientRepo := patient.NewRepository(deps.DB)
	patientService := patient.NewService(patientRepo, deps.Publisher, recorder, logger)
	patientHandler := patient.NewHandler(patientService, logger)

	r := mux.NewRouter()
	if deps.ServiceName != "" {
		r.Use(otelmux.Middleware(deps.ServiceName))
	}
	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware(logger.Named("http"), httpMetrics))

	r.HandleFunc("/health", health).Methods(http.MethodGet)

	var guard func(permission string, next http.HandlerFunc) http.Handler
	if deps.Verifier != nil {
		guard = auth.Guard(deps.Verifier, deps.Permissions, authMetrics, logger.Named("auth"))
	}
	patientHandler.RegisterRoutes(r, guard)

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
