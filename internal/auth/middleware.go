package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
)

type ctxKey string

const principalKey ctxKey = "auth_principal"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/clinic-service/auth")

// MetricsRecorder records auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

// Middleware validates the bearer token and injects the Principal into the
// request context.
func Middleware(ver TokenVerifier) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(ver, nil, nil)
}

// MiddlewareWithMetrics is Middleware with failure metrics and logging.
// metrics and logger may be nil.
func MiddlewareWithMetrics(ver TokenVerifier, metrics MetricsRecorder, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logging.OrNop(logger)
	fail := func(ctx context.Context, w http.ResponseWriter, span trace.Span, reason, message string) {
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.String("error.type", reason))
		if metrics != nil {
			metrics.RecordAuthFailure(ctx, reason)
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", message)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			authz := r.Header.Get("Authorization")
			if authz == "" {
				fail(ctx, w, span, "missing_authorization", "missing authorization")
				return
			}

			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				fail(ctx, w, span, "invalid_header_format", "invalid authorization header")
				return
			}

			pr, err := ver.ParseAndVerifyToken(parts[1])
			if err != nil {
				logger.Debug("token validation failed", zap.Error(err))
				fail(ctx, w, span, "invalid_token", "invalid token")
				return
			}

			span.SetAttributes(
				attribute.String("user.id", pr.UserID),
				attribute.StringSlice("user.roles", pr.Roles),
			)
			span.SetStatus(codes.Ok, "authentication successful")

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, pr)))
		})
	}
}

// RequirePermission returns middleware that ensures the principal has permission.
func RequirePermission(per string, perms Permissions) func(http.Handler) http.Handler {
	return RequirePermissionWithMetrics(per, perms, nil, nil)
}

// RequirePermissionWithMetrics is RequirePermission with check metrics and
// logging. metrics and logger may be nil.
func RequirePermissionWithMetrics(per string, perms Permissions, metrics MetricsRecorder, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logging.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.RequirePermission",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", per)),
			)
			defer span.End()

			pr, ok := FromContext(ctx)
			if !ok {
				span.SetStatus(codes.Error, "unauthenticated")
				if metrics != nil {
					metrics.RecordPermissionCheck(ctx, per, elapsedMs(start), false)
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", "unauthenticated")
				return
			}

			allowed := HasPermission(pr, per, perms)
			span.SetAttributes(
				attribute.Bool("permission.allowed", allowed),
				attribute.String("user.id", pr.UserID),
			)
			if metrics != nil {
				metrics.RecordPermissionCheck(ctx, per, elapsedMs(start), allowed)
			}

			if !allowed {
				logger.Info("permission denied",
					zap.String("user_id", pr.UserID),
					zap.Strings("roles", pr.Roles),
					zap.String("permission", per),
				)
				span.SetStatus(codes.Error, "forbidden")
				writeError(w, http.StatusForbidden, "forbidden", "missing permission "+per)
				return
			}

			span.SetStatus(codes.Ok, "permission granted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Guard returns a route decorator that authenticates the request and then
// requires the given permission.
func Guard(ver TokenVerifier, perms Permissions, metrics MetricsRecorder, logger *zap.Logger) func(permission string, next http.HandlerFunc) http.Handler {
	authn := MiddlewareWithMetrics(ver, metrics, logger)
	return func(permission string, next http.HandlerFunc) http.Handler {
		return authn(RequirePermissionWithMetrics(permission, perms, metrics, logger)(next))
	}
}

// FromContext extracts Principal from context.
func FromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func writeError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorType,
		"message": message,
	})
}
