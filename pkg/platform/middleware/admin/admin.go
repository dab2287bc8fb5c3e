package admin

import (
	"log/slog"
	"net/http"

	request "barangay/pkg/platform/middleware/request"
	"barangay/pkg/requestcontext"
)

// RequireAdmin rejects principals without an admin or super_admin role.
// It must run after auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role := requestcontext.Role(ctx)
			if !requestcontext.IsAdmin(role) {
				logger.WarnContext(ctx, "admin access denied",
					"role", role,
					"user_id", requestcontext.UserID(ctx).String(),
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
