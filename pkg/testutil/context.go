package testutil

import (
	"net/http"

	id "barangay/pkg/domain"
	"barangay/pkg/requestcontext"
)

// WithUserID adds a resident principal to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	return WithAuth(req, userID, requestcontext.RoleResident)
}

// WithAdmin adds an admin principal to the request context.
func WithAdmin(req *http.Request, userID string) *http.Request {
	return WithAuth(req, userID, requestcontext.RoleAdmin)
}

// WithAuth adds a principal with the given role. Invalid IDs are silently ignored.
func WithAuth(req *http.Request, userID, role string) *http.Request {
	parsedUserID, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithIdentity(req.Context(), parsedUserID, "", role)
	return req.WithContext(ctx)
}
