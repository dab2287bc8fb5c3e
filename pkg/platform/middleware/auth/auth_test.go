package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"barangay/pkg/platform/middleware/admin"
	"barangay/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

type AuthMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *AuthMiddlewareSuite) serve(v JWTValidator, header string, next http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	RequireAuth(v, s.logger)(next).ServeHTTP(rr, req)
	return rr
}

func (s *AuthMiddlewareSuite) TestMissingHeader() {
	rr := s.serve(stubValidator{}, "", http.NotFoundHandler())
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Contains(rr.Body.String(), "Missing or invalid Authorization header")
}

func (s *AuthMiddlewareSuite) TestInvalidToken() {
	rr := s.serve(stubValidator{err: errors.New("bad")}, "Bearer x", http.NotFoundHandler())
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Contains(rr.Body.String(), "Invalid or expired token")
}

func (s *AuthMiddlewareSuite) TestInvalidSubject() {
	rr := s.serve(stubValidator{claims: &JWTClaims{UserID: "nope"}}, "Bearer x", http.NotFoundHandler())
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *AuthMiddlewareSuite) TestValidTokenPopulatesContext() {
	userID := uuid.New()
	var gotRole, gotEmail string
	var gotUser uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = uuid.UUID(requestcontext.UserID(r.Context()))
		gotRole = requestcontext.Role(r.Context())
		gotEmail = requestcontext.Email(r.Context())
	})

	rr := s.serve(stubValidator{claims: &JWTClaims{UserID: userID.String(), Email: "a@b.ph"}}, "Bearer x", next)

	s.Equal(http.StatusOK, rr.Code)
	s.Equal(userID, gotUser)
	s.Equal(requestcontext.RoleResident, gotRole, "missing role defaults to resident")
	s.Equal("a@b.ph", gotEmail)
}

func (s *AuthMiddlewareSuite) TestAdminGate() {
	userID := uuid.New().String()
	chain := func(role string) *httptest.ResponseRecorder {
		return s.serve(
			stubValidator{claims: &JWTClaims{UserID: userID, Role: role}},
			"Bearer x",
			admin.RequireAdmin(s.logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})),
		)
	}

	s.Run("resident is forbidden", func() {
		s.Equal(http.StatusForbidden, chain(requestcontext.RoleResident).Code)
	})
	s.Run("admin passes", func() {
		s.Equal(http.StatusNoContent, chain(requestcontext.RoleAdmin).Code)
	})
	s.Run("super admin passes", func() {
		s.Equal(http.StatusNoContent, chain(requestcontext.RoleSuperAdmin).Code)
	})
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func TestWriteJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONError(rr, http.StatusUnauthorized, "unauthorized", "nope")
	assert.JSONEq(t, `{"error":"unauthorized","error_description":"nope"}`, rr.Body.String())
}
