package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/require"

	"github.com/guna684/book-shop-project-sub001/internal/common"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := common.UserID(r.Context())
		w.Header().Set("X-User", userID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t)}
	handler := mw.RequireAuth(echoUser())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwa.HS256, "user-9", nil))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user-9", rr.Header().Get("X-User"))
}

func TestRequireAuthReadsCookie(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t), AccessCookie: "access_token"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, jwa.HS256, "user-c", nil)})
	rr := httptest.NewRecorder()
	mw.RequireAuth(echoUser()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user-c", rr.Header().Get("X-User"))
}

func TestRequireRole(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t)}
	handler := mw.RequireAuth(mw.RequireRole(RoleAdmin)(echoUser()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/promos", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwa.HS256, "user-1", []string{"customer"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/promos", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwa.HS256, "admin-1", []string{RoleAdmin}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthenticateIsOptional(t *testing.T) {
	mw := Middleware{Verifier: newTestVerifier(t)}
	handler := mw.Authenticate(echoUser())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("X-User"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwa.HS256, "user-5", nil))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "user-5", rr.Header().Get("X-User"))
}
