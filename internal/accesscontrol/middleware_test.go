package accesscontrol

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leasecraft/leasecraft/internal/shared"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(principalID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(shared.ContextWithPrincipalID(req.Context(), principalID))
}

func TestRequireAnyAllowsMatchingPermission(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Staff", false, "roles.view.all")
	store.mustPrincipal(1, KindUser, true, role.ID)
	mw := Middleware{Resolver: NewResolver(store, nil, nil)}

	handler := mw.RequireAny(PermRolesView, PermRolesEdit)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(1))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyRejectsMissingPermission(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(1, KindUser, true, role.ID)
	mw := Middleware{Resolver: NewResolver(store, nil, nil)}

	handler := mw.RequireAny(PermRolesView)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(1))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyRejectsAnonymousRequest(t *testing.T) {
	store := newMemStore()
	mw := Middleware{Resolver: NewResolver(store, nil, nil)}

	handler := mw.RequireAny(PermRolesView)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	store := newMemStore()
	partial := store.mustRole("Viewer", false, "roles.view.all")
	full := store.mustRole("Admin", false, "roles.view.all", "roles.edit.all")
	store.mustPrincipal(1, KindUser, true, partial.ID)
	store.mustPrincipal(2, KindUser, true, full.ID)
	mw := Middleware{Resolver: NewResolver(store, nil, nil)}

	handler := mw.RequireAll(PermRolesView, PermRolesEdit)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(1))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(2))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBypassRolePassesAnyCheck(t *testing.T) {
	store := newMemStore()
	store.mustPermission(PermRolesEdit)
	super := store.mustRole("SuperAdmin", true)
	store.mustPrincipal(1, KindUser, true, super.ID)
	mw := Middleware{Resolver: NewResolver(store, nil, nil)}

	handler := mw.RequireAll(PermRolesEdit)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(1))
	require.Equal(t, http.StatusOK, rec.Code)
}
