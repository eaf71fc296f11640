package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAdmin_AllowsAdminKey_BlocksPublicKey(t *testing.T) {
	keys := Keys{
		Public: []string{"pub_key"},
		Admin:  []string{"adm_key"},
	}

	// Admin key -> 200
	reqAdm := httptest.NewRequest(http.MethodPost, "/api/resolve", nil)
	reqAdm.Header.Set("X-API-Key", "adm_key")
	recAdm := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler()).ServeHTTP(recAdm, reqAdm)
	if recAdm.Code != http.StatusOK {
		t.Fatalf("admin key should pass; got %d", recAdm.Code)
	}

	// Bearer form works too
	reqBearer := httptest.NewRequest(http.MethodPost, "/api/resolve", nil)
	reqBearer.Header.Set("Authorization", "Bearer adm_key")
	recBearer := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler()).ServeHTTP(recBearer, reqBearer)
	if recBearer.Code != http.StatusOK {
		t.Fatalf("bearer admin key should pass; got %d", recBearer.Code)
	}

	// Public key -> 403
	reqPub := httptest.NewRequest(http.MethodPost, "/api/resolve", nil)
	reqPub.Header.Set("X-API-Key", "pub_key")
	recPub := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler()).ServeHTTP(recPub, reqPub)
	if recPub.Code != http.StatusForbidden {
		t.Fatalf("public key should be forbidden; got %d", recPub.Code)
	}
}

func TestRequireAny(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}

	for key, want := range map[string]int{
		"pub_key": http.StatusOK,
		"adm_key": http.StatusOK,
		"nope":    http.StatusUnauthorized,
		"":        http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		RequireAny(keys)(okHandler()).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("key %q: want %d got %d", key, want, rec.Code)
		}
	}
}

func TestAuth_NoKeysConfiguredAllowsAll(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, mw := range []func(http.Handler) http.Handler{RequireAny(Keys{}), RequireAdmin(Keys{})} {
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("dev mode should allow; got %d", rec.Code)
		}
	}
}

func TestRoleFrom(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}
	var got Role
	h := RequireAny(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RoleFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer adm_key")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != RoleAdmin {
		t.Fatalf("want admin role, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "pub_key")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != RolePublic {
		t.Fatalf("want public role, got %q", got)
	}

	if RoleFrom(req.Context()) != RoleAnonymous {
		t.Fatal("bare context should be anonymous")
	}
}

func TestRequireAny_RecordsAuthHeader(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}}

	for header, value := range map[string]string{
		"Authorization": "Bearer pub_key",
		"X-API-Key":     "pub_key",
	} {
		var got string
		h := RequireAny(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = AuthHeader(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/proxy/x", nil)
		req.Header.Set(header, value)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != header {
			t.Fatalf("AuthHeader = %q, want %q", got, header)
		}
	}
}
