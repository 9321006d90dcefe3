package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// echoUser is the protected handler: it writes back the user ID it sees.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromContext(r.Context())
	w.Write([]byte(id))
})

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Generate("user-1")
	other, _ := ts.Generate("user-2")

	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"cookie", good, "", http.StatusOK, "user-1"},
		{"bearer header", "", "Bearer " + good, http.StatusOK, "user-1"},
		{"bearer scheme is case-insensitive", "", "bearer " + good, http.StatusOK, "user-1"},
		{"header wins over cookie", other, "Bearer " + good, http.StatusOK, "user-1"},
		{"no credentials", "", "", http.StatusUnauthorized, ""},
		{"bad cookie", "garbage", "", http.StatusUnauthorized, ""},
		{"basic auth is not accepted", "", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"empty bearer", "", "Bearer ", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			RequireAuth(ts)(echoUser).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantUser, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"error":"unauthenticated"`)
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok, "anonymous request")

	_, ok = UserIDFromContext(WithUserID(req.Context(), ""))
	assert.False(t, ok, "empty ID counts as anonymous")

	id, ok := UserIDFromContext(WithUserID(req.Context(), "user-9"))
	assert.True(t, ok)
	assert.Equal(t, "user-9", id)
}
