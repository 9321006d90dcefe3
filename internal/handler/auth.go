package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/auth"
	"github.com/sakif/notebook/internal/service"
)

const (
	stateCookieName = "oauth_state"
	stateTTL        = 10 * time.Minute
)

// OAuthProvider is the part of auth.GitHubProvider the login flow uses.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler runs the GitHub sign-in flow and owns the session cookie.
type AuthHandler struct {
	provider     OAuthProvider
	auth         *service.AuthService
	tokenTTL     time.Duration
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(
	provider OAuthProvider,
	authService *service.AuthService,
	tokenTTL time.Duration,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:     provider,
		auth:         authService,
		tokenTTL:     tokenTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// cookie builds an HttpOnly cookie on the whole site. A negative maxAge
// deletes it.
func (h *AuthHandler) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	seconds := int(maxAge.Seconds())
	if maxAge < 0 {
		seconds = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   seconds,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// HandleGitHubLogin redirects to GitHub. The random state is stored in a
// cookie as well; the callback proceeds only when both copies match.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, h.cookie(stateCookieName, state, stateTTL))
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stored, err := r.Cookie(stateCookieName)
	if err != nil || stored.Value == "" || query.Get("state") != stored.Value {
		h.logger.Warn("oauth callback with bad state", slog.String("remote", r.RemoteAddr))
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	// The state is single use.
	http.SetCookie(w, h.cookie(stateCookieName, "", -1))

	if denied := query.Get("error"); denied != "" {
		h.logger.Info("github sign-in denied", slog.String("reason", denied))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}
	code := query.Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, fmt.Errorf("exchanging oauth code: %w", err))
		return
	}
	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), profile)
	if err != nil {
		writeError(w, err)
		return
	}

	// Same lifetime as the token inside it.
	http.SetCookie(w, h.cookie(auth.CookieName, result.Token, h.tokenTTL))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout drops the session cookie. Tokens are stateless, so a copied
// token stays valid until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie(auth.CookieName, "", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUserByID(r.Context(), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
