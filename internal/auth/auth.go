// Package auth provides optional Okta sign-in for reviewers. Browser users
// hold an ID token cookie; API and MCP clients send an access token as a
// bearer. Both paths end with a Principal in the request context.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"rubric-review/backend/internal/config"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"
)

const (
	stateCookie       = "oauthstate"
	idTokenCookie     = "id_token"
	accessTokenCookie = "access_token"

	devUser = "dev@localhost"

	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
)

var (
	errNoCredentials = errors.New("no credentials")
	errBadEmail      = errors.New("invalid email format in token")
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Principal is the authenticated reviewer.
type Principal struct {
	Email  string
	Scopes []string
}

// HasScope reports whether scope was granted.
func (p Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// Auth verifies reviewer tokens issued by Okta.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	logger       Logger
	authBypass   bool
}

// New connects to the configured issuer. In the DEV environment with
// dev_mode_bypass set, no issuer is contacted and every request runs as
// dev@localhost with both review scopes.
func New(ctx context.Context, cfg *config.Config, logger Logger) (*Auth, error) {
	a := &Auth{logger: logger}
	if strings.EqualFold(cfg.Environment, "DEV") && cfg.DevModeBypass {
		a.authBypass = true
		return a, nil
	}

	if cfg.Auth.OktaDomain == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.OktaDomain)
	if err != nil {
		return nil, err
	}

	a.oauth2Config = &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       AllScopes,
	}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})
	// Access tokens carry the authorization server audience, not the client id.
	a.apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return a, nil
}

// LoginHandler starts the authorization code flow. The state value is kept
// in a cookie and checked by CallbackHandler.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/docs", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to generate state")
		return
	}
	setCookie(w, stateCookie, state)
	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler exchanges the code, checks the ID token and stores both
// tokens as session cookies. The access token carries the granted scopes.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/docs", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		writeProblem(w, http.StatusBadRequest, "BAD_REQUEST", "invalid state")
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.logError("token exchange failed", err)
		writeProblem(w, http.StatusBadGateway, "INTERNAL_ERROR", "token exchange failed")
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		writeProblem(w, http.StatusBadGateway, "INTERNAL_ERROR", "no id_token in token response")
		return
	}
	if _, err := a.verifier.Verify(r.Context(), rawIDToken); err != nil {
		writeProblem(w, http.StatusUnauthorized, codeUnauthorized, "failed to verify id token")
		return
	}

	setCookie(w, idTokenCookie, rawIDToken)
	setCookie(w, accessTokenCookie, token.AccessToken)
	clearCookie(w, stateCookie)
	http.Redirect(w, r, "/docs", http.StatusSeeOther)
}

// LogoutHandler clears the session cookies.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, idTokenCookie)
	clearCookie(w, accessTokenCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireAuth stores the request's Principal in its context. Requests with
// no credentials at all are sent to /login; bad credentials get a 401.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.authenticate(r)
		switch {
		case errors.Is(err, errNoCredentials):
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		case err != nil:
			writeProblem(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
			return
		}
		if a.logger != nil {
			a.logger.Debug("request authenticated", "email", p.Email, "scopes", p.Scopes, "path", r.URL.Path)
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

type tokenClaims struct {
	Subject string    `json:"sub"`
	Email   string    `json:"email"`
	Scp     scopeList `json:"scp"`
	Scope   scopeList `json:"scope"`
}

func (c tokenClaims) scopes() []string {
	if len(c.Scp) > 0 {
		return c.Scp
	}
	return c.Scope
}

func (a *Auth) authenticate(r *http.Request) (Principal, error) {
	if a.authBypass {
		return Principal{Email: devUser, Scopes: ReviewScopes}, nil
	}

	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		claims, err := verifyClaims(r.Context(), a.apiVerifier, raw)
		if err != nil {
			return Principal{}, err
		}
		// Okta access tokens put the login in sub.
		email := claims.Email
		if email == "" {
			email = claims.Subject
		}
		return principal(email, claims.scopes())
	}

	cookie, err := r.Cookie(idTokenCookie)
	if err != nil {
		return Principal{}, errNoCredentials
	}
	identity, err := verifyClaims(r.Context(), a.verifier, cookie.Value)
	if err != nil {
		return Principal{}, err
	}

	var scopes []string
	if at, err := r.Cookie(accessTokenCookie); err == nil {
		if granted, err := verifyClaims(r.Context(), a.apiVerifier, at.Value); err == nil {
			scopes = granted.scopes()
		}
	}
	return principal(identity.Email, scopes)
}

func verifyClaims(ctx context.Context, v *oidc.IDTokenVerifier, raw string) (tokenClaims, error) {
	var claims tokenClaims
	token, err := v.Verify(ctx, raw)
	if err != nil {
		return claims, errors.New("invalid token: " + err.Error())
	}
	if err := token.Claims(&claims); err != nil {
		return claims, errors.New("failed to parse token claims")
	}
	return claims, nil
}

func principal(email string, scopes []string) (Principal, error) {
	if _, _, ok := strings.Cut(email, "@"); !ok {
		return Principal{}, errBadEmail
	}
	return Principal{Email: email, Scopes: scopes}, nil
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the Principal set by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Email != ""
}

// UserFromContext returns the reviewer email set by RequireAuth.
func UserFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.Email, ok
}

func (a *Auth) logError(msg string, err error) {
	if a.logger != nil {
		a.logger.Error(msg, "error", err)
	}
}

type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func writeProblem(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Title:  http.StatusText(status),
		Status: status,
		Code:   code,
		Detail: detail,
	})
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
