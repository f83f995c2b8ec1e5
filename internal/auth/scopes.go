package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	ScopeOpenID      = "openid"
	ScopeProfile     = "profile"
	ScopeEmail       = "email"
	ScopeReviewRead  = "review:read"
	ScopeReviewWrite = "review:write"
)

// AllScopes is requested at login and by the Swagger UI.
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeReviewRead,
	ScopeReviewWrite,
}

// ReviewScopes are granted to the dev bypass user.
var ReviewScopes = []string{ScopeReviewRead, ScopeReviewWrite}

// scopeList decodes both the Okta "scp" array and the space separated
// "scope" string used by other issuers.
type scopeList []string

func (s *scopeList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*s = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(b, &joined); err != nil {
		return err
	}
	*s = strings.Fields(joined)
	return nil
}

// ScopeForMethod returns the scope a request needs: review:read for safe
// methods and review:write for anything that can change a workflow.
func ScopeForMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ScopeReviewRead
	}
	return ScopeReviewWrite
}

// RequireScope rejects requests whose principal lacks scope. It must run
// after RequireAuth.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checkScope(w, r, scope) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireReviewScope applies ScopeForMethod to every request.
func RequireReviewScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !checkScope(w, r, ScopeForMethod(r.Method)) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func checkScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, codeUnauthorized, "request is not authenticated")
		return false
	}
	if !p.HasScope(scope) {
		writeProblem(w, http.StatusForbidden, codeForbidden, "missing scope "+scope)
		return false
	}
	return true
}
