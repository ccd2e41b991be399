package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	authsvc "github.com/ivankudzin/jobswipe/internal/services/auth"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

// requireIdentity writes 401 and reports false when the request carries no
// usable identity.
func requireIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, enums.Role, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok || identity.UserID <= 0 {
		writeUnauthorized(w, httperrors.CodeUnauthorized, "authentication required")
		return authsvc.Identity{}, "", false
	}
	role, err := enums.ParseRole(identity.Role)
	if err != nil {
		writeUnauthorized(w, httperrors.CodeUnauthorized, "authentication required")
		return authsvc.Identity{}, "", false
	}
	return identity, role, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryOptionalInt(r *http.Request, name string) (*int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}
