// internal/controller/controller.go
package controller

import (
	"net/http"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/identity"
)

// memberID returns the authenticated member of the request. Routes mounted
// behind identity.Middleware always have one.
func memberID(r *http.Request) (string, error) {
	p, err := principal(r)
	if err != nil {
		return "", err
	}
	return p.MemberID, nil
}

func principal(r *http.Request) (identity.Principal, error) {
	p, ok := identity.PrincipalFrom(r.Context())
	if !ok || p.MemberID == "" {
		return identity.Principal{}, appErrors.NewUnauthorized("no session")
	}
	return p, nil
}
