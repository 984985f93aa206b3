package controller

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/handler"
	"github.com/unclebandit/clippilot-backend/internal/identity"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

// MemberController proxies organization member management to the identity
// provider.
type MemberController struct {
	UserService *service.UserService
	Logger      *zap.Logger
}

func (c *MemberController) Routes(r chi.Router) {
	r.Get("/api/auth/members", c.List)
	r.Put("/api/auth/members", c.UpdateRoles)
	r.Post("/api/auth/invite", c.Invite)
	r.Get("/api/auth/me", c.Me)
}

func (c *MemberController) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, p)
}

func (c *MemberController) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	members, err := c.UserService.ListMembers(r.Context(), p)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, members)
}

func (c *MemberController) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body struct {
		MemberID string   `json:"member_id"`
		Roles    []string `json:"roles"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	member, err := c.UserService.UpdateRoles(r.Context(), p, body.MemberID, body.Roles)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "member": member})
}

type inviteRequest struct {
	Email             string         `json:"email"`
	OrganizationID    string         `json:"organization_id"`
	UntrustedMetadata map[string]any `json:"untrusted_metadata"`
}

func (c *MemberController) Invite(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body inviteRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	res, err := c.UserService.Invite(r.Context(), p, identity.Invite{
		OrganizationID:    body.OrganizationID,
		EmailAddress:      strings.TrimSpace(body.Email),
		UntrustedMetadata: body.UntrustedMetadata,
	})
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"member_id":  res.MemberID,
		"request_id": res.RequestID,
	})
}
