package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/middleware"
	"github.com/mestore/mestore-api/internal/pkg/response"
	"github.com/mestore/mestore-api/internal/pkg/validator"
)

// ListCatalog handles GET /admins/permissions
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	if err := h.perms.Validate(r.Context(), actorID, permission.ResourceSystemSettings, permission.ActionRead, permission.ScopeGlobal, nil); err != nil {
		h.writeError(w, err)
		return
	}

	perms, err := h.perms.ListCatalog(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, perms)
}

// ListGrants handles GET /admins/{id}/permissions. Admins may always read
// their own grants; anyone else's requires USERS/READ authority.
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if actorID != id {
		if err := h.perms.Validate(r.Context(), actorID, permission.ResourceUsers, permission.ActionRead, permission.ScopeGlobal, nil); err != nil {
			h.writeError(w, err)
			return
		}
	}

	grants, err := h.perms.ListGrants(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]*GrantResponse, len(grants))
	for i, g := range grants {
		out[i] = GrantResponseFromEntity(g)
	}

	response.OK(w, out)
}

// Grant handles POST /admins/permissions/grant
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	targetID, _ := uuid.Parse(req.TargetUserID)
	permissionID, _ := uuid.Parse(req.PermissionID)
	actorID := middleware.GetUserID(r.Context())

	g, err := h.perms.GrantPermission(r.Context(), actorID, permission.GrantInput{
		TargetID:     targetID,
		PermissionID: permissionID,
		Scope:        permission.Scope(req.Scope),
		ContextID:    req.ContextID,
		ExpiresAt:    req.ExpiresAt,
		Reason:       req.Reason,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, GrantResponseFromEntity(g))
}

// Revoke handles POST /admins/permissions/revoke
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	grantID, _ := uuid.Parse(req.GrantID)
	actorID := middleware.GetUserID(r.Context())

	if err := h.perms.RevokePermission(r.Context(), actorID, grantID, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}

	response.NoContent(w)
}
