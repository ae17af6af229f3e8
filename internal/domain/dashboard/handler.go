package dashboard

import (
	"errors"
	"net/http"

	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/middleware"
	"github.com/mestore/mestore-api/internal/pkg/response"
)

// Handler serves the admin KPI overview
type Handler struct {
	repo  Repository
	perms *permission.Service
}

// NewHandler creates dashboard handler
func NewHandler(repo Repository, perms *permission.Service) *Handler {
	return &Handler{repo: repo, perms: perms}
}

// Overview handles GET /admins/dashboard
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())

	err := h.perms.Validate(r.Context(), actorID, permission.ResourceSystemSettings, permission.ActionRead, permission.ScopeGlobal, nil)
	if err != nil {
		switch {
		case errors.Is(err, permission.ErrUnauthorized):
			response.ForbiddenCode(w, "UNAUTHORIZED_ACTOR", "Not eligible for administrative actions")
		case errors.Is(err, permission.ErrInsufficientClearance):
			response.ForbiddenCode(w, "INSUFFICIENT_CLEARANCE", "Security clearance level too low")
		case errors.Is(err, permission.ErrScopeViolation):
			response.ForbiddenCode(w, "SCOPE_VIOLATION", "Requested scope exceeds held scope")
		case errors.Is(err, permission.ErrPermissionNotFound):
			response.ForbiddenCode(w, "PERMISSION_UNKNOWN", "No catalog permission for this action")
		default:
			response.InternalError(w)
		}
		return
	}

	stats, err := h.repo.Collect(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, stats)
}
