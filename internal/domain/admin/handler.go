package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/audit"
	"github.com/mestore/mestore-api/internal/domain/dashboard"
	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/domain/user"
	"github.com/mestore/mestore-api/internal/middleware"
	"github.com/mestore/mestore-api/internal/pkg/jwt"
	"github.com/mestore/mestore-api/internal/pkg/response"
	"github.com/mestore/mestore-api/internal/pkg/validator"
)

// Handler handles admin HTTP requests
type Handler struct {
	service *Service
	perms   *permission.Service
	jwt     *jwt.Service
}

// NewHandler creates admin handler
func NewHandler(service *Service, perms *permission.Service, jwtService *jwt.Service) *Handler {
	return &Handler{service: service, perms: perms, jwt: jwtService}
}

// Routes returns admin router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, dash *dashboard.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/auth/me", h.Me)
		r.Get("/dashboard", dash.Overview)
		r.Get("/audit", h.ListAudit)

		r.Get("/permissions", h.ListCatalog)
		r.Post("/permissions/grant", h.Grant)
		r.Post("/permissions/revoke", h.Revoke)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Deactivate)
		r.Get("/{id}/permissions", h.ListGrants)
	})

	return r
}

// Login handles POST /admins/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	u, err := h.service.Login(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	resp, err := h.issueTokens(u)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, resp)
}

// Refresh handles POST /admins/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		response.Unauthorized(w, "Invalid or expired refresh token")
		return
	}

	u, err := h.service.Reauthenticate(r.Context(), claims.UserID)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	resp, err := h.issueTokens(u)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, resp)
}

func (h *Handler) issueTokens(u *user.User) (*LoginResponse, error) {
	access, err := h.jwt.GenerateAccessToken(u.ID, string(u.UserType), u.SecurityClearanceLevel)
	if err != nil {
		return nil, err
	}
	refresh, _, _, err := h.jwt.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(h.jwt.GetAccessTTL().Seconds()),
		Admin:        AdminResponseFromEntity(u),
	}, nil
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	case errors.Is(err, ErrNotAdministrative):
		response.ForbiddenCode(w, "NOT_ADMINISTRATIVE", "Account has no administrative access")
	case errors.Is(err, ErrAccountInactive):
		response.ForbiddenCode(w, "ACCOUNT_INACTIVE", "Account is inactive")
	case errors.Is(err, ErrAccountLocked):
		response.ForbiddenCode(w, "ACCOUNT_LOCKED", "Account is locked")
	default:
		response.InternalError(w)
	}
}

// Me handles GET /admins/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())

	u, err := h.service.GetByID(r.Context(), actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, AdminResponseFromEntity(u))
}

// List handles GET /admins
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := user.Filter{
		Query:  r.URL.Query().Get("q"),
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	}
	if t := r.URL.Query().Get("user_type"); t != "" {
		ut := user.UserType(t)
		if !ut.Valid() {
			response.BadRequest(w, "Invalid user_type filter")
			return
		}
		filter.UserType = &ut
	}
	if a := r.URL.Query().Get("is_active"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			response.BadRequest(w, "Invalid is_active filter")
			return
		}
		filter.IsActive = &active
	}

	actorID := middleware.GetUserID(r.Context())
	users, total, err := h.service.List(r.Context(), actorID, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]*AdminResponse, len(users))
	for i, u := range users {
		out[i] = AdminResponseFromEntity(u)
	}

	response.WithMeta(w, out, response.Meta{Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Create handles POST /admins
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	actorID := middleware.GetUserID(r.Context())
	u, err := h.service.Create(r.Context(), actorID, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, AdminResponseFromEntity(u))
}

// Get handles GET /admins/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, AdminResponseFromEntity(u))
}

// Update handles PATCH /admins/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	var req UpdateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	actorID := middleware.GetUserID(r.Context())
	u, err := h.service.Update(r.Context(), actorID, id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, AdminResponseFromEntity(u))
}

// Deactivate handles DELETE /admins/{id}
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.service.Deactivate(r.Context(), actorID, id); err != nil {
		h.writeError(w, err)
		return
	}

	response.NoContent(w)
}

// ListAudit handles GET /admins/audit
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	filter := auditFilterFromQuery(r)

	actorID := middleware.GetUserID(r.Context())
	records, total, err := h.service.ListAuditRecords(r.Context(), actorID, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.WithMeta(w, records, response.Meta{Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAdminNotFound):
		response.NotFound(w, "Admin not found")
	case errors.Is(err, ErrEmailTaken):
		response.Conflict(w, "Email already in use")
	case errors.Is(err, user.ErrInvalidClearance):
		response.BadRequest(w, "Clearance level out of range")
	case errors.Is(err, ErrCannotManageUser):
		response.ForbiddenCode(w, "USER_TYPE_FORBIDDEN", "Cannot manage a user of higher type")
	case errors.Is(err, ErrClearanceAboveActor):
		response.ForbiddenCode(w, "CLEARANCE_EXCEEDED", "Clearance level exceeds your own")
	case errors.Is(err, ErrSelfEscalation):
		response.ForbiddenCode(w, "SELF_ESCALATION", "Cannot change your own type, clearance, or status")
	case errors.Is(err, ErrCannotDeactivateSelf):
		response.ForbiddenCode(w, "SELF_DEACTIVATION", "Cannot deactivate your own account")
	case errors.Is(err, permission.ErrGrantDenied):
		response.ForbiddenCode(w, "GRANT_DENIED", err.Error())
	case errors.Is(err, permission.ErrRevokeDenied):
		response.ForbiddenCode(w, "REVOKE_DENIED", err.Error())
	case errors.Is(err, permission.ErrGrantNotFound):
		response.NotFound(w, "Grant not found")
	case errors.Is(err, permission.ErrUnauthorized):
		response.ForbiddenCode(w, "UNAUTHORIZED_ACTOR", "Not eligible for administrative actions")
	case errors.Is(err, permission.ErrInsufficientClearance):
		response.ForbiddenCode(w, "INSUFFICIENT_CLEARANCE", "Security clearance level too low")
	case errors.Is(err, permission.ErrScopeViolation):
		response.ForbiddenCode(w, "SCOPE_VIOLATION", "Requested scope exceeds held scope")
	case errors.Is(err, permission.ErrContextMismatch):
		response.ForbiddenCode(w, "CONTEXT_MISMATCH", "Grant does not cover this department or team")
	case errors.Is(err, permission.ErrPermissionNotFound):
		response.ForbiddenCode(w, "PERMISSION_UNKNOWN", "No catalog permission for this action")
	default:
		response.InternalError(w)
	}
}

func auditFilterFromQuery(r *http.Request) audit.Filter {
	filter := audit.Filter{
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	}
	if a := r.URL.Query().Get("actor_id"); a != "" {
		if id, err := uuid.Parse(a); err == nil {
			filter.ActorID = &id
		}
	}
	if a := r.URL.Query().Get("action"); a != "" {
		filter.Action = &a
	}
	if o := r.URL.Query().Get("outcome"); o != "" {
		outcome := audit.Outcome(o)
		filter.Outcome = &outcome
	}
	if f := r.URL.Query().Get("from"); f != "" {
		if t, err := time.Parse(time.RFC3339, f); err == nil {
			filter.FromDate = &t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.ToDate = &t
		}
	}
	return filter
}

func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
