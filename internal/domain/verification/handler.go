package verification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mestore/mestore-api/internal/domain/permission"
	"github.com/mestore/mestore-api/internal/middleware"
	"github.com/mestore/mestore-api/internal/pkg/response"
	"github.com/mestore/mestore-api/internal/pkg/validator"
)

// Handler handles verification HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates verification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns verification router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/transition", h.Transition)

	return r
}

// Create handles POST /verifications
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	productID, _ := uuid.Parse(req.ProductID)
	vendorID, _ := uuid.Parse(req.VendorID)
	actorID := middleware.GetUserID(r.Context())

	v, err := h.service.Create(r.Context(), actorID, productID, vendorID, req.DepartmentID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, ResponseFromEntity(v))
}

// List handles GET /verifications
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := Status(s)
		if !status.Valid() {
			response.BadRequest(w, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	if d := r.URL.Query().Get("department_id"); d != "" {
		filter.DepartmentID = &d
	}

	actorID := middleware.GetUserID(r.Context())
	items, total, err := h.service.List(r.Context(), actorID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]*VerificationResponse, len(items))
	for i, v := range items {
		out[i] = ResponseFromEntity(v)
	}

	response.WithMeta(w, out, response.Meta{Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Get handles GET /verifications/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid verification ID")
		return
	}

	actorID := middleware.GetUserID(r.Context())
	v, err := h.service.Get(r.Context(), actorID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, ResponseFromEntity(v))
}

// Transition handles POST /verifications/{id}/transition
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid verification ID")
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	var assignTo *uuid.UUID
	if req.AssignedTo != nil {
		parsed, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			response.BadRequest(w, "Invalid assigned_to ID")
			return
		}
		assignTo = &parsed
	}

	actorID := middleware.GetUserID(r.Context())
	v, err := h.service.Transition(r.Context(), actorID, id, Status(req.Status), assignTo, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, ResponseFromEntity(v))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Verification not found")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(w, "Invalid status transition")
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

func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
