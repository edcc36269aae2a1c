package roles

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zamsuite/zamsuite-auth/internal/platform/httpx"
	"github.com/zamsuite/zamsuite-auth/internal/rbac"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW, validate: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewRoles))
		r.Get("/api/roles", h.list)
		r.Get("/api/roles/{id}", h.show)
		r.Get("/api/roles-statistics", h.statistics)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCreateRoles))
		r.Post("/roles", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermEditRoles))
		r.Put("/roles/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeleteRoles))
		r.Delete("/roles/{id}", h.delete)
	})
}

type roleRequest struct {
	Name          string  `json:"name" validate:"required,max=100"`
	Description   string  `json:"description" validate:"max=500"`
	PermissionIDs []int64 `json:"permission_ids" validate:"dive,gt=0"`
}

type roleResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PermissionIDs []int64   `json:"permission_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toResponse(role Role) roleResponse {
	ids := role.PermissionIDs
	if ids == nil {
		ids = []int64{}
	}
	return roleResponse{
		ID:            role.ID,
		Name:          role.Name,
		Description:   role.Description,
		PermissionIDs: ids,
		CreatedAt:     role.CreatedAt,
		UpdatedAt:     role.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toResponse(role))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(role))
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		h.logger.Error("role statistics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if stats == nil {
		stats = []Stat{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": stats})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	role, err := h.service.CreateRole(r.Context(), actorID, req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(role))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	role, err := h.service.UpdateRole(r.Context(), actorID, id, req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(role))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	if err := h.service.DeleteRole(r.Context(), actorID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.MessageBody{Message: "role deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (roleRequest, bool) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ValidationBody{Message: "invalid payload", Errors: map[string]string{}})
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ValidationBody{Message: "validation failed", Errors: fields})
		return req, false
	}
	return req, true
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
