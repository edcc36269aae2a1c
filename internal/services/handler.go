package services

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

// Handler manages service credential endpoints.
type Handler struct {
	logger   *slog.Logger
	manager  *Manager
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, manager *Manager, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, manager: manager, rbac: rbacMW, validate: validator.New()}
}

// MountRoutes registers service credential routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewServices))
		r.Get("/api/services", h.list)
		r.Get("/api/services/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermManageServices))
		r.Post("/services", h.create)
		r.Put("/services/{id}", h.update)
		r.Delete("/services/{id}", h.delete)
		r.Post("/services/{id}/secret", h.regenerateSecret)
	})
}

type serviceRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Permissions []string `json:"permissions" validate:"dive,max=100"`
	IsActive    *bool    `json:"is_active"`
}

type serviceResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ServiceID     string    `json:"service_id"`
	ServiceSecret string    `json:"service_secret,omitempty"`
	Permissions   []string  `json:"permissions"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// toResponse maps a credential; the secret is only echoed when withSecret is
// set, i.e. at registration and rotation time.
func toResponse(svc Service, withSecret bool) serviceResponse {
	perms := svc.Permissions
	if perms == nil {
		perms = []string{}
	}
	out := serviceResponse{
		ID:          svc.ID,
		Name:        svc.Name,
		ServiceID:   svc.ServiceID,
		Permissions: perms,
		IsActive:    svc.IsActive,
		CreatedAt:   svc.CreatedAt,
		UpdatedAt:   svc.UpdatedAt,
	}
	if withSecret {
		out.ServiceSecret = svc.ServiceSecret
	}
	return out
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	svcs, err := h.manager.List(r.Context())
	if err != nil {
		h.logger.Error("list services", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]serviceResponse, 0, len(svcs))
	for _, svc := range svcs {
		out = append(out, toResponse(svc, false))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	svc, err := h.manager.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(svc, false))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	svc, err := h.manager.Register(r.Context(), actorID, req.Name, req.Permissions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(svc, true))
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
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	actorID, _ := rbac.CurrentUserID(r)
	svc, err := h.manager.Update(r.Context(), actorID, id, req.Name, req.Permissions, isActive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(svc, false))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	if err := h.manager.Delete(r.Context(), actorID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.MessageBody{Message: "service deleted"})
}

func (h *Handler) regenerateSecret(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	svc, err := h.manager.RegenerateSecret(r.Context(), actorID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(svc, true))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (serviceRequest, bool) {
	var req serviceRequest
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
