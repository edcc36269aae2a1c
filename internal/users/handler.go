package users

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

// Handler manages user management endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewUsers))
		r.Get("/api/users", h.list)
		r.Get("/api/users/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCreateUsers))
		r.Post("/users", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermEditUsers))
		r.Put("/users/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeleteUsers))
		r.Delete("/users/{id}", h.delete)
	})
}

type createUserRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=8"`
	Language      string  `json:"language" validate:"omitempty,oneof=en bem nya toi"`
	RoleIDs       []int64 `json:"role_ids" validate:"dive,gt=0"`
	PermissionIDs []int64 `json:"permission_ids" validate:"dive,gt=0"`
}

type updateUserRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"omitempty,min=8"`
	Language      string  `json:"language" validate:"omitempty,oneof=en bem nya toi"`
	RoleIDs       []int64 `json:"role_ids" validate:"dive,gt=0"`
	PermissionIDs []int64 `json:"permission_ids" validate:"dive,gt=0"`
}

type userResponse struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Language        string     `json:"language"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	RoleIDs         []int64    `json:"role_ids"`
	PermissionIDs   []int64    `json:"permission_ids"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toResponse(user User) userResponse {
	roleIDs := user.RoleIDs
	if roleIDs == nil {
		roleIDs = []int64{}
	}
	permIDs := user.DirectPermissionIDs
	if permIDs == nil {
		permIDs = []int64{}
	}
	return userResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Language:        user.Language,
		EmailVerifiedAt: user.EmailVerifiedAt,
		RoleIDs:         roleIDs,
		PermissionIDs:   permIDs,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	paging := shared.NewPagination(page, perPage, len(users))

	start := (paging.Page - 1) * paging.PerPage
	if start > len(users) {
		start = len(users)
	}
	end := start + paging.PerPage
	if end > len(users) {
		end = len(users)
	}
	out := make([]userResponse, 0, end-start)
	for _, user := range users[start:end] {
		out = append(out, toResponse(user))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": map[string]any{
			"page":        paging.Page,
			"per_page":    paging.PerPage,
			"total":       paging.Total,
			"total_pages": paging.TotalPages,
		},
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	user, err := h.service.CreateUser(r.Context(), actorID, CreateInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Language:      req.Language,
		RoleIDs:       req.RoleIDs,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(user))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	var req updateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	user, err := h.service.UpdateUser(r.Context(), actorID, id, UpdateInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Language:      req.Language,
		RoleIDs:       req.RoleIDs,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Message(w, http.StatusNotFound, "resource not found")
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	if err := h.service.DeleteUser(r.Context(), actorID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.MessageBody{Message: "user deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ValidationBody{Message: "invalid payload", Errors: map[string]string{}})
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ValidationBody{Message: "validation failed", Errors: fields})
		return false
	}
	return true
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
