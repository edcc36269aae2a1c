package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zamsuite/zamsuite-auth/internal/platform/httpx"
	"github.com/zamsuite/zamsuite-auth/internal/rbac"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Handler serves the statistics endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cache   *Cache
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, cache *Cache, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, cache: cache, rbac: rbacMW}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewDashboard))
		r.Get("/dashboard/statistics", h.statistics)
	})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, "authentication required")
		return
	}
	ctx := r.Context()

	key, err := h.cache.BuildKey(ctx, keyStatistics(userID)...)
	if err != nil {
		h.fail(w, userID, err)
		return
	}
	var dash Dashboard
	err = h.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (interface{}, error) {
		return h.service.BuildDashboard(ctx, userID)
	})
	if err != nil {
		h.fail(w, userID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) fail(w http.ResponseWriter, userID int64, err error) {
	h.logger.Error("dashboard aggregation failed",
		slog.Int64("user_id", userID), slog.Any("error", err))
	httpx.JSON(w, http.StatusInternalServerError, httpx.ErrorBody{
		Error:   "dashboard_failed",
		Message: "unable to build dashboard statistics",
	})
}
