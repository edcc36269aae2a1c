package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/zamsuite/zamsuite-auth/internal/platform/httpx"
	"github.com/zamsuite/zamsuite-auth/internal/rbac"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

const (
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler serves the audit timeline endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers the timeline listing and the rate-limited CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Message(w, http.StatusTooManyRequests, "too many export requests")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewUsers))
		r.Get("/api/audit-logs", h.timeline)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/api/audit-logs/export.csv", h.exportCSV)
		})
	})
}

// rateLimitKey buckets export traffic per logged-in user, falling back to IP.
func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

type entryResponse struct {
	At       time.Time      `json:"occurred_at"`
	ActorID  int64          `json:"actor_id"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Timeline(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	data := make([]entryResponse, 0, len(result.Rows))
	for _, row := range result.Rows {
		data = append(data, entryResponse{
			At:       row.At,
			ActorID:  row.ActorID,
			Actor:    row.ActorName,
			Action:   row.Action,
			Entity:   row.Entity,
			EntityID: row.EntityID,
			Meta:     row.Meta,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": data,
		"meta": map[string]any{
			"page":      result.Paging.Page,
			"per_page":  result.Paging.PageSize,
			"has_next":  result.Paging.HasNext,
			"prev_page": result.Paging.PrevPage,
			"next_page": result.Paging.NextPage,
		},
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.ExportCSV(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func filtersFromQuery(r *http.Request) Filters {
	q := r.URL.Query()
	filters := Filters{
		Actor:  q.Get("actor"),
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.From = t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			// inclusive end of day
			filters.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = page
	}
	if size, err := strconv.Atoi(q.Get("per_page")); err == nil {
		filters.PageSize = size
	}
	return filters
}
