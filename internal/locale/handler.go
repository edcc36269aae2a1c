// Package locale handles the preferred-language endpoint. The platform
// ships English plus the three most widely spoken Zambian languages.
package locale

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/zamsuite/zamsuite-auth/internal/platform/httpx"
	"github.com/zamsuite/zamsuite-auth/internal/rbac"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Supported lists the locales the platform accepts, English first as the
// matcher fallback.
var Supported = []language.Tag{
	language.English,          // en
	language.MustParse("bem"), // Bemba
	language.MustParse("nya"), // Nyanja
	language.MustParse("toi"), // Tonga
}

var matcher = language.NewMatcher(Supported)

// Store persists the preference on the user row.
type Store interface {
	SetLanguage(ctx context.Context, userID int64, language string) error
}

// Handler serves POST /language.
type Handler struct {
	logger *slog.Logger
	store  Store
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers the language route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/language", h.setLanguage)
}

type languageRequest struct {
	Language string `json:"language"`
}

// Match resolves an arbitrary tag against the supported set, returning the
// canonical code and whether it matched exactly.
func Match(code string) (string, bool) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	_, index, confidence := matcher.Match(tag)
	if confidence < language.High {
		return "", false
	}
	matched := Supported[index]
	base, _ := matched.Base()
	return base.String(), true
}

func (h *Handler) setLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ValidationBody{Message: "invalid payload", Errors: map[string]string{}})
		return
	}
	code, ok := Match(req.Language)
	if !ok {
		httpx.JSON(w, http.StatusUnprocessableEntity, httpx.ValidationBody{
			Message: "validation failed",
			Errors:  map[string]string{"language": "oneof"},
		})
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.Set("language", code)
	}
	if userID, authed := rbac.CurrentUserID(r); authed {
		if err := h.store.SetLanguage(r.Context(), userID, code); err != nil {
			h.logger.Error("persist language", slog.Int64("user_id", userID), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "language updated", "language": code})
}
