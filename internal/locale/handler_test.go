package locale_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/zamsuite/zamsuite-auth/internal/locale"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

type stubStore struct {
	saved map[int64]string
	err   error
}

func (s *stubStore) SetLanguage(_ context.Context, userID int64, lang string) error {
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = make(map[int64]string)
	}
	s.saved[userID] = lang
	return nil
}

func TestMatch(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"en", "en", true},
		{"bem", "bem", true},
		{"nya", "nya", true},
		{"toi", "toi", true},
		{"en-GB", "en", true},
		{"fr", "", false},
		{"sw", "", false},
		{"not a tag", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := locale.Match(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Match(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func post(t *testing.T, store *stubStore, body string, userID string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodPost, "/language", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if userID != "" {
		sess.SetUser(userID)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	handler := locale.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res, sess
}

func TestSetLanguageStoresInSession(t *testing.T) {
	store := &stubStore{}
	res, sess := post(t, store, `{"language":"nya"}`, "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.Get("language") != "nya" {
		t.Fatalf("expected session language nya, got %q", sess.Get("language"))
	}
	if len(store.saved) != 0 {
		t.Fatalf("anonymous request must not touch the user row")
	}
}

func TestSetLanguagePersistsForAuthenticatedUser(t *testing.T) {
	store := &stubStore{}
	res, _ := post(t, store, `{"language":"toi"}`, "42")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if store.saved[42] != "toi" {
		t.Fatalf("expected user row update, got %v", store.saved)
	}
}

func TestSetLanguageRejectsUnsupported(t *testing.T) {
	res, _ := post(t, &stubStore{}, `{"language":"fr"}`, "")
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}
