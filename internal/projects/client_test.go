package projects

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/zamsuite/zamsuite-auth/testing"
)

func TestGetProjectStatistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/7/project-statistics", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"project_status":{"active":2},"task_completion":{"completed":14}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	stats, err := client.GetProjectStatistics(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.ProjectStatus["active"])
	require.Equal(t, int64(14), stats.TaskCompletion["completed"])
}

func TestGetActiveProjectsUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/7/active-projects", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Atlas","status":"active","progress":55.5,"deadline":"2026-09-30"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	list, err := client.GetActiveProjects(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Atlas", list[0].Name)
	require.Equal(t, 55.5, list[0].Progress)
}

func TestErrorStatusSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.GetProjectStatistics(context.Background(), 1)
	require.ErrorContains(t, err, "502")
}
