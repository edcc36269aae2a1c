package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Statistics carries the per-user rollup exposed by project-service.
type Statistics struct {
	ProjectStatus  map[string]int64 `json:"project_status"`
	TaskCompletion map[string]int64 `json:"task_completion"`
}

// Project is one active project row from project-service.
type Project struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Deadline string  `json:"deadline"`
}

// Client wraps interactions with the project-service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetProjectStatistics fetches the status and completion rollup for a user.
func (c *Client) GetProjectStatistics(ctx context.Context, userID int64) (Statistics, error) {
	var stats Statistics
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/users/%d/project-statistics", c.baseURL, userID), &stats)
	return stats, err
}

// GetActiveProjects fetches the in-flight projects a user belongs to.
func (c *Client) GetActiveProjects(ctx context.Context, userID int64) ([]Project, error) {
	var out struct {
		Data []Project `json:"data"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/users/%d/active-projects", c.baseURL, userID), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("project-service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
