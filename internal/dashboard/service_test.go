package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zamsuite/zamsuite-auth/internal/projects"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

type mockRepo struct {
	totalUsers     int64
	createdWindows map[string]int64
	updatedWindows map[string]int64
	timestamps     []UserTimestamps
	roleCounts     []RoleCount
	recentUsers    []RecentUser
	rolePerms      []RolePermissionRow
	roleMembers    []RoleMemberRow
	teamMembers    []MemberActivity
	customerCount  int64
	customerMade   map[string]int64
	permissions    []PermissionRow
}

func windowKey(from, to time.Time) string {
	return from.Format("2006-01-02") + "/" + to.Format("2006-01-02")
}

func (m *mockRepo) CountUsers(context.Context) (int64, error) { return m.totalUsers, nil }

func (m *mockRepo) CountUsersCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	return m.createdWindows[windowKey(from, to)], nil
}

func (m *mockRepo) CountUsersUpdatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	return m.updatedWindows[windowKey(from, to)], nil
}

func (m *mockRepo) ListUserTimestamps(context.Context, time.Time) ([]UserTimestamps, error) {
	return m.timestamps, nil
}

func (m *mockRepo) RoleCounts(context.Context) ([]RoleCount, error) { return m.roleCounts, nil }

func (m *mockRepo) RecentUsers(context.Context, int) ([]RecentUser, error) {
	return m.recentUsers, nil
}

func (m *mockRepo) RolePermissionRows(context.Context) ([]RolePermissionRow, error) {
	return m.rolePerms, nil
}

func (m *mockRepo) RecentRoleMembers(context.Context, int) ([]RoleMemberRow, error) {
	return m.roleMembers, nil
}

func (m *mockRepo) RoleMembers(context.Context, string, int) ([]MemberActivity, error) {
	return m.teamMembers, nil
}

func (m *mockRepo) CountUsersWithRole(context.Context, string) (int64, error) {
	return m.customerCount, nil
}

func (m *mockRepo) CountUsersWithRoleCreatedBetween(_ context.Context, _ string, from, to time.Time) (int64, error) {
	return m.customerMade[windowKey(from, to)], nil
}

func (m *mockRepo) FirstPermissions(context.Context, int) ([]PermissionRow, error) {
	return m.permissions, nil
}

type mockGate struct {
	granted map[string]bool
}

func (g *mockGate) Allows(_ context.Context, _ int64, permission string) (bool, error) {
	return g.granted[permission], nil
}

type mockProjects struct {
	stats    projects.Statistics
	active   []projects.Project
	statsErr error
	listErr  error
}

func (p *mockProjects) GetProjectStatistics(context.Context, int64) (projects.Statistics, error) {
	return p.stats, p.statsErr
}

func (p *mockProjects) GetActiveProjects(context.Context, int64) ([]projects.Project, error) {
	return p.active, p.listErr
}

func newTestService(repo *mockRepo, gate *mockGate, src *mockProjects, now time.Time) *Service {
	svc := NewService(repo, gate, src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }
	svc.rng = rand.New(rand.NewSource(1))
	return svc
}

func allPerms() *mockGate {
	return &mockGate{granted: map[string]bool{
		shared.PermViewUsers: true,
		shared.PermViewRoles: true,
	}}
}

func TestEmptyStateWithoutPermissions(t *testing.T) {
	repo := &mockRepo{totalUsers: 42}
	svc := newTestService(repo, &mockGate{granted: map[string]bool{}}, &mockProjects{}, time.Now())

	dash, err := svc.BuildDashboard(context.Background(), 7)
	require.NoError(t, err)

	require.Equal(t, int64(0), dash.Admin.Summary.TotalUsers)
	require.NotNil(t, dash.Admin.Activity)
	require.Empty(t, dash.Admin.Activity)
	require.NotNil(t, dash.Admin.RoleDistribution)
	require.NotNil(t, dash.Admin.RecentUsers)
	require.NotNil(t, dash.Admin.RoleMatrix)

	// every top-level key must survive encoding even when empty
	raw, err := json.Marshal(dash)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"admin", "manager", "user", "customer"} {
		require.Contains(t, decoded, key)
	}
}

func TestPercentChangeFloorOnEmptyPreviousWindow(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		totalUsers: 10,
		createdWindows: map[string]int64{
			windowKey(now.AddDate(0, 0, -30), now): 5,
			// previous 30-day window intentionally absent, count 0
		},
		updatedWindows: map[string]int64{
			windowKey(now.AddDate(0, 0, -7), now): 3,
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, float64(0), dash.Admin.Summary.UserGrowth)
	require.Equal(t, float64(0), dash.Admin.Summary.ActivityChange)
	require.Equal(t, int64(5), dash.Admin.Summary.NewUsers)
	require.Equal(t, int64(3), dash.Admin.Summary.ActiveUsers)
}

func TestPercentChangeAgainstPreviousWindow(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		totalUsers: 20,
		createdWindows: map[string]int64{
			windowKey(now.AddDate(0, 0, -30), now):                     6,
			windowKey(now.AddDate(0, 0, -60), now.AddDate(0, 0, -30)): 4,
		},
		updatedWindows: map[string]int64{
			windowKey(now.AddDate(0, 0, -7), now):                     2,
			windowKey(now.AddDate(0, 0, -14), now.AddDate(0, 0, -7)): 8,
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, float64(50), dash.Admin.Summary.UserGrowth)
	require.Equal(t, float64(-75), dash.Admin.Summary.ActivityChange)
}

func TestSevenMonthActivityBucketing(t *testing.T) {
	now := time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC)
	mk := func(year int, month time.Month) time.Time {
		return time.Date(year, month, 10, 0, 0, 0, 0, time.UTC)
	}
	repo := &mockRepo{
		timestamps: []UserTimestamps{
			{CreatedAt: mk(2026, time.February), UpdatedAt: mk(2026, time.August)},
			{CreatedAt: mk(2026, time.February), UpdatedAt: mk(2026, time.February)},
			{CreatedAt: mk(2026, time.June), UpdatedAt: mk(2026, time.July)},
			// outside the window, must be ignored
			{CreatedAt: mk(2025, time.December), UpdatedAt: mk(2026, time.January)},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	activity := dash.Admin.Activity
	require.Len(t, activity, 7)
	labels := make([]string, 0, 7)
	for _, a := range activity {
		labels = append(labels, a.Month)
	}
	require.Equal(t, []string{
		"Feb 2026", "Mar 2026", "Apr 2026", "May 2026",
		"Jun 2026", "Jul 2026", "Aug 2026",
	}, labels)

	require.Equal(t, int64(2), activity[0].NewUsers) // February signups
	require.Equal(t, int64(1), activity[0].Users)    // February updates
	require.Equal(t, int64(0), activity[1].NewUsers) // March is zero-filled
	require.Equal(t, int64(0), activity[1].Users)
	require.Equal(t, int64(1), activity[4].NewUsers) // June
	require.Equal(t, int64(1), activity[5].Users)    // July
	require.Equal(t, int64(1), activity[6].Users)    // August
}

func TestActivityBucketingAcrossYearBoundary(t *testing.T) {
	now := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		timestamps: []UserTimestamps{
			{
				CreatedAt: time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC),
				UpdatedAt: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	activity := dash.Admin.Activity
	require.Len(t, activity, 7)
	require.Equal(t, "Jul 2025", activity[0].Month)
	require.Equal(t, "Jan 2026", activity[6].Month)
	require.Equal(t, int64(1), activity[5].NewUsers) // Dec 2025
	require.Equal(t, int64(1), activity[6].Users)    // Jan 2026
}

func TestRoleDistributionShares(t *testing.T) {
	now := time.Now()
	repo := &mockRepo{
		totalUsers: 8,
		roleCounts: []RoleCount{
			{Name: "admin", Count: 1},
			{Name: "user", Count: 3},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, []RoleShare{
		{Name: "admin", UserCount: 1, Percentage: 12.5},
		{Name: "user", UserCount: 3, Percentage: 37.5},
	}, dash.Admin.RoleDistribution)
}

func TestProjectServiceFallback(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	src := &mockProjects{
		statsErr: errors.New("connection refused"),
		listErr:  errors.New("connection refused"),
	}
	svc := newTestService(&mockRepo{}, allPerms(), src, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	manager := dash.Manager
	require.NotEmpty(t, manager.ProjectStatistics.ProjectStatus)
	require.NotEmpty(t, manager.ProjectStatistics.TaskCompletion)
	require.NotEmpty(t, manager.ActiveProjects)
}

func TestProjectServicePassThrough(t *testing.T) {
	src := &mockProjects{
		stats: projects.Statistics{
			ProjectStatus:  map[string]int64{"active": 1},
			TaskCompletion: map[string]int64{"completed": 2},
		},
		active: []projects.Project{{ID: 9, Name: "Ledger Revamp", Status: "In Progress", Progress: 80}},
	}
	svc := newTestService(&mockRepo{}, allPerms(), src, time.Now())

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, src.stats, dash.Manager.ProjectStatistics)
	require.Equal(t, src.active, dash.Manager.ActiveProjects)
}

func TestTeamMemberActivityTag(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		teamMembers: []MemberActivity{
			{Name: "Chanda", Email: "chanda@example.com", UpdatedAt: now.AddDate(0, 0, -2)},
			{Name: "Mutale", Email: "mutale@example.com", UpdatedAt: now.AddDate(0, 0, -20)},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, "Active", dash.Manager.TeamMembers[0].Status)
	require.Equal(t, "Inactive", dash.Manager.TeamMembers[1].Status)
}

func TestSyntheticTasksFromPermissions(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		permissions: []PermissionRow{
			{Name: "view_users", Category: "users"},
			{Name: "create_roles", Category: "roles"},
			{Name: "export_reports", Category: "reports"},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	tasks := dash.User.Tasks
	require.Len(t, tasks, 3)
	require.Equal(t, "View users", tasks[0].Title)
	for _, task := range tasks {
		deadline, err := time.Parse("2006-01-02", task.Deadline)
		require.NoError(t, err)
		days := deadline.Sub(now) / (24 * time.Hour)
		require.GreaterOrEqual(t, int(days), 1)
		require.LessOrEqual(t, int(days), 14)
		require.Contains(t, []string{"pending", "in_progress", "completed"}, task.Status)
		require.Contains(t, []string{"low", "medium", "high"}, task.Priority)
		require.NotEmpty(t, task.Project)
	}
}

func TestRoleMatrixGroupsAndLimits(t *testing.T) {
	repo := &mockRepo{
		rolePerms: []RolePermissionRow{
			{RoleName: "editor", Permission: "edit_posts", Category: "posts"},
			{RoleName: "editor", Permission: "view_posts", Category: "posts"},
			{RoleName: "editor", Permission: "view_media", Category: "media"},
			{RoleName: "editor", Permission: "edit_media", Category: "media"},
			{RoleName: "editor", Permission: "publish_posts", Category: "posts"},
			{RoleName: "editor", Permission: "delete_posts", Category: "posts"},
		},
		roleMembers: []RoleMemberRow{
			{RoleName: "editor", UserName: "Bwalya"},
			{RoleName: "editor", UserName: "Thandiwe"},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, time.Now())

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, dash.Admin.RoleMatrix, 1)
	entry := dash.Admin.RoleMatrix[0]
	require.Equal(t, "editor", entry.Role)
	require.Len(t, entry.CommonPermissions, 5)
	require.ElementsMatch(t, []string{"edit_posts", "view_posts", "publish_posts", "delete_posts"}, entry.PermissionGroups["posts"])
	require.ElementsMatch(t, []string{"view_media", "edit_media"}, entry.PermissionGroups["media"])
	require.Equal(t, []string{"Bwalya", "Thandiwe"}, entry.RecentMembers)
}

func TestCustomerSectionCountsAndGrowth(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		customerCount: 12,
		customerMade: map[string]int64{
			windowKey(now.AddDate(0, 0, -30), now):                     6,
			windowKey(now.AddDate(0, 0, -60), now.AddDate(0, 0, -30)): 4,
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, int64(12), dash.Customer.TotalCustomers)
	require.Equal(t, int64(6), dash.Customer.NewCustomers)
	require.Equal(t, float64(50), dash.Customer.CustomerGrowth)
	require.NotEmpty(t, dash.Customer.Services)
}

func TestRecentUsersRoleFallback(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		recentUsers: []RecentUser{
			{Name: "Bwalya", Email: "bwalya@example.com", JoinedAt: now, Role: "admin"},
			{Name: "Chileshe", Email: "chileshe@example.com", JoinedAt: now, Role: ""},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	dash, err := svc.BuildDashboard(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, "admin", dash.Admin.RecentUsers[0].Role)
	require.Equal(t, "User", dash.Admin.RecentUsers[1].Role)
}

func TestBuildDashboardConcurrently(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		totalUsers: 10,
		permissions: []PermissionRow{
			{Name: "view_users"}, {Name: "view_roles"}, {Name: "edit_users"},
			{Name: "view_dashboard"}, {Name: "manage_services"},
		},
	}
	svc := newTestService(repo, allPerms(), &mockProjects{}, now)

	const builds = 8
	var wg sync.WaitGroup
	errs := make([]error, builds)
	tasks := make([]int, builds)
	for i := 0; i < builds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dash, err := svc.BuildDashboard(context.Background(), 1)
			errs[i] = err
			tasks[i] = len(dash.User.Tasks)
		}(i)
	}
	wg.Wait()

	for i := 0; i < builds; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, 5, tasks[i])
	}
}
