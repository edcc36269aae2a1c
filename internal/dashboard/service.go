package dashboard

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zamsuite/zamsuite-auth/internal/projects"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

const (
	activityMonths  = 7
	recentUserLimit = 10
	teamMemberLimit = 10
	matrixPermLimit = 5
	matrixUserLimit = 5
	taskLimit       = 5
)

// Authorizer is the gate consulted once per dashboard section.
type Authorizer interface {
	Allows(ctx context.Context, userID int64, permission string) (bool, error)
}

// ProjectSource is the slice of the project-service client the aggregator
// consumes.
type ProjectSource interface {
	GetProjectStatistics(ctx context.Context, userID int64) (projects.Statistics, error)
	GetActiveProjects(ctx context.Context, userID int64) ([]projects.Project, error)
}

// Service assembles the role-segmented dashboard payload.
type Service struct {
	repo     Repository
	gate     Authorizer
	projects ProjectSource
	logger   *slog.Logger
	now      func() time.Time

	// rng feeds the synthetic task fields. The sections of one build run in
	// parallel and a single Service serves every request, so draws go
	// through rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService builds the aggregator.
func NewService(repo Repository, gate Authorizer, projectSource ProjectSource, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		gate:     gate,
		projects: projectSource,
		logger:   logger,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BuildDashboard assembles all four sections for the requesting user. A
// section the user cannot see comes back as its zero value; the key is never
// dropped.
func (s *Service) BuildDashboard(ctx context.Context, userID int64) (Dashboard, error) {
	dash := Dashboard{
		Admin:    EmptyAdminSection(),
		Manager:  EmptyManagerSection(),
		User:     EmptyUserSection(),
		Customer: EmptyCustomerSection(),
	}

	canViewUsers, err := s.gate.Allows(ctx, userID, shared.PermViewUsers)
	if err != nil {
		return dash, err
	}
	canViewRoles, err := s.gate.Allows(ctx, userID, shared.PermViewRoles)
	if err != nil {
		return dash, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if canViewUsers {
		g.Go(func() error {
			admin, err := s.buildAdminSection(gctx, canViewRoles)
			if err != nil {
				return err
			}
			dash.Admin = admin
			return nil
		})
		g.Go(func() error {
			manager, err := s.buildManagerSection(gctx, userID)
			if err != nil {
				return err
			}
			dash.Manager = manager
			return nil
		})
		g.Go(func() error {
			customer, err := s.buildCustomerSection(gctx)
			if err != nil {
				return err
			}
			dash.Customer = customer
			return nil
		})
	}
	g.Go(func() error {
		user, err := s.buildUserSection(gctx)
		if err != nil {
			return err
		}
		dash.User = user
		return nil
	})
	if err := g.Wait(); err != nil {
		return dash, err
	}
	return dash, nil
}

func (s *Service) buildAdminSection(ctx context.Context, includeRoles bool) (AdminSection, error) {
	section := EmptyAdminSection()
	now := s.now()

	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return section, err
	}
	active, err := s.repo.CountUsersUpdatedBetween(ctx, now.AddDate(0, 0, -7), now)
	if err != nil {
		return section, err
	}
	prevActive, err := s.repo.CountUsersUpdatedBetween(ctx, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))
	if err != nil {
		return section, err
	}
	newUsers, err := s.repo.CountUsersCreatedBetween(ctx, now.AddDate(0, 0, -30), now)
	if err != nil {
		return section, err
	}
	prevNew, err := s.repo.CountUsersCreatedBetween(ctx, now.AddDate(0, 0, -60), now.AddDate(0, 0, -30))
	if err != nil {
		return section, err
	}
	section.Summary = Summary{
		TotalUsers:     total,
		ActiveUsers:    active,
		NewUsers:       newUsers,
		UserGrowth:     shared.PercentChange(newUsers, prevNew),
		ActivityChange: shared.PercentChange(active, prevActive),
	}

	activity, err := s.buildActivity(ctx, now)
	if err != nil {
		return section, err
	}
	section.Activity = activity

	recent, err := s.repo.RecentUsers(ctx, recentUserLimit)
	if err != nil {
		return section, err
	}
	for i := range recent {
		// users with no role yet are shown under the display label "User"
		if recent[i].Role == "" {
			recent[i].Role = "User"
		}
	}
	if recent != nil {
		section.RecentUsers = recent
	}

	if includeRoles {
		distribution, err := s.buildRoleDistribution(ctx, total)
		if err != nil {
			return section, err
		}
		section.RoleDistribution = distribution

		matrix, err := s.buildRoleMatrix(ctx)
		if err != nil {
			return section, err
		}
		section.RoleMatrix = matrix
	}
	return section, nil
}

// buildActivity walks the trailing seven calendar months oldest to newest.
// Buckets are keyed by (year, month) so December and January of different
// years never collide.
func (s *Service) buildActivity(ctx context.Context, now time.Time) ([]MonthActivity, error) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(activityMonths - 1), 0)

	rows, err := s.repo.ListUserTimestamps(ctx, first)
	if err != nil {
		return nil, err
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	index := make(map[monthKey]int, activityMonths)
	series := make([]MonthActivity, activityMonths)
	for i := 0; i < activityMonths; i++ {
		month := first.AddDate(0, i, 0)
		index[monthKey{month.Year(), month.Month()}] = i
		series[i] = MonthActivity{Month: month.Format("Jan 2006")}
	}

	for _, row := range rows {
		if i, ok := index[monthKey{row.UpdatedAt.Year(), row.UpdatedAt.Month()}]; ok {
			series[i].Users++
		}
		if i, ok := index[monthKey{row.CreatedAt.Year(), row.CreatedAt.Month()}]; ok {
			series[i].NewUsers++
		}
	}
	return series, nil
}

func (s *Service) buildRoleDistribution(ctx context.Context, totalUsers int64) ([]RoleShare, error) {
	counts, err := s.repo.RoleCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleShare, 0, len(counts))
	for _, rc := range counts {
		out = append(out, RoleShare{
			Name:       rc.Name,
			UserCount:  rc.Count,
			Percentage: shared.Share(rc.Count, totalUsers),
		})
	}
	return out, nil
}

func (s *Service) buildRoleMatrix(ctx context.Context) ([]RoleMatrixEntry, error) {
	rows, err := s.repo.RolePermissionRows(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.RecentRoleMembers(ctx, matrixUserLimit)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]*RoleMatrixEntry)
	var order []string
	entry := func(role string) *RoleMatrixEntry {
		if e, ok := entries[role]; ok {
			return e
		}
		e := &RoleMatrixEntry{
			Role:              role,
			PermissionGroups:  map[string][]string{},
			CommonPermissions: []string{},
			RecentMembers:     []string{},
		}
		entries[role] = e
		order = append(order, role)
		return e
	}

	for _, row := range rows {
		e := entry(row.RoleName)
		category := row.Category
		if category == "" {
			category = "general"
		}
		e.PermissionGroups[category] = append(e.PermissionGroups[category], row.Permission)
		if len(e.CommonPermissions) < matrixPermLimit {
			e.CommonPermissions = append(e.CommonPermissions, row.Permission)
		}
	}
	for _, m := range members {
		e := entry(m.RoleName)
		if len(e.RecentMembers) < matrixUserLimit {
			e.RecentMembers = append(e.RecentMembers, m.UserName)
		}
	}

	sort.Strings(order)
	out := make([]RoleMatrixEntry, 0, len(order))
	for _, role := range order {
		out = append(out, *entries[role])
	}
	return out, nil
}

func (s *Service) buildManagerSection(ctx context.Context, userID int64) (ManagerSection, error) {
	section := EmptyManagerSection()
	now := s.now()

	members, err := s.repo.RoleMembers(ctx, shared.RoleUser, teamMemberLimit)
	if err != nil {
		return section, err
	}
	cutoff := now.AddDate(0, 0, -7)
	for _, m := range members {
		status := "Inactive"
		if !m.UpdatedAt.Before(cutoff) {
			status = "Active"
		}
		section.TeamMembers = append(section.TeamMembers, TeamMember{
			Name:   m.Name,
			Email:  m.Email,
			Status: status,
		})
	}

	// project-service going dark must never break the dashboard; swap in the
	// sample data instead.
	stats, err := s.projects.GetProjectStatistics(ctx, userID)
	if err != nil {
		s.logger.Warn("project statistics unavailable, using fallback",
			slog.Int64("user_id", userID), slog.Any("error", err))
		stats = fallbackProjectStatistics()
	}
	section.ProjectStatistics = stats

	active, err := s.projects.GetActiveProjects(ctx, userID)
	if err != nil {
		s.logger.Warn("active projects unavailable, using fallback",
			slog.Int64("user_id", userID), slog.Any("error", err))
		active = fallbackActiveProjects(now)
	}
	if active != nil {
		section.ActiveProjects = active
	}
	return section, nil
}

func (s *Service) buildUserSection(ctx context.Context) (UserSection, error) {
	section := EmptyUserSection()
	perms, err := s.repo.FirstPermissions(ctx, taskLimit)
	if err != nil {
		return section, err
	}
	projectNames := []string{"Atlas", "Horizon", "Beacon", "Lighthouse", "Summit"}
	statuses := []string{"pending", "in_progress", "completed"}
	priorities := []string{"low", "medium", "high"}
	now := s.now()
	for _, p := range perms {
		s.rngMu.Lock()
		project := projectNames[s.rng.Intn(len(projectNames))]
		deadlineDays := 1 + s.rng.Intn(14)
		status := statuses[s.rng.Intn(len(statuses))]
		priority := priorities[s.rng.Intn(len(priorities))]
		s.rngMu.Unlock()
		section.Tasks = append(section.Tasks, Task{
			Title:    taskTitle(p.Name),
			Project:  project,
			Deadline: now.AddDate(0, 0, deadlineDays).Format("2006-01-02"),
			Status:   status,
			Priority: priority,
		})
	}
	return section, nil
}

func (s *Service) buildCustomerSection(ctx context.Context) (CustomerSection, error) {
	section := EmptyCustomerSection()
	now := s.now()

	total, err := s.repo.CountUsersWithRole(ctx, shared.RoleCustomer)
	if err != nil {
		return section, err
	}
	newCustomers, err := s.repo.CountUsersWithRoleCreatedBetween(ctx, shared.RoleCustomer, now.AddDate(0, 0, -30), now)
	if err != nil {
		return section, err
	}
	prev, err := s.repo.CountUsersWithRoleCreatedBetween(ctx, shared.RoleCustomer, now.AddDate(0, 0, -60), now.AddDate(0, 0, -30))
	if err != nil {
		return section, err
	}

	section.TotalCustomers = total
	section.NewCustomers = newCustomers
	section.CustomerGrowth = shared.PercentChange(newCustomers, prev)
	// mock data until billing and support are wired up as real services
	section.Services = []CustomerService{
		{Name: "Authentication", Status: "operational"},
		{Name: "Billing", Status: "operational"},
		{Name: "Notifications", Status: "degraded"},
	}
	section.PendingIntegrations = 2
	section.OpenTickets = 4
	section.UnpaidInvoices = 3
	return section, nil
}

// taskTitle turns a permission name like export_sales_reports into a
// readable task label.
func taskTitle(permission string) string {
	words := strings.Split(permission, "_")
	if len(words) > 0 && words[0] != "" {
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	}
	return strings.Join(words, " ")
}

func fallbackProjectStatistics() projects.Statistics {
	return projects.Statistics{
		ProjectStatus: map[string]int64{
			"active":    3,
			"completed": 12,
			"on_hold":   1,
		},
		TaskCompletion: map[string]int64{
			"completed":   48,
			"in_progress": 9,
			"overdue":     2,
		},
	}
}

func fallbackActiveProjects(now time.Time) []projects.Project {
	return []projects.Project{
		{ID: 1, Name: "Website Redesign", Status: "In Progress", Progress: 65, Deadline: now.AddDate(0, 0, 14).Format("2006-01-02")},
		{ID: 2, Name: "Mobile App", Status: "In Progress", Progress: 40, Deadline: now.AddDate(0, 0, 30).Format("2006-01-02")},
		{ID: 3, Name: "Data Migration", Status: "Planning", Progress: 10, Deadline: now.AddDate(0, 0, 45).Format("2006-01-02")},
	}
}
