package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zamsuite/zamsuite-auth/internal/dashboard"
	jobmetrics "github.com/zamsuite/zamsuite-auth/internal/jobs"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardWarmupJob pre-populates dashboard caches so admins hit warm
// statistics after an invalidation.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Cache     *dashboard.Cache
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(dashboardSvc *dashboard.Service, cache *dashboard.Cache, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Dashboard: dashboardSvc,
		Cache:     cache,
		Pool:      pool,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting dashboard warmup")

	userIDs := payload.UserIDs
	if len(userIDs) == 0 {
		ids, err := j.fetchDashboardUsers(ctx)
		if err != nil {
			resultErr = err
			logger.Error("load warmup users", slog.Any("error", err))
			return resultErr
		}
		userIDs = ids
	}
	if len(userIDs) == 0 {
		logger.Info("no users discovered for warmup")
		return resultErr
	}

	start := j.now()
	warmed := 0
	for _, userID := range userIDs {
		if err := j.warmUser(ctx, userID); err != nil {
			resultErr = err
			logger.Error("warm dashboard", slog.Int64("user_id", userID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed dashboard warmup", slog.Int("users", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DashboardWarmupJob) warmUser(ctx context.Context, userID int64) error {
	if j.Dashboard == nil {
		return nil
	}
	// Bound each user so one slow aggregation cannot stall the whole run.
	userCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return dashboard.WarmStatistics(userCtx, j.Cache, j.Dashboard, userID)
}

// fetchDashboardUsers returns every user who can open the dashboard, i.e.
// holds view_dashboard via a role or directly.
func (j *DashboardWarmupJob) fetchDashboardUsers(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("dashboard warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT u.id
		FROM users u
		LEFT JOIN role_user ru ON ru.user_id = u.id
		LEFT JOIN permission_role pr ON pr.role_id = ru.role_id
		LEFT JOIN permissions p ON p.id = pr.permission_id
		LEFT JOIN permission_user pu ON pu.user_id = u.id
		LEFT JOIN permissions dp ON dp.id = pu.permission_id
		WHERE p.name = $1 OR dp.name = $1
		ORDER BY u.id`, shared.PermViewDashboard)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
