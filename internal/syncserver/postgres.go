package syncserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/migration"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/migrations"
)

// foreignKeyViolation is the PostgreSQL SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

// PGRepository stores plans in PostgreSQL through a pgx pool.
type PGRepository struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and brings the schema up to date.
func OpenPostgres(ctx context.Context, databaseURL string) (*PGRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "tripkit-sync"
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGRepository{pool: pool}, nil
}

func migrate(pool *pgxpool.Pool) error {
	subFS, err := migrations.Postgres()
	if err != nil {
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	runner := migration.NewRunnerWithDialect(db, subFS, migration.Postgres)
	if _, err := runner.ApplyMigrations(func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *PGRepository) Close() {
	r.pool.Close()
}

func (r *PGRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const planColumns = `id, user_id, title, destination, start_date, end_date, budget, travelers,
	preferences, itinerary, expenses, created_at, updated_at`

func (r *PGRepository) ListPlans(ctx context.Context, userID string) ([]models.TravelPlan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+planColumns+` FROM travel_plans WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []models.TravelPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *PGRepository) GetPlan(ctx context.Context, id string) (*models.TravelPlan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func scanPlan(row pgx.Row) (models.TravelPlan, error) {
	var (
		plan                       models.TravelPlan
		prefs, itinerary, expenses []byte
		createdAt, updatedAt       time.Time
	)
	err := row.Scan(&plan.ID, &plan.UserID, &plan.Title, &plan.Destination, &plan.StartDate, &plan.EndDate,
		&plan.Budget, &plan.Travelers, &prefs, &itinerary, &expenses, &createdAt, &updatedAt)
	if err != nil {
		return plan, err
	}
	if err := json.Unmarshal(prefs, &plan.Preferences); err != nil {
		logger.Warn("Unreadable preferences column", "id", plan.ID, "error", err)
	}
	if err := json.Unmarshal(itinerary, &plan.Itinerary); err != nil {
		logger.Warn("Unreadable itinerary column", "id", plan.ID, "error", err)
	}
	if err := json.Unmarshal(expenses, &plan.Expenses); err != nil {
		logger.Warn("Unreadable expenses column", "id", plan.ID, "error", err)
	}
	plan.CreatedAt = models.FormatTimestamp(createdAt)
	plan.UpdatedAt = models.FormatTimestamp(updatedAt)
	plan.Normalize()
	return plan, nil
}

// timestampArg converts a stored timestamp for a timestamptz column.
// Unparseable values become NULL so the column default applies.
func timestampArg(s string) interface{} {
	if t, ok := models.ParseTimestamp(s); ok {
		return t
	}
	return nil
}

func (r *PGRepository) UpsertPlan(ctx context.Context, plan models.TravelPlan) error {
	plan.Normalize()
	prefs, _ := json.Marshal(plan.Preferences)
	itinerary, _ := json.Marshal(plan.Itinerary)
	expenses, _ := json.Marshal(plan.Expenses)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO travel_plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()), COALESCE($13, now()))
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			destination = EXCLUDED.destination,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			budget = EXCLUDED.budget,
			travelers = EXCLUDED.travelers,
			preferences = EXCLUDED.preferences,
			itinerary = EXCLUDED.itinerary,
			expenses = EXCLUDED.expenses,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`,
		plan.ID, plan.UserID, plan.Title, plan.Destination, plan.StartDate, plan.EndDate,
		plan.Budget, plan.Travelers, string(prefs), string(itinerary), string(expenses),
		timestampArg(plan.CreatedAt), timestampArg(plan.UpdatedAt))
	return err
}

func (r *PGRepository) PatchPlan(ctx context.Context, id string, set []Assignment) error {
	if len(set) == 0 {
		return nil
	}
	query, args := updateQuery("travel_plans", id, set)
	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

func (r *PGRepository) DeletePlan(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM travel_plans WHERE id = $1`, id)
	return err
}

func (r *PGRepository) ListExpenses(ctx context.Context, planID string) ([]models.Expense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, travel_plan_id, category, amount, description, date, location
		FROM expenses WHERE travel_plan_id = $1 ORDER BY date, id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Expense{}
	for rows.Next() {
		var (
			e        models.Expense
			category string
			location []byte
		)
		if err := rows.Scan(&e.ID, &e.TravelPlanID, &category, &e.Amount, &e.Description, &e.Date, &location); err != nil {
			return nil, err
		}
		e.Category = models.ExpenseCategory(category)
		if len(location) > 0 {
			var loc models.Location
			if err := json.Unmarshal(location, &loc); err == nil {
				e.Location = &loc
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepository) UpsertExpense(ctx context.Context, e models.Expense) error {
	var location interface{}
	if e.Location != nil {
		raw, _ := json.Marshal(e.Location)
		location = string(raw)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO expenses (id, travel_plan_id, category, amount, description, date, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			travel_plan_id = EXCLUDED.travel_plan_id,
			category = EXCLUDED.category,
			amount = EXCLUDED.amount,
			description = EXCLUDED.description,
			date = EXCLUDED.date,
			location = EXCLUDED.location`,
		e.ID, e.TravelPlanID, string(e.Category), e.Amount, e.Description, e.Date, location)
	return mapPGError(err)
}

func (r *PGRepository) PatchExpense(ctx context.Context, id string, set []Assignment) error {
	if len(set) == 0 {
		return nil
	}
	query, args := updateQuery("expenses", id, set)
	_, err := r.pool.Exec(ctx, query, args...)
	return mapPGError(err)
}

func (r *PGRepository) DeleteExpense(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return err
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s", ErrUnknownPlan, pgErr.Detail)
	}
	return err
}
