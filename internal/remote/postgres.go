package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/tripkit/internal/keyring"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/migration"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/migrations"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

// Postgres writes plans straight into a PostgreSQL database with the same
// tables the sync service uses. The connection is opened lazily on first use.
type Postgres struct {
	connStr string

	once    sync.Once
	db      *sql.DB
	openErr error
}

// NewPostgres validates connStr and returns a Postgres source. Passwords must
// come from the OS keyring, PGPASSWORD or .pgpass, never from the string itself.
func NewPostgres(connStr string) (*Postgres, error) {
	if _, err := ValidateConnString(connStr); err != nil {
		return nil, err
	}
	return &Postgres{connStr: strings.TrimSpace(connStr)}, nil
}

// ValidateConnString checks that connStr is a PostgreSQL URI or DSN
// without an embedded password.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	if HasEmbeddedCredentials(connStr) {
		return false, ErrEmbeddedCredentials
	}
	return true, nil
}

// HasEmbeddedCredentials reports whether connStr carries a password.
func HasEmbeddedCredentials(connStr string) bool {
	if isURL(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return false
		}
		_, set := u.User.Password()
		return set
	}
	for _, pair := range strings.Fields(connStr) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "password") {
			return true
		}
	}
	return false
}

func isURL(connStr string) bool {
	return strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://")
}

// withKeyringPassword adds the keyring-stored password, when there is one.
func withKeyringPassword(connStr string) string {
	password, err := keyring.Get(keyring.PostgresPassword)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("Keyring lookup for postgres password failed", "error", err)
		}
		return connStr
	}
	if isURL(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return connStr
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String()
	}
	return connStr + " password='" + strings.ReplaceAll(password, "'", `\'`) + "'"
}

func (p *Postgres) Name() string    { return "postgres" }
func (p *Postgres) IsEnabled() bool { return p != nil && p.connStr != "" }

func (p *Postgres) conn() (*sql.DB, error) {
	p.once.Do(func() {
		db, err := sql.Open("postgres", withKeyringPassword(p.connStr))
		if err != nil {
			p.openErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			db.Close()
			p.openErr = fmt.Errorf("failed to connect to database: %w", err)
			return
		}
		subFS, err := migrations.Postgres()
		if err != nil {
			db.Close()
			p.openErr = fmt.Errorf("failed to access postgres migrations: %w", err)
			return
		}
		runner := migration.NewRunnerWithDialect(db, subFS, migration.Postgres)
		if _, err := runner.ApplyMigrations(func(msg string) { logger.Debug(msg) }); err != nil {
			db.Close()
			p.openErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
		p.db = db
	})
	return p.db, p.openErr
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Postgres) fail(op string, err error) error {
	return &RemoteError{Backend: p.Name(), Op: op, Err: err}
}

const planColumns = `id, user_id, title, destination, start_date, end_date, budget, travelers,
	preferences, itinerary, expenses, created_at, updated_at`

func (p *Postgres) FetchPlans(ctx context.Context, userID string) ([]models.TravelPlan, error) {
	db, err := p.conn()
	if err != nil {
		return nil, p.fail("fetch plans", err)
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM travel_plans WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, p.fail("fetch plans", err)
	}
	defer rows.Close()

	plans := []models.TravelPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, p.fail("fetch plans", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail("fetch plans", err)
	}
	return plans, nil
}

func (p *Postgres) FetchPlanByID(ctx context.Context, id string) (*models.TravelPlan, error) {
	db, err := p.conn()
	if err != nil {
		return nil, p.fail("fetch plan", err)
	}
	row := db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, p.fail("fetch plan", err)
	}
	return &plan, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row scanner) (models.TravelPlan, error) {
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
	_ = json.Unmarshal(prefs, &plan.Preferences)
	_ = json.Unmarshal(itinerary, &plan.Itinerary)
	_ = json.Unmarshal(expenses, &plan.Expenses)
	plan.CreatedAt = models.FormatTimestamp(createdAt)
	plan.UpdatedAt = models.FormatTimestamp(updatedAt)
	plan.Normalize()
	return plan, nil
}

// timestampArg converts a stored timestamp for a timestamptz column. Unparseable
// values become NULL so the column default applies.
func timestampArg(s string) interface{} {
	if t, ok := models.ParseTimestamp(s); ok {
		return t
	}
	return nil
}

func (p *Postgres) UpsertPlan(ctx context.Context, plan models.TravelPlan) error {
	if plan.UserID == "" {
		return p.fail("upsert plan", ErrMissingUserID)
	}
	db, err := p.conn()
	if err != nil {
		return p.fail("upsert plan", err)
	}
	plan.Normalize()
	prefs, _ := json.Marshal(plan.Preferences)
	itinerary, _ := json.Marshal(plan.Itinerary)
	expenses, _ := json.Marshal(plan.Expenses)

	_, err = db.ExecContext(ctx, `
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
			updated_at = EXCLUDED.updated_at`,
		plan.ID, plan.UserID, plan.Title, plan.Destination, plan.StartDate, plan.EndDate,
		plan.Budget, plan.Travelers, string(prefs), string(itinerary), string(expenses),
		timestampArg(plan.CreatedAt), timestampArg(plan.UpdatedAt))
	if err != nil {
		return p.fail("upsert plan", err)
	}
	return nil
}

func (p *Postgres) DeletePlan(ctx context.Context, id string) error {
	db, err := p.conn()
	if err != nil {
		return p.fail("delete plan", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM travel_plans WHERE id = $1`, id); err != nil {
		return p.fail("delete plan", err)
	}
	return nil
}

func (p *Postgres) UpsertExpense(ctx context.Context, e models.Expense) error {
	if e.TravelPlanID == "" {
		return p.fail("upsert expense", ErrMissingPlanID)
	}
	db, err := p.conn()
	if err != nil {
		return p.fail("upsert expense", err)
	}
	var location interface{}
	if e.Location != nil {
		raw, _ := json.Marshal(e.Location)
		location = string(raw)
	}
	_, err = db.ExecContext(ctx, `
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
	if err != nil {
		return p.fail("upsert expense", err)
	}
	return nil
}

func (p *Postgres) DeleteExpense(ctx context.Context, id string) error {
	db, err := p.conn()
	if err != nil {
		return p.fail("delete expense", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		return p.fail("delete expense", err)
	}
	return nil
}
