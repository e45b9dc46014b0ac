// Package postgres implements store.Store over the hosted PostgreSQL schema
// using sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
)

// Config holds connection settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingAttempts    int
}

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to the database and waits until it answers a ping.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := New(db, logger)
	if err := s.waitForPing(ctx, cfg.PingAttempts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open connection.
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With(slog.String("component", "postgres_store"))}
}

// waitForPing retries, waiting 100ms longer between each attempt.
func (s *Store) waitForPing(ctx context.Context, attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.db.PingContext(ctx); err == nil {
			return nil
		}
		s.logger.Warn("database not ready",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("database ping timeout: %w", err)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return apierrors.NewStorageError("query", err)
}

func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

// Projects

const projectColumns = `id, name, COALESCE(description, '') AS description, start_date,
	COALESCE(total_cost, 0) AS total_cost, COALESCE(status, 'Not Started') AS status, created_at`

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	if err := s.db.SelectContext(ctx, &out, `SELECT `+projectColumns+` FROM projects ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	if err := s.db.GetContext(ctx, &p, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id); err != nil {
		return domain.Project{}, fmt.Errorf("get project %s: %w", id, notFound(err))
	}
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	row := s.db.QueryRowxContext(ctx,
		`INSERT INTO projects (name, description, start_date, total_cost, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.Name, p.Description, p.StartDate, p.TotalCost, p.Status)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	row := s.db.QueryRowxContext(ctx,
		`UPDATE projects SET name = $2, description = $3, start_date = $4, total_cost = $5, status = $6
		 WHERE id = $1 RETURNING created_at`,
		p.ID, p.Name, p.Description, p.StartDate, p.TotalCost, p.Status)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return domain.Project{}, fmt.Errorf("update project %s: %w", p.ID, notFound(err))
	}
	return p, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Reports

const reportSelect = `SELECT dr.id, dr.project_id, p.name AS project_name,
	dr.report_date::text AS report_date, dr.stage, dr.cost, dr.manpower,
	dr.work_completed, dr.materials_used, dr.remarks, dr.weather,
	dr.machinery, dr.safety_incidents, dr.created_at
	FROM daily_reports dr LEFT JOIN projects p ON p.id = dr.project_id`

// reportRow mirrors the nullable daily_reports columns.
type reportRow struct {
	ID              string          `db:"id"`
	ProjectID       sql.NullString  `db:"project_id"`
	ProjectName     sql.NullString  `db:"project_name"`
	ReportDate      sql.NullString  `db:"report_date"`
	Stage           sql.NullString  `db:"stage"`
	Cost            sql.NullFloat64 `db:"cost"`
	Manpower        sql.NullFloat64 `db:"manpower"`
	WorkCompleted   sql.NullString  `db:"work_completed"`
	MaterialsUsed   sql.NullString  `db:"materials_used"`
	Remarks         sql.NullString  `db:"remarks"`
	Weather         sql.NullString  `db:"weather"`
	Machinery       sql.NullString  `db:"machinery"`
	SafetyIncidents sql.NullString  `db:"safety_incidents"`
	CreatedAt       sql.NullTime    `db:"created_at"`
}

func nullable(v sql.NullFloat64) domain.SourceValue {
	if !v.Valid {
		return domain.Null()
	}
	return domain.Num(v.Float64)
}

func (r reportRow) raw() domain.RawReport {
	out := domain.RawReport{
		ID:              r.ID,
		ProjectName:     r.ProjectName.String,
		Date:            domain.Null(),
		Stage:           r.Stage.String,
		Cost:            nullable(r.Cost),
		Manpower:        nullable(r.Manpower),
		WorkCompleted:   r.WorkCompleted.String,
		MaterialsUsed:   r.MaterialsUsed.String,
		Remarks:         r.Remarks.String,
		Weather:         r.Weather.String,
		Machinery:       r.Machinery.String,
		SafetyIncidents: r.SafetyIncidents.String,
	}
	if r.ProjectID.Valid {
		id := r.ProjectID.String
		out.ProjectID = &id
	}
	if r.ReportDate.Valid {
		out.Date = domain.Str(r.ReportDate.String)
	}
	if r.CreatedAt.Valid {
		ts := r.CreatedAt.Time
		out.CreatedAt = &ts
	}
	return out
}

func (s *Store) selectReports(ctx context.Context, query string, args ...any) ([]domain.RawReport, error) {
	var rows []reportRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.RawReport, len(rows))
	for i, r := range rows {
		out[i] = r.raw()
	}
	return out, nil
}

func (s *Store) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.RawReport, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProjectID != "" {
		add("dr.project_id = $%d", filter.ProjectID)
	}
	if filter.DateFrom != nil {
		add("dr.report_date >= $%d", filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		add("dr.report_date <= $%d", filter.DateTo.Format("2006-01-02"))
	}

	query := reportSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY dr.report_date DESC, dr.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	out, err := s.selectReports(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (s *Store) GetReport(ctx context.Context, id string) (domain.RawReport, error) {
	reports, err := s.selectReports(ctx, reportSelect+" WHERE dr.id = $1", id)
	if err != nil {
		return domain.RawReport{}, fmt.Errorf("get report %s: %w", id, err)
	}
	if len(reports) == 0 {
		return domain.RawReport{}, fmt.Errorf("get report %s: %w", id, store.ErrNotFound)
	}
	return reports[0], nil
}

func (s *Store) LatestReports(ctx context.Context, n int) ([]domain.RawReport, error) {
	return s.ListReports(ctx, domain.ReportFilter{Limit: n})
}

// CreateReport inserts a submitted report. The date must be an ISO calendar
// date and the numeric fields number-typed.
func (s *Store) CreateReport(ctx context.Context, r domain.RawReport) (domain.RawReport, error) {
	var createdAt time.Time
	row := s.db.QueryRowxContext(ctx,
		`INSERT INTO daily_reports (project_id, report_date, stage, cost, manpower, work_completed,
			materials_used, remarks, weather, machinery, safety_incidents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id, created_at`,
		r.ProjectID, r.Date.String(), r.Stage, r.Cost.Number, r.Manpower.Number, r.WorkCompleted,
		r.MaterialsUsed, r.Remarks, r.Weather, r.Machinery, r.SafetyIncidents)
	if err := row.Scan(&r.ID, &createdAt); err != nil {
		return domain.RawReport{}, fmt.Errorf("create report: %w", err)
	}
	r.CreatedAt = &createdAt
	return r, nil
}

func (s *Store) CostEntries(ctx context.Context, reportIDs []string) ([]domain.CostEntry, error) {
	if len(reportIDs) == 0 {
		return nil, nil
	}
	var out []domain.CostEntry
	err := s.db.SelectContext(ctx, &out,
		`SELECT dpr_id::text AS dpr_id, COALESCE(cost_category, 'Misc') AS cost_category,
			COALESCE(amount_spent_today, 0) AS amount_spent_today
		 FROM dpr_costs_incurred WHERE dpr_id::text = ANY($1)`,
		pq.Array(reportIDs))
	if err != nil {
		return nil, fmt.Errorf("list cost entries: %w", err)
	}
	return out, nil
}

func (s *Store) Photos(ctx context.Context, reportIDs []string) ([]domain.PhotoRef, error) {
	if len(reportIDs) == 0 {
		return nil, nil
	}
	var out []domain.PhotoRef
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, daily_report_id, COALESCE(file_name, '') AS file_name,
			COALESCE(public_url, '') AS public_url, COALESCE(storage_path, '') AS storage_path,
			COALESCE(description, '') AS description
		 FROM dpr_photos WHERE daily_report_id = ANY($1) ORDER BY created_at`,
		pq.Array(reportIDs))
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return out, nil
}

// Materials

const materialColumns = `id, name, COALESCE(description, '') AS description, category, unit,
	COALESCE(cost_per_unit, 0) AS cost_per_unit, COALESCE(supplier_name, '') AS supplier_name,
	COALESCE(supplier_contact, '') AS supplier_contact, COALESCE(min_stock_level, 0) AS min_stock_level,
	COALESCE(current_stock, 0) AS current_stock, created_at`

func (s *Store) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	var out []domain.Material
	if err := s.db.SelectContext(ctx, &out, `SELECT `+materialColumns+` FROM materials ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return out, nil
}

func (s *Store) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	var m domain.Material
	if err := s.db.GetContext(ctx, &m, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id); err != nil {
		return domain.Material{}, fmt.Errorf("get material %s: %w", id, notFound(err))
	}
	return m, nil
}

func (s *Store) CreateMaterial(ctx context.Context, m domain.Material) (domain.Material, error) {
	row := s.db.QueryRowxContext(ctx,
		`INSERT INTO materials (name, description, category, unit, cost_per_unit, supplier_name,
			supplier_contact, min_stock_level, current_stock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`,
		m.Name, m.Description, m.Category, m.Unit, m.CostPerUnit, m.SupplierName,
		m.SupplierContact, m.MinStockLevel, m.CurrentStock)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return domain.Material{}, fmt.Errorf("create material: %w", err)
	}
	return m, nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]domain.MaterialPurchase, error) {
	var out []domain.MaterialPurchase
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, material_id, project_id, quantity, cost_per_unit, total_cost,
			COALESCE(supplier_name, '') AS supplier_name, purchase_date
		 FROM material_purchases ORDER BY purchase_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return out, nil
}

// CreatePurchase inserts the purchase and raises stock in one transaction.
func (s *Store) CreatePurchase(ctx context.Context, p domain.MaterialPurchase) (domain.MaterialPurchase, error) {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE materials SET current_stock = COALESCE(current_stock, 0) + $1 WHERE id = $2`,
			p.Quantity, p.MaterialID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return tx.QueryRowxContext(ctx,
			`INSERT INTO material_purchases (material_id, project_id, quantity, cost_per_unit, total_cost,
				supplier_name, purchase_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			p.MaterialID, p.ProjectID, p.Quantity, p.CostPerUnit, p.TotalCost, p.SupplierName, p.PurchaseDate,
		).Scan(&p.ID)
	})
	if err != nil {
		return domain.MaterialPurchase{}, fmt.Errorf("create purchase: %w", err)
	}
	return p, nil
}

// CreateUsage inserts the usage and lowers stock in one transaction. The
// decrement only applies while enough stock remains.
func (s *Store) CreateUsage(ctx context.Context, u domain.MaterialUsage) (domain.MaterialUsage, error) {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE materials SET current_stock = current_stock - $1 WHERE id = $2 AND current_stock >= $1`,
			u.Quantity, u.MaterialID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return store.ErrConflict
		}
		return tx.QueryRowxContext(ctx,
			`INSERT INTO material_usage (material_id, project_id, daily_report_id, quantity_used, usage_date, notes)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			u.MaterialID, u.ProjectID, u.DailyReportID, u.Quantity, u.UsageDate, u.Notes,
		).Scan(&u.ID)
	})
	if err != nil {
		return domain.MaterialUsage{}, fmt.Errorf("create usage: %w", err)
	}
	return u, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}
	return tx.Commit()
}

// Access

// roleRow carries the jsonb permissions array as text.
type roleRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Permissions pq.StringArray `db:"permissions"`
}

func (r roleRow) role() domain.Role {
	return domain.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		Permissions: []string(r.Permissions),
	}
}

const roleSelect = `SELECT r.id, r.name, r.description,
	ARRAY(SELECT jsonb_array_elements_text(COALESCE(r.permissions, '[]'::jsonb))) AS permissions
	FROM user_roles r`

func (s *Store) selectRoles(ctx context.Context, query string, args ...any) ([]domain.Role, error) {
	var rows []roleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Role, len(rows))
	for i, r := range rows {
		out[i] = r.role()
	}
	return out, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]domain.Role, error) {
	out, err := s.selectRoles(ctx, roleSelect+` ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return out, nil
}

func (s *Store) RolesForUser(ctx context.Context, userID string) ([]domain.Role, error) {
	out, err := s.selectRoles(ctx,
		roleSelect+` WHERE r.id IN (SELECT role_id FROM user_project_assignments WHERE user_id = $1) ORDER BY r.name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("roles for user %s: %w", userID, err)
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, COALESCE(email, '') AS email, COALESCE(full_name, '') AS full_name, created_at
		 FROM profiles ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *Store) ListAssignments(ctx context.Context, userID string) ([]domain.ProjectAssignment, error) {
	query := `SELECT id, user_id, project_id, role_id, assigned_at FROM user_project_assignments`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY assigned_at DESC`

	var out []domain.ProjectAssignment
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}

func (s *Store) CreateAssignment(ctx context.Context, a domain.ProjectAssignment) (domain.ProjectAssignment, error) {
	row := s.db.QueryRowxContext(ctx,
		`INSERT INTO user_project_assignments (user_id, project_id, role_id)
		 VALUES ($1, $2, $3) RETURNING id, assigned_at`,
		a.UserID, a.ProjectID, a.RoleID)
	if err := row.Scan(&a.ID, &a.AssignedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ProjectAssignment{}, store.ErrConflict
		}
		return domain.ProjectAssignment{}, fmt.Errorf("create assignment: %w", err)
	}
	return a, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_project_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment %s: %w", id, err)
	}
	return requireAffected(res)
}

// Search

func (s *Store) SearchProjects(ctx context.Context, query string, limit int) ([]domain.Project, error) {
	var out []domain.Project
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+projectColumns+` FROM projects WHERE name ILIKE $1 ORDER BY name LIMIT $2`,
		likePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}
	return out, nil
}

func (s *Store) SearchReports(ctx context.Context, query string, limit int) ([]domain.RawReport, error) {
	out, err := s.selectReports(ctx,
		reportSelect+` WHERE dr.work_completed ILIKE $1 OR p.name ILIKE $1
		ORDER BY dr.report_date DESC LIMIT $2`,
		likePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search reports: %w", err)
	}
	return out, nil
}

func (s *Store) SearchMaterials(ctx context.Context, query string, limit int) ([]domain.Material, error) {
	var out []domain.Material
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+materialColumns+` FROM materials WHERE name ILIKE $1 ORDER BY name LIMIT $2`,
		likePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search materials: %w", err)
	}
	return out, nil
}
