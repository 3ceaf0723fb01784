package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pulseline/internal/config"
	"pulseline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier abstracts *sql.DB and *sql.Tx so signal readers can run inside
// the recalculation transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// --- users ---

func (r Repo) EnsureUserTx(ctx context.Context, tx *sql.Tx, id, name, role, now string) error {
	if name == "" {
		name = id
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO users(id,name,role,created_at) VALUES (?,?,?,?)
ON CONFLICT(id) DO NOTHING`, id, name, role, now)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	var email sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,email,role,created_at FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &email, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if email.Valid {
		u.Email = email.String
	}
	return u, err
}

// --- projects ---

const projectColumns = `id,name,status,health_score,start_date,end_date,admin_id,COALESCE(client_id,'') AS client_id,COALESCE(description,'') AS description,created_at`

func scanProject(row *sql.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.HealthScore, &p.StartDate, &p.EndDate,
		&p.AdminID, &p.ClientID, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,name,status,health_score,start_date,end_date,admin_id,client_id,description,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Status, p.HealthScore, p.StartDate, p.EndDate, p.AdminID, nullable(p.ClientID), nullable(p.Description), p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return getProject(ctx, r.DB, id)
}

// GetProjectTx reads a project through an open transaction so the
// read-compute-write sequence of a recalculation serializes.
func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	return getProject(ctx, tx, id)
}

func getProject(ctx context.Context, q querier, id string) (domain.Project, error) {
	return scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.HealthScore, &p.StartDate, &p.EndDate,
			&p.AdminID, &p.ClientID, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) SingleProject(ctx context.Context) (domain.Project, error) {
	projects, err := r.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	if len(projects) == 0 {
		return domain.Project{}, ErrNotFound
	}
	if len(projects) > 1 {
		return domain.Project{}, fmt.Errorf("multiple projects exist; specify --project")
	}
	return projects[0], nil
}

// UpdateProjectScoreTx writes the recomputed score without touching status.
func (r Repo) UpdateProjectScoreTx(ctx context.Context, tx *sql.Tx, id string, score int) error {
	return updateProjectHealth(ctx, tx, id, score, nil)
}

// UpdateProjectHealthTx writes score and status together.
func (r Repo) UpdateProjectHealthTx(ctx context.Context, tx *sql.Tx, id string, score int, status domain.ProjectStatus) error {
	return updateProjectHealth(ctx, tx, id, score, &status)
}

func updateProjectHealth(ctx context.Context, tx *sql.Tx, id string, score int, status *domain.ProjectStatus) error {
	var res sql.Result
	var err error
	if status != nil {
		res, err = tx.ExecContext(ctx, `UPDATE projects SET health_score=?, status=? WHERE id=?`, score, *status, id)
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE projects SET health_score=? WHERE id=?`, score, id)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetProjectStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.ProjectStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- project configs ---

func (r Repo) UpsertProjectConfig(ctx context.Context, projectID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Project.ID = projectID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.DB.ExecContext(ctx, `INSERT INTO project_configs(project_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(project_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, projectID, string(payload), now, now)
	return err
}

func (r Repo) GetProjectConfig(ctx context.Context, projectID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM project_configs WHERE project_id=?`, projectID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Project.ID == "" {
		cfg.Project.ID = projectID
	}
	return &cfg, cfg.Validate()
}

// --- check-ins ---

const checkInColumns = `id,project_id,employee_id,week_number,year,progress_summary,blockers,confidence_level,completion_percent,created_at`

func (r Repo) InsertCheckInTx(ctx context.Context, tx *sql.Tx, ci domain.CheckIn) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO checkins(`+checkInColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ci.ID, ci.ProjectID, ci.EmployeeID, ci.WeekNumber, ci.Year, ci.ProgressSummary, ci.Blockers,
		ci.ConfidenceLevel, ci.CompletionPercent, ci.CreatedAt)
	return err
}

func (r Repo) CheckInExistsForWeek(ctx context.Context, projectID, employeeID string, week, year int) (bool, error) {
	return exists(ctx, r.DB, `SELECT 1 FROM checkins WHERE project_id=? AND employee_id=? AND week_number=? AND year=? LIMIT 1`,
		projectID, employeeID, week, year)
}

// RecentCheckInsTx returns the most recent check-ins, newest first.
func (r Repo) RecentCheckInsTx(ctx context.Context, tx *sql.Tx, projectID string, limit int) ([]domain.CheckIn, error) {
	return queryCheckIns(ctx, tx, `SELECT `+checkInColumns+` FROM checkins WHERE project_id=? ORDER BY created_at DESC, id DESC LIMIT ?`, projectID, limit)
}

func (r Repo) ListCheckIns(ctx context.Context, projectID, employeeID string) ([]domain.CheckIn, error) {
	clauses := []string{"project_id=?"}
	args := []any{projectID}
	if employeeID != "" {
		clauses = append(clauses, "employee_id=?")
		args = append(args, employeeID)
	}
	query := `SELECT ` + checkInColumns + ` FROM checkins WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	return queryCheckIns(ctx, r.DB, query, args...)
}

func queryCheckIns(ctx context.Context, q querier, query string, args ...any) ([]domain.CheckIn, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CheckIn
	for rows.Next() {
		var ci domain.CheckIn
		if err := rows.Scan(&ci.ID, &ci.ProjectID, &ci.EmployeeID, &ci.WeekNumber, &ci.Year,
			&ci.ProgressSummary, &ci.Blockers, &ci.ConfidenceLevel, &ci.CompletionPercent, &ci.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, ci)
	}
	return res, rows.Err()
}

// --- feedback ---

const feedbackColumns = `id,project_id,client_id,week_number,year,satisfaction_rating,communication_clarity,comments,flagged_issue,created_at`

func (r Repo) InsertFeedbackTx(ctx context.Context, tx *sql.Tx, fb domain.Feedback) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO feedback(`+feedbackColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		fb.ID, fb.ProjectID, fb.ClientID, fb.WeekNumber, fb.Year, fb.SatisfactionRating,
		fb.CommunicationClarity, fb.Comments, fb.FlaggedIssue, fb.CreatedAt)
	return err
}

func (r Repo) FeedbackExistsForWeek(ctx context.Context, projectID, clientID string, week, year int) (bool, error) {
	return exists(ctx, r.DB, `SELECT 1 FROM feedback WHERE project_id=? AND client_id=? AND week_number=? AND year=? LIMIT 1`,
		projectID, clientID, week, year)
}

// RecentFeedbackTx returns the most recent feedback, newest first.
func (r Repo) RecentFeedbackTx(ctx context.Context, tx *sql.Tx, projectID string, limit int) ([]domain.Feedback, error) {
	return queryFeedback(ctx, tx, `SELECT `+feedbackColumns+` FROM feedback WHERE project_id=? ORDER BY created_at DESC, id DESC LIMIT ?`, projectID, limit)
}

func (r Repo) ListFeedback(ctx context.Context, projectID string) ([]domain.Feedback, error) {
	return queryFeedback(ctx, r.DB, `SELECT `+feedbackColumns+` FROM feedback WHERE project_id=? ORDER BY created_at DESC, id DESC`, projectID)
}

func queryFeedback(ctx context.Context, q querier, query string, args ...any) ([]domain.Feedback, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.ID, &fb.ProjectID, &fb.ClientID, &fb.WeekNumber, &fb.Year,
			&fb.SatisfactionRating, &fb.CommunicationClarity, &fb.Comments, &fb.FlaggedIssue, &fb.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, fb)
	}
	return res, rows.Err()
}

// --- risks ---

const riskColumns = `id,project_id,title,COALESCE(description,'') AS description,severity,status,COALESCE(mitigation_plan,'') AS mitigation_plan,created_at,updated_at,resolved_at`

func (r Repo) InsertRiskTx(ctx context.Context, tx *sql.Tx, rk domain.Risk) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO risks(id,project_id,title,description,severity,status,mitigation_plan,created_at,updated_at,resolved_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rk.ID, rk.ProjectID, rk.Title, nullable(rk.Description), rk.Severity, rk.Status,
		nullable(rk.MitigationPlan), rk.CreatedAt, rk.UpdatedAt, rk.ResolvedAt)
	return err
}

func (r Repo) GetRisk(ctx context.Context, id string) (domain.Risk, error) {
	return scanRisk(r.DB.QueryRowContext(ctx, `SELECT `+riskColumns+` FROM risks WHERE id=?`, id))
}

func scanRisk(row *sql.Row) (domain.Risk, error) {
	var rk domain.Risk
	err := row.Scan(&rk.ID, &rk.ProjectID, &rk.Title, &rk.Description, &rk.Severity, &rk.Status,
		&rk.MitigationPlan, &rk.CreatedAt, &rk.UpdatedAt, &rk.ResolvedAt)
	if err == sql.ErrNoRows {
		return rk, ErrNotFound
	}
	return rk, err
}

func (r Repo) UpdateRiskTx(ctx context.Context, tx *sql.Tx, rk domain.Risk) error {
	res, err := tx.ExecContext(ctx, `UPDATE risks SET title=?, description=?, severity=?, status=?, mitigation_plan=?, updated_at=?, resolved_at=? WHERE id=?`,
		rk.Title, nullable(rk.Description), rk.Severity, rk.Status, nullable(rk.MitigationPlan),
		rk.UpdatedAt, rk.ResolvedAt, rk.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteRiskTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM risks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenRisksTx returns all currently open risks for a project.
func (r Repo) OpenRisksTx(ctx context.Context, tx *sql.Tx, projectID string) ([]domain.Risk, error) {
	return queryRisks(ctx, tx, `SELECT `+riskColumns+` FROM risks WHERE project_id=? AND status='OPEN' ORDER BY created_at DESC, id DESC`, projectID)
}

func (r Repo) ListRisks(ctx context.Context, projectID string, severity domain.RiskSeverity, status domain.RiskStatus) ([]domain.Risk, error) {
	clauses := []string{"project_id=?"}
	args := []any{projectID}
	if severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, severity)
	}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	query := `SELECT ` + riskColumns + ` FROM risks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	return queryRisks(ctx, r.DB, query, args...)
}

func queryRisks(ctx context.Context, q querier, query string, args ...any) ([]domain.Risk, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Risk
	for rows.Next() {
		var rk domain.Risk
		if err := rows.Scan(&rk.ID, &rk.ProjectID, &rk.Title, &rk.Description, &rk.Severity, &rk.Status,
			&rk.MitigationPlan, &rk.CreatedAt, &rk.UpdatedAt, &rk.ResolvedAt); err != nil {
			return nil, err
		}
		res = append(res, rk)
	}
	return res, rows.Err()
}

// --- activity log ---

func (r Repo) ListActivity(ctx context.Context, projectID string, limit int) ([]domain.ActivityLogEntry, error) {
	query := `SELECT id,project_id,user_id,type,title,COALESCE(description,'') AS description,created_at FROM activity_log WHERE project_id=? ORDER BY created_at DESC, id DESC`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityLogEntry
	for rows.Next() {
		var e domain.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.UserID, &e.Type, &e.Title, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- notifications ---

func (r Repo) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	query := `SELECT id,user_id,title,message,type,COALESCE(link,'') AS link,read,created_at FROM notifications WHERE user_id=?`
	if unreadOnly {
		query += ` AND read=0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE user_id=? AND read=0`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// --- helpers ---

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
