// Package engine implements the project-health operations: signal
// submission, risk lifecycle, and the health-score recalculation that
// drives automatic status transitions.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pulseline/internal/activity"
	"pulseline/internal/config"
	"pulseline/internal/domain"
	"pulseline/internal/health"
	"pulseline/internal/metrics"
	"pulseline/internal/notify"
	"pulseline/internal/repo"
)

// NeutralScore is returned when recalculation has nothing to score
// against (missing project) or the aggregate is non-numeric.
const NeutralScore = 100

// ErrWeeklyDuplicate rejects a second check-in or feedback for the same
// author, project, and week.
var ErrWeeklyDuplicate = errors.New("already submitted for this week")

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Notify   notify.Writer
	Config   *config.Config
	Log      *zap.Logger
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config, log *zap.Logger) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Activity: activity.Writer{DB: db},
		Notify:   notify.Writer{DB: db},
		Config:   cfg,
		Log:      log,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) log() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

// WeekOf returns the week number and year a signal is attributed to,
// using the day-of-year/7 convention the stored data is keyed by.
func WeekOf(t time.Time) (week, year int) {
	t = t.UTC()
	startOfYear := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(startOfYear).Hours() / 24)
	week = int(math.Ceil(float64(days+int(startOfYear.Weekday())+1) / 7))
	return week, t.Year()
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	ID          string
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	AdminID     string
	ClientID    string
	ActorID     string
}

func (e Engine) InitProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, errors.New("name is required")
	}
	if opts.AdminID == "" {
		return domain.Project{}, errors.New("admin is required")
	}
	if opts.StartDate.IsZero() || opts.EndDate.IsZero() {
		return domain.Project{}, errors.New("start and end dates are required")
	}
	if opts.EndDate.Before(opts.StartDate) {
		return domain.Project{}, errors.New("end date before start date")
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now().UTC().Format(time.RFC3339)
	p := domain.Project{
		ID:          id,
		Name:        opts.Name,
		Status:      domain.StatusOnTrack,
		HealthScore: NeutralScore,
		StartDate:   opts.StartDate.UTC().Format(time.RFC3339),
		EndDate:     opts.EndDate.UTC().Format(time.RFC3339),
		AdminID:     opts.AdminID,
		ClientID:    opts.ClientID,
		Description: opts.Description,
		CreatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.EnsureUserTx(ctx, tx, p.AdminID, "", "ADMIN", now); err != nil {
		return domain.Project{}, fmt.Errorf("ensure admin: %w", err)
	}
	if p.ClientID != "" {
		if err := e.Repo.EnsureUserTx(ctx, tx, p.ClientID, "", "CLIENT", now); err != nil {
			return domain.Project{}, fmt.Errorf("ensure client: %w", err)
		}
	}
	if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	actor := opts.ActorID
	if actor == "" {
		actor = p.AdminID
	}
	if err := e.Activity.Append(ctx, tx, p.ID, actor, domain.ActivityProjectCreated,
		fmt.Sprintf("Project %q created", p.Name), ""); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.UpsertProjectConfig(ctx, p.ID, config.Default(p.ID)); err != nil {
		return domain.Project{}, fmt.Errorf("seed project config: %w", err)
	}
	return p, nil
}

// CompleteProject marks a project COMPLETED. The status is terminal:
// recalculation keeps updating the score but never moves the status again.
func (e Engine) CompleteProject(ctx context.Context, projectID, actorID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return p, err
	}
	if p.Status == domain.StatusCompleted {
		return p, nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetProjectStatusTx(ctx, tx, projectID, domain.StatusCompleted); err != nil {
		return p, err
	}
	if actorID == "" {
		actorID = p.AdminID
	}
	if err := e.Activity.Append(ctx, tx, projectID, actorID, domain.ActivityProjectStatusChanged,
		"Status changed to COMPLETED",
		fmt.Sprintf("Project marked completed from %s.", p.Status)); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	p.Status = domain.StatusCompleted
	return p, nil
}

// CheckInOptions are parameters for an employee check-in.
type CheckInOptions struct {
	ProjectID         string
	EmployeeID        string
	ProgressSummary   string
	Blockers          string
	ConfidenceLevel   int
	CompletionPercent int
}

func (e Engine) SubmitCheckIn(ctx context.Context, opts CheckInOptions) (domain.CheckIn, error) {
	if opts.ProjectID == "" {
		return domain.CheckIn{}, errors.New("project is required")
	}
	if opts.EmployeeID == "" {
		return domain.CheckIn{}, errors.New("employee is required")
	}
	if opts.ProgressSummary == "" {
		return domain.CheckIn{}, errors.New("progress summary is required")
	}
	if opts.ConfidenceLevel < 1 || opts.ConfidenceLevel > 5 {
		return domain.CheckIn{}, errors.New("confidence level must be between 1 and 5")
	}
	if opts.CompletionPercent < 0 || opts.CompletionPercent > 100 {
		return domain.CheckIn{}, errors.New("completion percent must be between 0 and 100")
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.CheckIn{}, err
	}
	nowT := e.now()
	week, year := WeekOf(nowT)
	taken, err := e.Repo.CheckInExistsForWeek(ctx, opts.ProjectID, opts.EmployeeID, week, year)
	if err != nil {
		return domain.CheckIn{}, err
	}
	if taken {
		return domain.CheckIn{}, ErrWeeklyDuplicate
	}
	now := nowT.UTC().Format(time.RFC3339)
	ci := domain.CheckIn{
		ID:                uuid.New().String(),
		ProjectID:         opts.ProjectID,
		EmployeeID:        opts.EmployeeID,
		WeekNumber:        week,
		Year:              year,
		ProgressSummary:   opts.ProgressSummary,
		Blockers:          optionalString(opts.Blockers),
		ConfidenceLevel:   opts.ConfidenceLevel,
		CompletionPercent: opts.CompletionPercent,
		CreatedAt:         now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ci, err
	}
	defer tx.Rollback()

	if err := e.Repo.EnsureUserTx(ctx, tx, ci.EmployeeID, "", "EMPLOYEE", now); err != nil {
		return ci, err
	}
	if err := e.Repo.InsertCheckInTx(ctx, tx, ci); err != nil {
		return ci, fmt.Errorf("insert check-in: %w", err)
	}
	if err := e.Activity.Append(ctx, tx, ci.ProjectID, ci.EmployeeID, domain.ActivityCheckInSubmitted,
		fmt.Sprintf("%s submitted a check-in", ci.EmployeeID),
		fmt.Sprintf("Confidence: %d/5, Completion: %d%%", ci.ConfidenceLevel, ci.CompletionPercent)); err != nil {
		return ci, err
	}
	if ci.ConfidenceLevel <= 2 {
		if err := e.Notify.Append(ctx, tx, p.AdminID, "Low Confidence Alert",
			fmt.Sprintf("Low confidence (%d/5) reported on %s", ci.ConfidenceLevel, p.Name),
			domain.NotifyLowConfidence, "/projects/"+p.ID); err != nil {
			return ci, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ci, err
	}
	e.recalcAfter(ctx, ci.ProjectID, "check-in")
	return ci, nil
}

// FeedbackOptions are parameters for client feedback.
type FeedbackOptions struct {
	ProjectID            string
	ClientID             string
	SatisfactionRating   int
	CommunicationClarity int
	Comments             string
	FlaggedIssue         bool
}

func (e Engine) SubmitFeedback(ctx context.Context, opts FeedbackOptions) (domain.Feedback, error) {
	if opts.ProjectID == "" {
		return domain.Feedback{}, errors.New("project is required")
	}
	if opts.ClientID == "" {
		return domain.Feedback{}, errors.New("client is required")
	}
	if opts.SatisfactionRating < 1 || opts.SatisfactionRating > 5 {
		return domain.Feedback{}, errors.New("satisfaction rating must be between 1 and 5")
	}
	if opts.CommunicationClarity < 1 || opts.CommunicationClarity > 5 {
		return domain.Feedback{}, errors.New("communication clarity must be between 1 and 5")
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Feedback{}, err
	}
	nowT := e.now()
	week, year := WeekOf(nowT)
	taken, err := e.Repo.FeedbackExistsForWeek(ctx, opts.ProjectID, opts.ClientID, week, year)
	if err != nil {
		return domain.Feedback{}, err
	}
	if taken {
		return domain.Feedback{}, ErrWeeklyDuplicate
	}
	now := nowT.UTC().Format(time.RFC3339)
	fb := domain.Feedback{
		ID:                   uuid.New().String(),
		ProjectID:            opts.ProjectID,
		ClientID:             opts.ClientID,
		WeekNumber:           week,
		Year:                 year,
		SatisfactionRating:   opts.SatisfactionRating,
		CommunicationClarity: opts.CommunicationClarity,
		Comments:             optionalString(opts.Comments),
		FlaggedIssue:         opts.FlaggedIssue,
		CreatedAt:            now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return fb, err
	}
	defer tx.Rollback()

	if err := e.Repo.EnsureUserTx(ctx, tx, fb.ClientID, "", "CLIENT", now); err != nil {
		return fb, err
	}
	if err := e.Repo.InsertFeedbackTx(ctx, tx, fb); err != nil {
		return fb, fmt.Errorf("insert feedback: %w", err)
	}
	if err := e.Activity.Append(ctx, tx, fb.ProjectID, fb.ClientID, domain.ActivityFeedbackSubmitted,
		"Client feedback submitted",
		fmt.Sprintf("Satisfaction: %d/5, Communication: %d/5", fb.SatisfactionRating, fb.CommunicationClarity)); err != nil {
		return fb, err
	}
	if fb.FlaggedIssue {
		if err := e.Notify.Append(ctx, tx, p.AdminID, "Issue Flagged",
			fmt.Sprintf("Issue flagged on %s", p.Name),
			domain.NotifyIssueFlagged, "/projects/"+p.ID); err != nil {
			return fb, err
		}
	}
	if err := tx.Commit(); err != nil {
		return fb, err
	}
	e.recalcAfter(ctx, fb.ProjectID, "feedback")
	return fb, nil
}

// RiskCreateOptions are parameters for opening a risk.
type RiskCreateOptions struct {
	ProjectID      string
	Title          string
	Description    string
	Severity       domain.RiskSeverity
	MitigationPlan string
	ActorID        string
}

func (e Engine) CreateRisk(ctx context.Context, opts RiskCreateOptions) (domain.Risk, error) {
	if opts.ProjectID == "" {
		return domain.Risk{}, errors.New("project is required")
	}
	if opts.Title == "" {
		return domain.Risk{}, errors.New("title is required")
	}
	if !opts.Severity.IsValid() {
		return domain.Risk{}, fmt.Errorf("invalid severity %q", opts.Severity)
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Risk{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	rk := domain.Risk{
		ID:             uuid.New().String(),
		ProjectID:      opts.ProjectID,
		Title:          opts.Title,
		Description:    opts.Description,
		Severity:       opts.Severity,
		Status:         domain.RiskOpen,
		MitigationPlan: opts.MitigationPlan,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	actor := opts.ActorID
	if actor == "" {
		actor = p.AdminID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return rk, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertRiskTx(ctx, tx, rk); err != nil {
		return rk, fmt.Errorf("insert risk: %w", err)
	}
	if err := e.Activity.Append(ctx, tx, rk.ProjectID, actor, domain.ActivityRiskCreated,
		fmt.Sprintf("Risk created: %s", rk.Title),
		fmt.Sprintf("Severity: %s", rk.Severity)); err != nil {
		return rk, err
	}
	if rk.Severity == domain.SeverityHigh {
		if err := e.Notify.Append(ctx, tx, p.AdminID, "High Severity Risk",
			fmt.Sprintf("High severity risk created on %s: %s", p.Name, rk.Title),
			domain.NotifyHighRisk, "/projects/"+p.ID); err != nil {
			return rk, err
		}
	}
	if err := tx.Commit(); err != nil {
		return rk, err
	}
	e.recalcAfter(ctx, rk.ProjectID, "risk create")
	return rk, nil
}

// RiskUpdateOptions encapsulates allowed risk updates; nil fields are
// left untouched.
type RiskUpdateOptions struct {
	ID             string
	Title          *string
	Description    *string
	Severity       *domain.RiskSeverity
	MitigationPlan *string
	Status         *domain.RiskStatus
	ActorID        string
}

func (e Engine) UpdateRisk(ctx context.Context, opts RiskUpdateOptions) (domain.Risk, error) {
	rk, err := e.Repo.GetRisk(ctx, opts.ID)
	if err != nil {
		return rk, err
	}
	original := rk
	if opts.Title != nil {
		if *opts.Title == "" {
			return rk, errors.New("title is required")
		}
		rk.Title = *opts.Title
	}
	if opts.Description != nil {
		rk.Description = *opts.Description
	}
	if opts.Severity != nil {
		if !opts.Severity.IsValid() {
			return rk, fmt.Errorf("invalid severity %q", *opts.Severity)
		}
		rk.Severity = *opts.Severity
	}
	if opts.MitigationPlan != nil {
		rk.MitigationPlan = *opts.MitigationPlan
	}
	nowT := e.now()
	now := nowT.UTC().Format(time.RFC3339)
	resolved := false
	if opts.Status != nil {
		if !opts.Status.IsValid() {
			return rk, fmt.Errorf("invalid status %q", *opts.Status)
		}
		if *opts.Status == domain.RiskResolved && original.Status == domain.RiskOpen {
			resolved = true
			rk.ResolvedAt = &now
		}
		if *opts.Status == domain.RiskOpen {
			rk.ResolvedAt = nil
		}
		rk.Status = *opts.Status
	}
	rk.UpdatedAt = now
	actor := opts.ActorID
	if actor == "" {
		p, err := e.Repo.GetProject(ctx, rk.ProjectID)
		if err != nil {
			return rk, err
		}
		actor = p.AdminID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return rk, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateRiskTx(ctx, tx, rk); err != nil {
		return rk, err
	}
	if resolved {
		if err := e.Activity.Append(ctx, tx, rk.ProjectID, actor, domain.ActivityRiskResolved,
			fmt.Sprintf("Risk resolved: %s", rk.Title), ""); err != nil {
			return rk, err
		}
	}
	if err := tx.Commit(); err != nil {
		return rk, err
	}
	e.recalcAfter(ctx, rk.ProjectID, "risk update")
	return rk, nil
}

func (e Engine) DeleteRisk(ctx context.Context, id, actorID string) error {
	rk, err := e.Repo.GetRisk(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteRiskTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.recalcAfter(ctx, rk.ProjectID, "risk delete")
	return nil
}

// recalcAfter runs recalculation for a committed triggering event. A
// failure here is surfaced in the log, not to the caller: the business
// write already committed and must not be rolled back or failed.
func (e Engine) recalcAfter(ctx context.Context, projectID, trigger string) {
	if _, err := e.RecalculateHealthScore(ctx, projectID); err != nil {
		metrics.RecalculationCount.WithLabelValues("error").Inc()
		e.log().Warn("health recalculation failed",
			zap.String("project_id", projectID),
			zap.String("trigger", trigger),
			zap.Error(err))
	}
}

// RecalculateHealthScore reads the project's current signals, computes the
// weighted health score, and persists it. When the classified status
// differs from the stored one (and the project is not COMPLETED), the
// status update, one activity-log entry, and one admin notification commit
// in the same transaction as the score write.
//
// A missing project is a tolerated no-op returning the neutral score: the
// triggering event may be racing a deletion.
func (e Engine) RecalculateHealthScore(ctx context.Context, projectID string) (int, error) {
	weights := e.scoringWeights(ctx, projectID)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return NeutralScore, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if errors.Is(err, repo.ErrNotFound) {
		metrics.RecalculationCount.WithLabelValues("skipped").Inc()
		e.log().Warn("recalculation skipped: project not found", zap.String("project_id", projectID))
		return NeutralScore, nil
	}
	if err != nil {
		return NeutralScore, err
	}

	feedback, err := e.Repo.RecentFeedbackTx(ctx, tx, projectID, weights.SignalWindow)
	if err != nil {
		return NeutralScore, fmt.Errorf("read feedback: %w", err)
	}
	checkIns, err := e.Repo.RecentCheckInsTx(ctx, tx, projectID, weights.SignalWindow)
	if err != nil {
		return NeutralScore, fmt.Errorf("read check-ins: %w", err)
	}
	openRisks, err := e.Repo.OpenRisksTx(ctx, tx, projectID)
	if err != nil {
		return NeutralScore, fmt.Errorf("read risks: %w", err)
	}

	start, _ := time.Parse(time.RFC3339, p.StartDate)
	end, _ := time.Parse(time.RFC3339, p.EndDate)
	res := health.Compute(health.Inputs{
		Feedback:  feedback,
		CheckIns:  checkIns,
		OpenRisks: openRisks,
		StartDate: start,
		EndDate:   end,
		Now:       e.now(),
	}, weights)
	if res.Anomaly {
		metrics.RecalculationCount.WithLabelValues("anomaly").Inc()
		e.log().Error("health score evaluated to NaN, using neutral fallback",
			zap.String("project_id", projectID),
			zap.Float64("satisfaction", res.Satisfaction),
			zap.Float64("confidence", res.Confidence),
			zap.Float64("schedule", res.Schedule),
			zap.Float64("risk", res.Risk))
	}

	transitioned := p.Status != domain.StatusCompleted && res.Status != p.Status
	if transitioned {
		if err := e.Repo.UpdateProjectHealthTx(ctx, tx, projectID, res.Score, res.Status); err != nil {
			return NeutralScore, err
		}
		if err := e.Activity.Append(ctx, tx, projectID, p.AdminID, domain.ActivityProjectStatusChanged,
			fmt.Sprintf("Status changed to %s", res.Status),
			fmt.Sprintf("Health score: %d. Status automatically updated from %s to %s.", res.Score, p.Status, res.Status)); err != nil {
			return NeutralScore, err
		}
		if err := e.Notify.Append(ctx, tx, p.AdminID, "Project Status Changed",
			fmt.Sprintf("Project %q status changed to %s", p.Name, res.Status),
			domain.NotifyStatusChange, "/projects/"+projectID); err != nil {
			return NeutralScore, err
		}
	} else {
		if err := e.Repo.UpdateProjectScoreTx(ctx, tx, projectID, res.Score); err != nil {
			return NeutralScore, err
		}
	}
	if err := tx.Commit(); err != nil {
		return NeutralScore, err
	}
	if transitioned {
		metrics.RecalculationCount.WithLabelValues("transitioned").Inc()
		metrics.StatusTransitionCount.WithLabelValues(string(p.Status), string(res.Status)).Inc()
	} else {
		metrics.RecalculationCount.WithLabelValues("updated").Inc()
	}
	return res.Score, nil
}

// scoringWeights prefers a project's stored config over the engine
// default.
func (e Engine) scoringWeights(ctx context.Context, projectID string) health.Weights {
	if cfg, err := e.Repo.GetProjectConfig(ctx, projectID); err == nil {
		return cfg.Scoring
	}
	if e.Config != nil {
		return e.Config.Scoring
	}
	return health.DefaultWeights()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
