package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulseline/internal/config"
	"pulseline/internal/db"
	"pulseline/internal/domain"
	"pulseline/internal/engine"
	"pulseline/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

// newTestEnv opens a fresh database with one project running the whole
// of 2024, with the clock frozen at mid-year.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("proj-1"), nil)
	eng.Now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.InitProject(ctx, engine.ProjectCreateOptions{
		ID:        "proj-1",
		Name:      "Atlas Rollout",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		AdminID:   "admin-1",
		ClientID:  "client-1",
	}); err != nil {
		t.Fatalf("init project: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func (env testEnv) project(t *testing.T) domain.Project {
	t.Helper()
	p, err := env.Engine.Repo.GetProject(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	return p
}

func (env testEnv) countActivity(t *testing.T, entryType string) int {
	t.Helper()
	entries, err := env.Engine.Repo.ListActivity(env.Ctx, "proj-1", 100)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	n := 0
	for _, e := range entries {
		if e.Type == entryType {
			n++
		}
	}
	return n
}

func (env testEnv) countNotifications(t *testing.T, notifType string) int {
	t.Helper()
	ns, err := env.Engine.Repo.ListNotifications(env.Ctx, "admin-1", false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	n := 0
	for _, nt := range ns {
		if nt.Type == notifType {
			n++
		}
	}
	return n
}

func TestRecalculateBaseline(t *testing.T) {
	env := newTestEnv(t)
	// No signals at all: satisfaction 60, confidence 60, schedule 50,
	// risk 100 -> 65.5 rounds to 66, AT_RISK.
	score, err := env.Engine.RecalculateHealthScore(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if score != 66 {
		t.Fatalf("baseline score = %d, want 66", score)
	}
	p := env.project(t)
	if p.Status != domain.StatusAtRisk {
		t.Fatalf("status = %s, want AT_RISK", p.Status)
	}
	if got := env.countActivity(t, domain.ActivityProjectStatusChanged); got != 1 {
		t.Fatalf("status-change activity entries = %d, want 1", got)
	}
	if got := env.countNotifications(t, domain.NotifyStatusChange); got != 1 {
		t.Fatalf("status-change notifications = %d, want 1", got)
	}

	// Same signals again: score unchanged, no second transition.
	if _, err := env.Engine.RecalculateHealthScore(env.Ctx, "proj-1"); err != nil {
		t.Fatalf("recalculate again: %v", err)
	}
	if got := env.countActivity(t, domain.ActivityProjectStatusChanged); got != 1 {
		t.Fatalf("repeat recalc produced extra transitions: %d entries", got)
	}
}

func TestRecalculateMissingProject(t *testing.T) {
	env := newTestEnv(t)
	score, err := env.Engine.RecalculateHealthScore(env.Ctx, "no-such-project")
	if err != nil {
		t.Fatalf("missing project should be a no-op, got %v", err)
	}
	if score != engine.NeutralScore {
		t.Fatalf("score = %d, want neutral %d", score, engine.NeutralScore)
	}
}

func TestWeeklyDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	opts := engine.CheckInOptions{
		ProjectID:         "proj-1",
		EmployeeID:        "emp-1",
		ProgressSummary:   "on track",
		ConfidenceLevel:   4,
		CompletionPercent: 50,
	}
	if _, err := env.Engine.SubmitCheckIn(env.Ctx, opts); err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	if _, err := env.Engine.SubmitCheckIn(env.Ctx, opts); !errors.Is(err, engine.ErrWeeklyDuplicate) {
		t.Fatalf("second check-in err = %v, want ErrWeeklyDuplicate", err)
	}
	// Another employee in the same week is fine.
	opts.EmployeeID = "emp-2"
	if _, err := env.Engine.SubmitCheckIn(env.Ctx, opts); err != nil {
		t.Fatalf("other employee check-in: %v", err)
	}
	// Next week, the first employee can submit again.
	env.Engine.Now = func() time.Time { return time.Date(2024, 7, 8, 12, 0, 0, 0, time.UTC) }
	opts.EmployeeID = "emp-1"
	if _, err := env.Engine.SubmitCheckIn(env.Ctx, opts); err != nil {
		t.Fatalf("next week check-in: %v", err)
	}
}

func TestFeedbackWeeklyDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	opts := engine.FeedbackOptions{
		ProjectID:            "proj-1",
		ClientID:             "client-1",
		SatisfactionRating:   4,
		CommunicationClarity: 4,
	}
	if _, err := env.Engine.SubmitFeedback(env.Ctx, opts); err != nil {
		t.Fatalf("first feedback: %v", err)
	}
	if _, err := env.Engine.SubmitFeedback(env.Ctx, opts); !errors.Is(err, engine.ErrWeeklyDuplicate) {
		t.Fatalf("second feedback err = %v, want ErrWeeklyDuplicate", err)
	}
}

func TestLowConfidenceNotifiesAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.SubmitCheckIn(env.Ctx, engine.CheckInOptions{
		ProjectID:         "proj-1",
		EmployeeID:        "emp-1",
		ProgressSummary:   "struggling",
		ConfidenceLevel:   2,
		CompletionPercent: 20,
	})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if got := env.countNotifications(t, domain.NotifyLowConfidence); got != 1 {
		t.Fatalf("low-confidence notifications = %d, want 1", got)
	}
}

func TestFlaggedFeedbackNotifiesAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.SubmitFeedback(env.Ctx, engine.FeedbackOptions{
		ProjectID:            "proj-1",
		ClientID:             "client-1",
		SatisfactionRating:   2,
		CommunicationClarity: 3,
		FlaggedIssue:         true,
	})
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if got := env.countNotifications(t, domain.NotifyIssueFlagged); got != 1 {
		t.Fatalf("issue-flagged notifications = %d, want 1", got)
	}
}

func TestHighRiskLowersScoreAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.RecalculateHealthScore(env.Ctx, "proj-1"); err != nil {
		t.Fatal(err)
	}
	rk, err := env.Engine.CreateRisk(env.Ctx, engine.RiskCreateOptions{
		ProjectID: "proj-1",
		Title:     "Vendor slipping",
		Severity:  domain.SeverityHigh,
		ActorID:   "admin-1",
	})
	if err != nil {
		t.Fatalf("create risk: %v", err)
	}
	// One HIGH risk costs 15 exposure points at weight 0.20: 66 -> 63.
	p := env.project(t)
	if p.HealthScore != 63 {
		t.Fatalf("score with high risk = %d, want 63", p.HealthScore)
	}
	if got := env.countNotifications(t, domain.NotifyHighRisk); got != 1 {
		t.Fatalf("high-risk notifications = %d, want 1", got)
	}

	// Resolving the risk restores the baseline and stamps resolved_at.
	status := domain.RiskResolved
	rk, err = env.Engine.UpdateRisk(env.Ctx, engine.RiskUpdateOptions{
		ID:      rk.ID,
		Status:  &status,
		ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("resolve risk: %v", err)
	}
	if rk.ResolvedAt == nil {
		t.Fatal("resolved risk has no resolved_at")
	}
	if got := env.countActivity(t, domain.ActivityRiskResolved); got != 1 {
		t.Fatalf("risk-resolved activity entries = %d, want 1", got)
	}
	if p = env.project(t); p.HealthScore != 66 {
		t.Fatalf("score after resolve = %d, want 66", p.HealthScore)
	}
}

func TestDeleteRiskRecalculates(t *testing.T) {
	env := newTestEnv(t)
	rk, err := env.Engine.CreateRisk(env.Ctx, engine.RiskCreateOptions{
		ProjectID: "proj-1",
		Title:     "Scope creep",
		Severity:  domain.SeverityMedium,
		ActorID:   "admin-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := env.project(t); p.HealthScore != 64 {
		t.Fatalf("score with medium risk = %d, want 64", p.HealthScore)
	}
	if err := env.Engine.DeleteRisk(env.Ctx, rk.ID, "admin-1"); err != nil {
		t.Fatalf("delete risk: %v", err)
	}
	if p := env.project(t); p.HealthScore != 66 {
		t.Fatalf("score after delete = %d, want 66", p.HealthScore)
	}
}

func TestHealthyProjectScoresHundred(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.SubmitFeedback(env.Ctx, engine.FeedbackOptions{
		ProjectID:            "proj-1",
		ClientID:             "client-1",
		SatisfactionRating:   5,
		CommunicationClarity: 5,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SubmitCheckIn(env.Ctx, engine.CheckInOptions{
		ProjectID:         "proj-1",
		EmployeeID:        "emp-1",
		ProgressSummary:   "ahead of plan",
		ConfidenceLevel:   5,
		CompletionPercent: 80,
	}); err != nil {
		t.Fatal(err)
	}
	p := env.project(t)
	if p.HealthScore != 100 {
		t.Fatalf("score = %d, want 100", p.HealthScore)
	}
	if p.Status != domain.StatusOnTrack {
		t.Fatalf("status = %s, want ON_TRACK", p.Status)
	}
}

func TestStackedRisksGoCritical(t *testing.T) {
	env := newTestEnv(t)
	for _, title := range []string{"db migration", "key hire left", "budget freeze"} {
		if _, err := env.Engine.CreateRisk(env.Ctx, engine.RiskCreateOptions{
			ProjectID: "proj-1",
			Title:     title,
			Severity:  domain.SeverityHigh,
			ActorID:   "admin-1",
		}); err != nil {
			t.Fatal(err)
		}
	}
	// Exposure 100-45=55 at weight 0.20: 18+15+12.5+11 = 56.5 -> 57.
	p := env.project(t)
	if p.HealthScore != 57 {
		t.Fatalf("score = %d, want 57", p.HealthScore)
	}
	if p.Status != domain.StatusCritical {
		t.Fatalf("status = %s, want CRITICAL", p.Status)
	}
}

func TestCompletedStatusIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CompleteProject(env.Ctx, "proj-1", "admin-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	// New signals still move the score but never the status.
	if _, err := env.Engine.SubmitCheckIn(env.Ctx, engine.CheckInOptions{
		ProjectID:         "proj-1",
		EmployeeID:        "emp-1",
		ProgressSummary:   "wrap-up",
		ConfidenceLevel:   1,
		CompletionPercent: 10,
	}); err != nil {
		t.Fatal(err)
	}
	p := env.project(t)
	if p.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", p.Status)
	}
	if p.HealthScore == 100 {
		t.Fatal("score was not recalculated after completion")
	}
	if got := env.countNotifications(t, domain.NotifyStatusChange); got != 0 {
		t.Fatalf("completed project produced %d status-change notifications", got)
	}
}

func TestProjectConfigOverridesWeights(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.Default("proj-1")
	cfg.Scoring.ScheduleDefault = 100
	if err := env.Engine.Repo.UpsertProjectConfig(env.Ctx, "proj-1", cfg); err != nil {
		t.Fatalf("upsert config: %v", err)
	}
	// 60*.30 + 60*.25 + 100*.25 + 100*.20 = 78.
	score, err := env.Engine.RecalculateHealthScore(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if score != 78 {
		t.Fatalf("score with overridden config = %d, want 78", score)
	}
}

func TestCompleteProjectIdempotent(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CompleteProject(env.Ctx, "proj-1", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CompleteProject(env.Ctx, "proj-1", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if got := env.countActivity(t, domain.ActivityProjectStatusChanged); got != 1 {
		t.Fatalf("completion activity entries = %d, want 1", got)
	}
}

func TestCheckInValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []engine.CheckInOptions{
		{ProjectID: "proj-1", EmployeeID: "emp-1", ProgressSummary: "x", ConfidenceLevel: 0, CompletionPercent: 10},
		{ProjectID: "proj-1", EmployeeID: "emp-1", ProgressSummary: "x", ConfidenceLevel: 6, CompletionPercent: 10},
		{ProjectID: "proj-1", EmployeeID: "emp-1", ProgressSummary: "x", ConfidenceLevel: 3, CompletionPercent: 101},
		{ProjectID: "proj-1", EmployeeID: "emp-1", ProgressSummary: "", ConfidenceLevel: 3, CompletionPercent: 10},
		{ProjectID: "proj-1", EmployeeID: "", ProgressSummary: "x", ConfidenceLevel: 3, CompletionPercent: 10},
	}
	for i, opts := range cases {
		if _, err := env.Engine.SubmitCheckIn(env.Ctx, opts); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestWeekOf(t *testing.T) {
	cases := []struct {
		t    time.Time
		week int
		year int
	}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1, 2024},
		{time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), 2, 2024},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 53, 2024},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 1, 2025},
	}
	for _, c := range cases {
		week, year := engine.WeekOf(c.t)
		if week != c.week || year != c.year {
			t.Fatalf("WeekOf(%s) = (%d, %d), want (%d, %d)", c.t, week, year, c.week, c.year)
		}
	}
}
