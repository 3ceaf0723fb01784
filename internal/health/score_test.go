package health_test

import (
	"math"
	"testing"
	"time"

	"pulseline/internal/domain"
	"pulseline/internal/health"
)

var (
	start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mid   = start.Add(end.Sub(start) / 2)
)

func feedbackWithRatings(ratings ...int) []domain.Feedback {
	out := make([]domain.Feedback, len(ratings))
	for i, r := range ratings {
		out[i] = domain.Feedback{SatisfactionRating: r}
	}
	return out
}

func checkInsWithConfidence(levels ...int) []domain.CheckIn {
	out := make([]domain.CheckIn, len(levels))
	for i, l := range levels {
		out[i] = domain.CheckIn{ConfidenceLevel: l, CompletionPercent: 50}
	}
	return out
}

func TestDefaultWeightsValid(t *testing.T) {
	if err := health.DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
}

func TestWeightsValidate(t *testing.T) {
	w := health.DefaultWeights()
	w.Risk = 0.5
	if err := w.Validate(); err == nil {
		t.Fatalf("expected weight-sum error")
	}
	w = health.DefaultWeights()
	w.SignalWindow = 0
	if err := w.Validate(); err == nil {
		t.Fatalf("expected window error")
	}
	w = health.DefaultWeights()
	w.HighRiskPenalty = -1
	if err := w.Validate(); err == nil {
		t.Fatalf("expected penalty error")
	}
}

func TestSatisfactionScore(t *testing.T) {
	w := health.DefaultWeights()
	if got := health.SatisfactionScore(nil, w); got != 60 {
		t.Fatalf("empty feedback: got %v, want default 60", got)
	}
	if got := health.SatisfactionScore(feedbackWithRatings(5, 5), w); got != 100 {
		t.Fatalf("all fives: got %v, want 100", got)
	}
	if got := health.SatisfactionScore(feedbackWithRatings(1), w); got != 0 {
		t.Fatalf("rating 1: got %v, want 0", got)
	}
	if got := health.SatisfactionScore(feedbackWithRatings(3, 4), w); got != 62.5 {
		t.Fatalf("avg 3.5: got %v, want 62.5", got)
	}
}

func TestConfidenceScore(t *testing.T) {
	w := health.DefaultWeights()
	if got := health.ConfidenceScore(nil, w); got != 60 {
		t.Fatalf("empty check-ins: got %v, want default 60", got)
	}
	if got := health.ConfidenceScore(checkInsWithConfidence(5, 5, 5), w); got != 100 {
		t.Fatalf("all fives: got %v, want 100", got)
	}
}

func TestScheduleScore(t *testing.T) {
	w := health.DefaultWeights()
	if got := health.ScheduleScore(nil, start, end, mid, w); got != 50 {
		t.Fatalf("no check-ins: got %v, want default 50", got)
	}
	// 100% complete at midpoint: on or ahead of schedule.
	ahead := []domain.CheckIn{{CompletionPercent: 100}}
	if got := health.ScheduleScore(ahead, start, end, mid, w); got != 100 {
		t.Fatalf("ahead of schedule: got %v, want 100", got)
	}
	// 20% complete at midpoint with expected 50%: shortfall 30.
	behind := []domain.CheckIn{{CompletionPercent: 20}}
	if got := health.ScheduleScore(behind, start, end, mid, w); got != 70 {
		t.Fatalf("behind schedule: got %v, want 70", got)
	}
	// 0% complete past the end date: full shortfall, floored at 0.
	late := []domain.CheckIn{{CompletionPercent: 0}}
	after := end.Add(24 * time.Hour)
	if got := health.ScheduleScore(late, start, end, after, w); got != 0 {
		t.Fatalf("fully behind: got %v, want 0", got)
	}
	// Zero-duration project: expected progress pegs at 100.
	if got := health.ScheduleScore(behind, start, start, mid, w); got != 20 {
		t.Fatalf("zero duration: got %v, want 20", got)
	}
}

func TestRiskExposureScore(t *testing.T) {
	w := health.DefaultWeights()
	if got := health.RiskExposureScore(nil, nil, w); got != 100 {
		t.Fatalf("no risks: got %v, want 100", got)
	}
	risks := []domain.Risk{
		{Severity: domain.SeverityHigh},
		{Severity: domain.SeverityMedium},
		{Severity: domain.SeverityLow},
	}
	if got := health.RiskExposureScore(risks, nil, w); got != 74 {
		t.Fatalf("mixed risks: got %v, want 100-15-8-3=74", got)
	}
	flagged := []domain.Feedback{{FlaggedIssue: true}, {FlaggedIssue: false}}
	if got := health.RiskExposureScore(nil, flagged, w); got != 90 {
		t.Fatalf("one flagged issue: got %v, want 90", got)
	}
	many := make([]domain.Risk, 10)
	for i := range many {
		many[i] = domain.Risk{Severity: domain.SeverityHigh}
	}
	if got := health.RiskExposureScore(many, nil, w); got != 0 {
		t.Fatalf("overload: got %v, want floor 0", got)
	}
}

func TestAggregateRoundsHalfUp(t *testing.T) {
	w := health.DefaultWeights()
	// The no-signal baseline: 60*.30 + 60*.25 + 50*.25 + 100*.20 = 65.5.
	score, anomaly := health.Aggregate(60, 60, 50, 100, w)
	if anomaly {
		t.Fatalf("unexpected anomaly")
	}
	if score != 66 {
		t.Fatalf("baseline: got %d, want 66", score)
	}
}

func TestAggregateNaNFallback(t *testing.T) {
	w := health.DefaultWeights()
	score, anomaly := health.Aggregate(math.NaN(), 60, 50, 100, w)
	if !anomaly {
		t.Fatalf("expected anomaly flag")
	}
	if score != 100 {
		t.Fatalf("NaN fallback: got %d, want 100", score)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score int
		want  domain.ProjectStatus
	}{
		{100, domain.StatusOnTrack},
		{80, domain.StatusOnTrack},
		{79, domain.StatusAtRisk},
		{60, domain.StatusAtRisk},
		{59, domain.StatusCritical},
		{0, domain.StatusCritical},
	}
	for _, c := range cases {
		if got := health.Classify(c.score); got != c.want {
			t.Errorf("Classify(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestComputeNoSignalsBaseline(t *testing.T) {
	w := health.DefaultWeights()
	r := health.Compute(health.Inputs{StartDate: start, EndDate: end, Now: mid}, w)
	if r.Score != 66 {
		t.Fatalf("no-signal score: got %d, want 66", r.Score)
	}
	if r.Status != domain.StatusAtRisk {
		t.Fatalf("no-signal status: got %s, want AT_RISK", r.Status)
	}
}

func TestComputeOneHighRiskDelta(t *testing.T) {
	w := health.DefaultWeights()
	base := health.Compute(health.Inputs{StartDate: start, EndDate: end, Now: mid}, w)
	withRisk := health.Compute(health.Inputs{
		OpenRisks: []domain.Risk{{Severity: domain.SeverityHigh}},
		StartDate: start, EndDate: end, Now: mid,
	}, w)
	// 15 penalty * 0.20 weight = 3 points.
	if base.Score-withRisk.Score != 3 {
		t.Fatalf("high-risk delta: got %d, want 3", base.Score-withRisk.Score)
	}
}

func TestComputePerfectProject(t *testing.T) {
	w := health.DefaultWeights()
	r := health.Compute(health.Inputs{
		Feedback: feedbackWithRatings(5, 5, 5, 5),
		CheckIns: []domain.CheckIn{
			{ConfidenceLevel: 5, CompletionPercent: 100},
			{ConfidenceLevel: 5, CompletionPercent: 80},
		},
		StartDate: start, EndDate: end, Now: mid,
	}, w)
	if r.Score != 100 {
		t.Fatalf("perfect project: got %d, want 100", r.Score)
	}
	if r.Status != domain.StatusOnTrack {
		t.Fatalf("perfect project status: got %s, want ON_TRACK", r.Status)
	}
}

func TestComputeHighAndMediumRiskScenario(t *testing.T) {
	w := health.DefaultWeights()
	r := health.Compute(health.Inputs{
		OpenRisks: []domain.Risk{
			{Severity: domain.SeverityHigh},
			{Severity: domain.SeverityMedium},
		},
		StartDate: start, EndDate: end, Now: mid,
	}, w)
	if r.Risk != 77 {
		t.Fatalf("risk sub-score: got %v, want 77", r.Risk)
	}
	if r.Score != 61 {
		t.Fatalf("final score: got %d, want 61", r.Score)
	}
	if r.Status != domain.StatusAtRisk {
		t.Fatalf("status: got %s, want AT_RISK", r.Status)
	}
}

func TestComputeScoreAlwaysInRange(t *testing.T) {
	w := health.DefaultWeights()
	inputs := []health.Inputs{
		{},
		{Feedback: feedbackWithRatings(1, 1, 1, 1), CheckIns: checkInsWithConfidence(1, 1)},
		{Feedback: feedbackWithRatings(5, 5, 5, 5), CheckIns: checkInsWithConfidence(5, 5)},
		{OpenRisks: make([]domain.Risk, 50)},
	}
	for i, in := range inputs {
		in.StartDate, in.EndDate, in.Now = start, end, mid
		r := health.Compute(in, w)
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("case %d: score %d out of range", i, r.Score)
		}
	}
}
