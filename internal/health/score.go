// Package health computes a project's 0-100 health score from its recent
// signals. All scorers are pure; persistence and side effects live in the
// engine package.
package health

import (
	"math"
	"time"

	"pulseline/internal/domain"
)

// Inputs are the raw signals for one recalculation. Feedback and CheckIns
// are expected most-recent-first and already limited to the signal window.
type Inputs struct {
	Feedback  []domain.Feedback
	CheckIns  []domain.CheckIn
	OpenRisks []domain.Risk
	StartDate time.Time
	EndDate   time.Time
	Now       time.Time
}

// Result carries the four sub-scores and the aggregated outcome.
type Result struct {
	Satisfaction float64
	Confidence   float64
	Schedule     float64
	Risk         float64
	Score        int
	Status       domain.ProjectStatus
	// Anomaly is set when the aggregate evaluated to NaN and the neutral
	// fallback was substituted.
	Anomaly bool
}

// Compute runs all four scorers, aggregates, and classifies.
func Compute(in Inputs, w Weights) Result {
	r := Result{
		Satisfaction: SatisfactionScore(in.Feedback, w),
		Confidence:   ConfidenceScore(in.CheckIns, w),
		Schedule:     ScheduleScore(in.CheckIns, in.StartDate, in.EndDate, in.Now, w),
		Risk:         RiskExposureScore(in.OpenRisks, in.Feedback, w),
	}
	r.Score, r.Anomaly = Aggregate(r.Satisfaction, r.Confidence, r.Schedule, r.Risk, w)
	r.Status = Classify(r.Score)
	return r
}

// SatisfactionScore averages recent feedback ratings (1-5) rescaled to
// 0-100. No feedback yields the configured neutral default.
func SatisfactionScore(feedback []domain.Feedback, w Weights) float64 {
	if len(feedback) == 0 {
		return w.SatisfactionDefault
	}
	sum := 0.0
	for _, fb := range feedback {
		sum += float64(fb.SatisfactionRating)
	}
	avg := sum / float64(len(feedback))
	return clamp((avg-1)*25, 0, 100)
}

// ConfidenceScore averages recent check-in confidence levels (1-5) rescaled
// to 0-100. No check-ins yields the configured neutral default.
func ConfidenceScore(checkIns []domain.CheckIn, w Weights) float64 {
	if len(checkIns) == 0 {
		return w.ConfidenceDefault
	}
	sum := 0.0
	for _, ci := range checkIns {
		sum += float64(ci.ConfidenceLevel)
	}
	avg := sum / float64(len(checkIns))
	return clamp((avg-1)*25, 0, 100)
}

// ScheduleScore compares the latest reported completion against the
// completion implied by linear time elapsed between start and end. Being at
// or ahead of schedule scores 100; every point of shortfall costs one point,
// floored at 0.
func ScheduleScore(checkIns []domain.CheckIn, start, end, now time.Time, w Weights) float64 {
	if len(checkIns) == 0 {
		return w.ScheduleDefault
	}
	latest := checkIns[0]
	total := end.Sub(start)
	expected := 100.0
	if total > 0 {
		expected = clamp(float64(now.Sub(start))/float64(total)*100, 0, 100)
	}
	score := 100 - clamp(expected-float64(latest.CompletionPercent), 0, 100)
	if math.IsNaN(score) {
		return w.ScheduleDefault
	}
	return score
}

// RiskExposureScore starts at 100 and subtracts per-severity penalties for
// each open risk plus a penalty per recent flagged-issue feedback, floored
// at 0.
func RiskExposureScore(openRisks []domain.Risk, feedback []domain.Feedback, w Weights) float64 {
	score := 100.0
	for _, r := range openRisks {
		switch r.Severity {
		case domain.SeverityHigh:
			score -= w.HighRiskPenalty
		case domain.SeverityMedium:
			score -= w.MediumRiskPenalty
		case domain.SeverityLow:
			score -= w.LowRiskPenalty
		}
	}
	for _, fb := range feedback {
		if fb.FlaggedIssue {
			score -= w.FlaggedIssuePenalty
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Aggregate combines the four sub-scores into the final integer score,
// rounding half up. A NaN aggregate reports an anomaly and falls back to
// the neutral 100 so a non-numeric value is never persisted.
func Aggregate(satisfaction, confidence, schedule, risk float64, w Weights) (int, bool) {
	total := satisfaction*w.Satisfaction + confidence*w.Confidence + schedule*w.Schedule + risk*w.Risk
	if math.IsNaN(total) {
		return 100, true
	}
	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, false
}

// Classify maps a final score to a project status. COMPLETED is never
// assigned here; it is terminal and set only by explicit completion.
func Classify(score int) domain.ProjectStatus {
	switch {
	case score >= 80:
		return domain.StatusOnTrack
	case score >= 60:
		return domain.StatusAtRisk
	default:
		return domain.StatusCritical
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
