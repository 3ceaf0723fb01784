package health

import (
	"fmt"
	"math"
)

// Weights holds every tunable of the scoring engine. The four component
// weights must sum to 1. Defaults follow the canonical product weighting;
// a project can override them through its stored config.
type Weights struct {
	Satisfaction float64 `yaml:"satisfaction" json:"satisfaction"`
	Confidence   float64 `yaml:"confidence" json:"confidence"`
	Schedule     float64 `yaml:"schedule" json:"schedule"`
	Risk         float64 `yaml:"risk" json:"risk"`

	HighRiskPenalty     float64 `yaml:"high_risk_penalty" json:"high_risk_penalty"`
	MediumRiskPenalty   float64 `yaml:"medium_risk_penalty" json:"medium_risk_penalty"`
	LowRiskPenalty      float64 `yaml:"low_risk_penalty" json:"low_risk_penalty"`
	FlaggedIssuePenalty float64 `yaml:"flagged_issue_penalty" json:"flagged_issue_penalty"`

	SatisfactionDefault float64 `yaml:"satisfaction_default" json:"satisfaction_default"`
	ConfidenceDefault   float64 `yaml:"confidence_default" json:"confidence_default"`
	ScheduleDefault     float64 `yaml:"schedule_default" json:"schedule_default"`

	// SignalWindow is how many recent feedback and check-in records feed
	// the averages.
	SignalWindow int `yaml:"signal_window" json:"signal_window"`
}

// DefaultWeights returns the canonical weighting scheme.
func DefaultWeights() Weights {
	return Weights{
		Satisfaction:        0.30,
		Confidence:          0.25,
		Schedule:            0.25,
		Risk:                0.20,
		HighRiskPenalty:     15,
		MediumRiskPenalty:   8,
		LowRiskPenalty:      3,
		FlaggedIssuePenalty: 10,
		SatisfactionDefault: 60,
		ConfidenceDefault:   60,
		ScheduleDefault:     50,
		SignalWindow:        4,
	}
}

func (w Weights) Validate() error {
	sum := w.Satisfaction + w.Confidence + w.Schedule + w.Risk
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("component weights must sum to 1.0, got %g", sum)
	}
	if w.Satisfaction < 0 || w.Confidence < 0 || w.Schedule < 0 || w.Risk < 0 {
		return fmt.Errorf("component weights must be non-negative")
	}
	if w.HighRiskPenalty < 0 || w.MediumRiskPenalty < 0 || w.LowRiskPenalty < 0 || w.FlaggedIssuePenalty < 0 {
		return fmt.Errorf("risk penalties must be non-negative")
	}
	for _, d := range []float64{w.SatisfactionDefault, w.ConfidenceDefault, w.ScheduleDefault} {
		if d < 0 || d > 100 {
			return fmt.Errorf("component defaults must be within [0,100], got %g", d)
		}
	}
	if w.SignalWindow <= 0 {
		return fmt.Errorf("signal window must be positive, got %d", w.SignalWindow)
	}
	return nil
}
