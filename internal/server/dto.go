package server

import (
	"pulseline/internal/domain"
)

// Request payloads

type CreateProjectRequest struct {
	ID          *string `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	StartDate   string  `json:"start_date" format:"date-time"`
	EndDate     string  `json:"end_date" format:"date-time"`
	AdminID     string  `json:"admin_id"`
	ClientID    *string `json:"client_id,omitempty"`
}

type SubmitCheckInRequest struct {
	EmployeeID        string  `json:"employee_id"`
	ProgressSummary   string  `json:"progress_summary"`
	Blockers          *string `json:"blockers,omitempty"`
	ConfidenceLevel   int     `json:"confidence_level" minimum:"1" maximum:"5"`
	CompletionPercent int     `json:"completion_percent" minimum:"0" maximum:"100"`
}

type SubmitFeedbackRequest struct {
	ClientID             string  `json:"client_id"`
	SatisfactionRating   int     `json:"satisfaction_rating" minimum:"1" maximum:"5"`
	CommunicationClarity int     `json:"communication_clarity" minimum:"1" maximum:"5"`
	Comments             *string `json:"comments,omitempty"`
	FlaggedIssue         bool    `json:"flagged_issue,omitempty"`
}

type CreateRiskRequest struct {
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	Severity       string  `json:"severity" enum:"LOW,MEDIUM,HIGH"`
	MitigationPlan *string `json:"mitigation_plan,omitempty"`
	ActorID        *string `json:"actor_id,omitempty"`
}

type UpdateRiskRequest struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	Severity       *string `json:"severity,omitempty" enum:"LOW,MEDIUM,HIGH"`
	MitigationPlan *string `json:"mitigation_plan,omitempty"`
	Status         *string `json:"status,omitempty" enum:"OPEN,RESOLVED"`
	ActorID        *string `json:"actor_id,omitempty"`
}

// Response payloads

type ProjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status" enum:"ON_TRACK,AT_RISK,CRITICAL,COMPLETED"`
	HealthScore int    `json:"health_score" minimum:"0" maximum:"100"`
	StartDate   string `json:"start_date" format:"date-time"`
	EndDate     string `json:"end_date" format:"date-time"`
	AdminID     string `json:"admin_id"`
	ClientID    string `json:"client_id,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type CheckInResponse struct {
	ID                string  `json:"id"`
	ProjectID         string  `json:"project_id"`
	EmployeeID        string  `json:"employee_id"`
	WeekNumber        int     `json:"week_number"`
	Year              int     `json:"year"`
	ProgressSummary   string  `json:"progress_summary"`
	Blockers          *string `json:"blockers,omitempty"`
	ConfidenceLevel   int     `json:"confidence_level"`
	CompletionPercent int     `json:"completion_percent"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
}

type FeedbackResponse struct {
	ID                   string  `json:"id"`
	ProjectID            string  `json:"project_id"`
	ClientID             string  `json:"client_id"`
	WeekNumber           int     `json:"week_number"`
	Year                 int     `json:"year"`
	SatisfactionRating   int     `json:"satisfaction_rating"`
	CommunicationClarity int     `json:"communication_clarity"`
	Comments             *string `json:"comments,omitempty"`
	FlaggedIssue         bool    `json:"flagged_issue"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
}

type RiskResponse struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Severity       string  `json:"severity" enum:"LOW,MEDIUM,HIGH"`
	Status         string  `json:"status" enum:"OPEN,RESOLVED"`
	MitigationPlan string  `json:"mitigation_plan,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
	ResolvedAt     *string `json:"resolved_at,omitempty" format:"date-time"`
}

type ActivityResponse struct {
	ID          int64  `json:"id"`
	ProjectID   string `json:"project_id"`
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type NotificationResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type RecalculateResponse struct {
	ProjectID   string `json:"project_id"`
	HealthScore int    `json:"health_score" minimum:"0" maximum:"100"`
	Status      string `json:"status" enum:"ON_TRACK,AT_RISK,CRITICAL,COMPLETED"`
}

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Status:      string(p.Status),
		HealthScore: p.HealthScore,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		AdminID:     p.AdminID,
		ClientID:    p.ClientID,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

func mapProjects(items []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(items))
	for _, p := range items {
		out = append(out, projectResponse(p))
	}
	return out
}

func checkInResponse(ci domain.CheckIn) CheckInResponse {
	return CheckInResponse{
		ID:                ci.ID,
		ProjectID:         ci.ProjectID,
		EmployeeID:        ci.EmployeeID,
		WeekNumber:        ci.WeekNumber,
		Year:              ci.Year,
		ProgressSummary:   ci.ProgressSummary,
		Blockers:          ci.Blockers,
		ConfidenceLevel:   ci.ConfidenceLevel,
		CompletionPercent: ci.CompletionPercent,
		CreatedAt:         ci.CreatedAt,
	}
}

func mapCheckIns(items []domain.CheckIn) []CheckInResponse {
	out := make([]CheckInResponse, 0, len(items))
	for _, ci := range items {
		out = append(out, checkInResponse(ci))
	}
	return out
}

func feedbackResponse(fb domain.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:                   fb.ID,
		ProjectID:            fb.ProjectID,
		ClientID:             fb.ClientID,
		WeekNumber:           fb.WeekNumber,
		Year:                 fb.Year,
		SatisfactionRating:   fb.SatisfactionRating,
		CommunicationClarity: fb.CommunicationClarity,
		Comments:             fb.Comments,
		FlaggedIssue:         fb.FlaggedIssue,
		CreatedAt:            fb.CreatedAt,
	}
}

func mapFeedback(items []domain.Feedback) []FeedbackResponse {
	out := make([]FeedbackResponse, 0, len(items))
	for _, fb := range items {
		out = append(out, feedbackResponse(fb))
	}
	return out
}

func riskResponse(rk domain.Risk) RiskResponse {
	return RiskResponse{
		ID:             rk.ID,
		ProjectID:      rk.ProjectID,
		Title:          rk.Title,
		Description:    rk.Description,
		Severity:       string(rk.Severity),
		Status:         string(rk.Status),
		MitigationPlan: rk.MitigationPlan,
		CreatedAt:      rk.CreatedAt,
		UpdatedAt:      rk.UpdatedAt,
		ResolvedAt:     rk.ResolvedAt,
	}
}

func mapRisks(items []domain.Risk) []RiskResponse {
	out := make([]RiskResponse, 0, len(items))
	for _, rk := range items {
		out = append(out, riskResponse(rk))
	}
	return out
}

func mapActivity(items []domain.ActivityLogEntry) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(items))
	for _, e := range items {
		out = append(out, ActivityResponse{
			ID:          e.ID,
			ProjectID:   e.ProjectID,
			UserID:      e.UserID,
			Type:        e.Type,
			Title:       e.Title,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

func mapNotifications(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			UserID:    n.UserID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
