package domain

// ProjectStatus is the derived lifecycle state of a project.
type ProjectStatus string

const (
	StatusOnTrack   ProjectStatus = "ON_TRACK"
	StatusAtRisk    ProjectStatus = "AT_RISK"
	StatusCritical  ProjectStatus = "CRITICAL"
	StatusCompleted ProjectStatus = "COMPLETED"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusOnTrack, StatusAtRisk, StatusCritical, StatusCompleted:
		return true
	default:
		return false
	}
}

// RiskSeverity grades an open risk.
type RiskSeverity string

const (
	SeverityLow    RiskSeverity = "LOW"
	SeverityMedium RiskSeverity = "MEDIUM"
	SeverityHigh   RiskSeverity = "HIGH"
)

func (s RiskSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// RiskStatus tracks whether a risk still counts toward exposure.
type RiskStatus string

const (
	RiskOpen     RiskStatus = "OPEN"
	RiskResolved RiskStatus = "RESOLVED"
)

func (s RiskStatus) IsValid() bool {
	return s == RiskOpen || s == RiskResolved
}

// Activity types appended by the engine.
const (
	ActivityProjectCreated       = "PROJECT_CREATED"
	ActivityProjectStatusChanged = "PROJECT_STATUS_CHANGED"
	ActivityCheckInSubmitted     = "CHECK_IN_SUBMITTED"
	ActivityFeedbackSubmitted    = "FEEDBACK_SUBMITTED"
	ActivityRiskCreated          = "RISK_CREATED"
	ActivityRiskResolved         = "RISK_RESOLVED"
)

// Notification types appended by the engine.
const (
	NotifyStatusChange  = "STATUS_CHANGE"
	NotifyLowConfidence = "LOW_CONFIDENCE"
	NotifyIssueFlagged  = "ISSUE_FLAGGED"
	NotifyHighRisk      = "HIGH_RISK"
)

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role" enum:"ADMIN,EMPLOYEE,CLIENT"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      ProjectStatus `json:"status" enum:"ON_TRACK,AT_RISK,CRITICAL,COMPLETED"`
	HealthScore int           `json:"health_score" minimum:"0" maximum:"100"`
	StartDate   string        `json:"start_date" format:"date-time"`
	EndDate     string        `json:"end_date" format:"date-time"`
	AdminID     string        `json:"admin_id"`
	ClientID    string        `json:"client_id,omitempty"`
	Description string        `json:"description,omitempty"`
	CreatedAt   string        `json:"created_at" format:"date-time"`
}

// CheckIn is an employee's weekly signal; immutable once created.
type CheckIn struct {
	ID                string  `json:"id"`
	ProjectID         string  `json:"project_id"`
	EmployeeID        string  `json:"employee_id"`
	WeekNumber        int     `json:"week_number"`
	Year              int     `json:"year"`
	ProgressSummary   string  `json:"progress_summary"`
	Blockers          *string `json:"blockers,omitempty"`
	ConfidenceLevel   int     `json:"confidence_level" minimum:"1" maximum:"5"`
	CompletionPercent int     `json:"completion_percent" minimum:"0" maximum:"100"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
}

// Feedback is a client's weekly signal; immutable once created.
type Feedback struct {
	ID                   string  `json:"id"`
	ProjectID            string  `json:"project_id"`
	ClientID             string  `json:"client_id"`
	WeekNumber           int     `json:"week_number"`
	Year                 int     `json:"year"`
	SatisfactionRating   int     `json:"satisfaction_rating" minimum:"1" maximum:"5"`
	CommunicationClarity int     `json:"communication_clarity" minimum:"1" maximum:"5"`
	Comments             *string `json:"comments,omitempty"`
	FlaggedIssue         bool    `json:"flagged_issue"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
}

type Risk struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Severity       RiskSeverity `json:"severity" enum:"LOW,MEDIUM,HIGH"`
	Status         RiskStatus   `json:"status" enum:"OPEN,RESOLVED"`
	MitigationPlan string       `json:"mitigation_plan,omitempty"`
	CreatedAt      string       `json:"created_at" format:"date-time"`
	UpdatedAt      string       `json:"updated_at" format:"date-time"`
	ResolvedAt     *string      `json:"resolved_at,omitempty" format:"date-time"`
}

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID          int64  `json:"id"`
	ProjectID   string `json:"project_id"`
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
