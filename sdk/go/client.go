package pulselinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Pulseline HTTP API client.
type Client struct {
	BaseURL    string
	ProjectID  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Project represents the API project model.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	HealthScore int    `json:"health_score"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AdminID     string `json:"admin_id"`
	ClientID    string `json:"client_id,omitempty"`
}

// CheckIn represents a weekly employee check-in.
type CheckIn struct {
	ID                string `json:"id"`
	ProjectID         string `json:"project_id"`
	EmployeeID        string `json:"employee_id"`
	WeekNumber        int    `json:"week_number"`
	Year              int    `json:"year"`
	ProgressSummary   string `json:"progress_summary"`
	ConfidenceLevel   int    `json:"confidence_level"`
	CompletionPercent int    `json:"completion_percent"`
	CreatedAt         string `json:"created_at"`
}

// Feedback represents weekly client feedback.
type Feedback struct {
	ID                   string `json:"id"`
	ProjectID            string `json:"project_id"`
	ClientID             string `json:"client_id"`
	WeekNumber           int    `json:"week_number"`
	Year                 int    `json:"year"`
	SatisfactionRating   int    `json:"satisfaction_rating"`
	CommunicationClarity int    `json:"communication_clarity"`
	FlaggedIssue         bool   `json:"flagged_issue"`
	CreatedAt            string `json:"created_at"`
}

// Risk represents a project risk.
type Risk struct {
	ID         string  `json:"id"`
	ProjectID  string  `json:"project_id"`
	Title      string  `json:"title"`
	Severity   string  `json:"severity"`
	Status     string  `json:"status"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// HealthResult is the recalculation outcome.
type HealthResult struct {
	ProjectID   string `json:"project_id"`
	HealthScore int    `json:"health_score"`
	Status      string `json:"status"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// GetProject fetches the configured project.
func (c *Client) GetProject(ctx context.Context) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, c.projectPath(""), nil, &resp)
	return resp, err
}

// SubmitCheckIn submits this week's employee check-in.
func (c *Client) SubmitCheckIn(ctx context.Context, employeeID, summary string, confidence, completion int) (CheckIn, error) {
	body := map[string]any{
		"employee_id":        employeeID,
		"progress_summary":   summary,
		"confidence_level":   confidence,
		"completion_percent": completion,
	}
	var resp CheckIn
	err := c.do(ctx, http.MethodPost, c.projectPath("checkins"), body, &resp)
	return resp, err
}

// SubmitFeedback submits this week's client feedback.
func (c *Client) SubmitFeedback(ctx context.Context, clientID string, satisfaction, clarity int, flagged bool) (Feedback, error) {
	body := map[string]any{
		"client_id":             clientID,
		"satisfaction_rating":   satisfaction,
		"communication_clarity": clarity,
		"flagged_issue":         flagged,
	}
	var resp Feedback
	err := c.do(ctx, http.MethodPost, c.projectPath("feedback"), body, &resp)
	return resp, err
}

// CreateRisk opens a risk on the project.
func (c *Client) CreateRisk(ctx context.Context, title, severity string) (Risk, error) {
	body := map[string]any{
		"title":    title,
		"severity": severity,
	}
	var resp Risk
	err := c.do(ctx, http.MethodPost, c.projectPath("risks"), body, &resp)
	return resp, err
}

// ResolveRisk marks a risk resolved.
func (c *Client) ResolveRisk(ctx context.Context, riskID string) (Risk, error) {
	body := map[string]any{"status": "RESOLVED"}
	var resp Risk
	endpoint := fmt.Sprintf("v0/risks/%s", url.PathEscape(riskID))
	err := c.do(ctx, http.MethodPatch, endpoint, body, &resp)
	return resp, err
}

// Recalculate forces a health score recalculation.
func (c *Client) Recalculate(ctx context.Context) (HealthResult, error) {
	var resp HealthResult
	err := c.do(ctx, http.MethodPost, c.projectPath("recalculate"), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	if p == "" {
		return fmt.Sprintf("v0/projects/%s", project)
	}
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
