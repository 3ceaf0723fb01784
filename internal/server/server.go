// Package server exposes the engine over HTTP with a stable error
// envelope and generated OpenAPI docs.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pulseline/internal/domain"
	"pulseline/internal/engine"
	"pulseline/internal/metrics"
	"pulseline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Log      *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"weekly_limit"`
	Message string         `json:"message" example:"already submitted for this week"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Pulseline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyBytesKey{}, bodyBytes)))
		})
	})
	router.Use(requestLogger(log))
	hcfg := huma.DefaultConfig("Pulseline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerProjects(group, cfg.Engine)
	registerCheckIns(group, cfg.Engine)
	registerFeedback(group, cfg.Engine)
	registerRisks(group, cfg.Engine)
	registerActivity(group, cfg.Engine)
	registerNotifications(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)
	router.Handle("/metrics", promhttp.Handler())

	return router, nil
}

// requestLogger records one log line and one histogram sample per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)
			pattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Observe(elapsed.Seconds())
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", elapsed))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func bodyBytes(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyBytesKey{}).([]byte)
	return b
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrWeeklyDuplicate) {
		return newAPIError(http.StatusConflict, "weekly_limit", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid"),
		strings.Contains(lowered, "required"),
		strings.Contains(lowered, "must be between"),
		strings.Contains(lowered, "before start"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Pulseline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		start, err := time.Parse(time.RFC3339, input.Body.StartDate)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid start_date", nil)
		}
		end, err := time.Parse(time.RFC3339, input.Body.EndDate)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid end_date", nil)
		}
		opts := engine.ProjectCreateOptions{
			Name:      input.Body.Name,
			StartDate: start,
			EndDate:   end,
			AdminID:   input.Body.AdminID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.Description != nil {
			opts.Description = *input.Body.Description
		}
		if input.Body.ClientID != nil {
			opts.ClientID = *input.Body.ClientID
		}
		p, err := e.InitProject(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: mapProjects(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/complete",
		Summary:     "Mark project completed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ActorID   string `query:"actor_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.CompleteProject(ctx, input.ProjectID, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recalculate-health",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/recalculate",
		Summary:     "Recalculate health score",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body RecalculateResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		score, err := e.RecalculateHealthScore(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RecalculateResponse `json:"body"`
		}{Body: RecalculateResponse{
			ProjectID:   p.ID,
			HealthScore: score,
			Status:      string(p.Status),
		}}, nil
	})
}

func registerCheckIns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-checkin",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/checkins",
		Summary:       "Submit weekly check-in",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      SubmitCheckInRequest `json:"body"`
	}) (*struct {
		Body CheckInResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		opts := engine.CheckInOptions{
			ProjectID:         input.ProjectID,
			EmployeeID:        input.Body.EmployeeID,
			ProgressSummary:   input.Body.ProgressSummary,
			ConfidenceLevel:   input.Body.ConfidenceLevel,
			CompletionPercent: input.Body.CompletionPercent,
		}
		if input.Body.Blockers != nil {
			opts.Blockers = *input.Body.Blockers
		}
		ci, err := e.SubmitCheckIn(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CheckInResponse `json:"body"`
		}{Body: checkInResponse(ci)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-checkins",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/checkins",
		Summary:     "List check-ins",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID  string `path:"project_id"`
		EmployeeID string `query:"employee_id"`
	}) (*struct {
		Body []CheckInResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListCheckIns(ctx, input.ProjectID, input.EmployeeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CheckInResponse `json:"body"`
		}{Body: mapCheckIns(items)}, nil
	})
}

func registerFeedback(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-feedback",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/feedback",
		Summary:       "Submit client feedback",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID string                `path:"project_id"`
		Body      SubmitFeedbackRequest `json:"body"`
	}) (*struct {
		Body FeedbackResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		opts := engine.FeedbackOptions{
			ProjectID:            input.ProjectID,
			ClientID:             input.Body.ClientID,
			SatisfactionRating:   input.Body.SatisfactionRating,
			CommunicationClarity: input.Body.CommunicationClarity,
			FlaggedIssue:         input.Body.FlaggedIssue,
		}
		if input.Body.Comments != nil {
			opts.Comments = *input.Body.Comments
		}
		fb, err := e.SubmitFeedback(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body FeedbackResponse `json:"body"`
		}{Body: feedbackResponse(fb)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-feedback",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/feedback",
		Summary:     "List feedback",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []FeedbackResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListFeedback(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []FeedbackResponse `json:"body"`
		}{Body: mapFeedback(items)}, nil
	})
}

func registerRisks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-risk",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/risks",
		Summary:       "Create risk",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string            `path:"project_id"`
		Body      CreateRiskRequest `json:"body"`
	}) (*struct {
		Body RiskResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		opts := engine.RiskCreateOptions{
			ProjectID: input.ProjectID,
			Title:     input.Body.Title,
			Severity:  domain.RiskSeverity(input.Body.Severity),
		}
		if input.Body.Description != nil {
			opts.Description = *input.Body.Description
		}
		if input.Body.MitigationPlan != nil {
			opts.MitigationPlan = *input.Body.MitigationPlan
		}
		if input.Body.ActorID != nil {
			opts.ActorID = *input.Body.ActorID
		}
		rk, err := e.CreateRisk(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RiskResponse `json:"body"`
		}{Body: riskResponse(rk)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-risks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/risks",
		Summary:     "List risks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Severity  string `query:"severity" enum:"LOW,MEDIUM,HIGH"`
		Status    string `query:"status" enum:"OPEN,RESOLVED"`
	}) (*struct {
		Body []RiskResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListRisks(ctx, input.ProjectID,
			domain.RiskSeverity(input.Severity), domain.RiskStatus(input.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []RiskResponse `json:"body"`
		}{Body: mapRisks(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-risk",
		Method:      http.MethodPatch,
		Path:        "/risks/{risk_id}",
		Summary:     "Update risk",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RiskID string            `path:"risk_id"`
		Body   UpdateRiskRequest `json:"body"`
	}) (*struct {
		Body RiskResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		opts := engine.RiskUpdateOptions{
			ID:             input.RiskID,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			MitigationPlan: input.Body.MitigationPlan,
		}
		if input.Body.Severity != nil {
			sev := domain.RiskSeverity(*input.Body.Severity)
			opts.Severity = &sev
		}
		if input.Body.Status != nil {
			st := domain.RiskStatus(*input.Body.Status)
			opts.Status = &st
		}
		if input.Body.ActorID != nil {
			opts.ActorID = *input.Body.ActorID
		}
		rk, err := e.UpdateRisk(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RiskResponse `json:"body"`
		}{Body: riskResponse(rk)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-risk",
		Method:        http.MethodDelete,
		Path:          "/risks/{risk_id}",
		Summary:       "Delete risk",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RiskID  string `path:"risk_id"`
		ActorID string `query:"actor_id"`
	}) (*struct{}, error) {
		if err := e.DeleteRisk(ctx, input.RiskID, input.ActorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActivity(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/activity",
		Summary:     "List activity log",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Limit     int    `query:"limit" minimum:"1" maximum:"500"`
	}) (*struct {
		Body []ActivityResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		limit := input.Limit
		if limit == 0 {
			limit = 50
		}
		items, err := e.Repo.ListActivity(ctx, input.ProjectID, limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ActivityResponse `json:"body"`
		}{Body: mapActivity(items)}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := e.Repo.GetUser(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List notifications",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id" required:"true"`
		Unread bool   `query:"unread"`
	}) (*struct {
		Body []NotificationResponse `json:"body"`
	}, error) {
		if input.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		items, err := e.Repo.ListNotifications(ctx, input.UserID, input.Unread)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []NotificationResponse `json:"body"`
		}{Body: mapNotifications(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark notification read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := e.Repo.MarkNotificationRead(ctx, input.NotificationID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "read"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-all-notifications",
		Method:      http.MethodPost,
		Path:        "/notifications/read-all",
		Summary:     "Mark all notifications read",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id" required:"true"`
	}) (*struct {
		Body map[string]int64 `json:"body"`
	}, error) {
		if input.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		n, err := e.Repo.MarkAllNotificationsRead(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]int64 `json:"body"`
		}{Body: map[string]int64{"marked": n}}, nil
	})
}
