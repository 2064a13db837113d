package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"nutriagent/internal/domain"
	"nutriagent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// useCase is the planning surface the handler depends on.
type useCase interface {
	GenerateDailyPlan(ctx context.Context, in usecase.GenerateDayInput) (usecase.GenerateDayOutput, error)
	GenerateWeek(ctx context.Context, in usecase.GenerateWeekInput) (usecase.GenerateWeekOutput, error)
	CurrentPlan(ctx context.Context, userID string) (*domain.MealPlan, error)
}

// authenticator resolves a bearer token to the authenticated user.
type authenticator interface {
	UserFromToken(ctx context.Context, token string) (domain.AuthUser, error)
}

// Handler routes API Gateway proxy events to the plan service.
type Handler struct {
	uc     useCase
	auth   authenticator
	logger *slog.Logger
}

// NewHandler creates the Lambda handler.
func NewHandler(uc useCase, auth authenticator, logger *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if auth == nil {
		return nil, errors.New("handler: authenticator must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{uc: uc, auth: auth, logger: logger}, nil
}

type targetsRequest struct {
	Gender          string  `json:"gender"`
	Height          float64 `json:"height"`
	Age             int     `json:"age"`
	Weight          float64 `json:"weight"`
	WorkoutsPerWeek int     `json:"workouts_per_week"`
	Goal            string  `json:"goal"`
}

type targetsResponse struct {
	Targets       domain.NutritionTargets `json:"targets"`
	TDEE          float64                 `json:"tdee"`
	ActivityLevel string                  `json:"activity_level"`
}

type dailyPlanResponse struct {
	Targets       domain.NutritionTargets `json:"targets"`
	AgentResponse string                  `json:"agent_response"`
	MealPlan      *domain.MealPlan        `json:"meal_plan,omitempty"`
}

type weeklyPlanResponse struct {
	WeeklyPlanID int64                   `json:"weekly_plan_id"`
	Targets      domain.NutritionTargets `json:"daily_targets"`
	Status       string                  `json:"status"`
}

type currentPlanResponse struct {
	MealPlan *domain.MealPlan `json:"meal_plan"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Handle dispatches one API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)
	route := event.HTTPMethod + " " + event.Path

	switch route {
	case http.MethodPost + " /public/calculate-targets":
		return h.calculateTargets(event, corrID), nil
	case http.MethodPost + " /plans/generate":
		return h.authed(ctx, event, corrID, h.generateDaily), nil
	case http.MethodPost + " /plans/weekly":
		return h.authed(ctx, event, corrID, h.generateWeekly), nil
	case http.MethodGet + " /plans/current":
		return h.authed(ctx, event, corrID, h.currentPlan), nil
	default:
		return respondError(http.StatusNotFound, usecase.ErrorNotFound, "unknown_route", corrID), nil
	}
}

// authed validates the bearer token, resolves the user, and delegates.
func (h *Handler) authed(ctx context.Context, event events.APIGatewayProxyRequest, corrID string, next func(ctx context.Context, event events.APIGatewayProxyRequest, user domain.AuthUser, corrID string) events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	token := bearerToken(event.Headers)
	if token == "" {
		return respondError(http.StatusUnauthorized, usecase.ErrorUnauthorized, "missing_bearer_token", corrID)
	}

	user, err := h.auth.UserFromToken(ctx, token)
	if err != nil {
		var statusErr interface{ HTTPStatusCode() int }
		if errors.As(err, &statusErr) && statusErr.HTTPStatusCode() == http.StatusUnauthorized {
			return respondError(http.StatusUnauthorized, usecase.ErrorUnauthorized, "invalid_token", corrID)
		}
		h.logger.Error("token validation failed", "err", err, "correlation_id", corrID)
		return respondError(http.StatusBadGateway, usecase.ErrorUpstream, "auth_unavailable", corrID)
	}

	return next(ctx, event, user, corrID)
}

func (h *Handler) calculateTargets(event events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	var req targetsRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return respondError(http.StatusBadRequest, usecase.ErrorInvalidInput, "invalid_json_body", corrID)
	}

	result, err := usecase.ComputeTargets(domain.Profile{
		Gender:          req.Gender,
		Height:          req.Height,
		Age:             req.Age,
		Weight:          req.Weight,
		WorkoutsPerWeek: req.WorkoutsPerWeek,
		Goal:            req.Goal,
	})
	if err != nil {
		return h.errorFrom(err, corrID)
	}

	return respondJSON(http.StatusOK, targetsResponse{
		Targets:       result.Targets,
		TDEE:          result.TDEE,
		ActivityLevel: result.ActivityLevel,
	}, corrID)
}

func (h *Handler) generateDaily(ctx context.Context, _ events.APIGatewayProxyRequest, user domain.AuthUser, corrID string) events.APIGatewayProxyResponse {
	profile, err := profileFromMetadata(user.Metadata)
	if err != nil {
		return respondError(http.StatusBadRequest, usecase.ErrorInvalidInput, "missing_questionnaire", corrID)
	}

	out, err := h.uc.GenerateDailyPlan(ctx, usecase.GenerateDayInput{UserID: user.ID, Profile: profile})
	if err != nil {
		return h.errorFrom(err, corrID)
	}
	return respondJSON(http.StatusOK, dailyPlanResponse{
		Targets:       out.Targets.Targets,
		AgentResponse: out.AgentResponse,
		MealPlan:      out.MealPlan,
	}, corrID)
}

func (h *Handler) generateWeekly(ctx context.Context, _ events.APIGatewayProxyRequest, user domain.AuthUser, corrID string) events.APIGatewayProxyResponse {
	profile, err := profileFromMetadata(user.Metadata)
	if err != nil {
		return respondError(http.StatusBadRequest, usecase.ErrorInvalidInput, "missing_questionnaire", corrID)
	}

	out, err := h.uc.GenerateWeek(ctx, usecase.GenerateWeekInput{UserID: user.ID, Profile: profile})
	if err != nil {
		return h.errorFrom(err, corrID)
	}
	return respondJSON(http.StatusOK, weeklyPlanResponse{
		WeeklyPlanID: out.WeeklyPlanID,
		Targets:      out.Targets.Targets,
		Status:       string(domain.WeeklyPlanActive),
	}, corrID)
}

func (h *Handler) currentPlan(ctx context.Context, _ events.APIGatewayProxyRequest, user domain.AuthUser, corrID string) events.APIGatewayProxyResponse {
	plan, err := h.uc.CurrentPlan(ctx, user.ID)
	if err != nil {
		return h.errorFrom(err, corrID)
	}
	return respondJSON(http.StatusOK, currentPlanResponse{MealPlan: plan}, corrID)
}

// errorFrom maps use case error codes onto HTTP statuses.
func (h *Handler) errorFrom(err error, corrID string) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		h.logger.Error("unexpected error", "err", err, "correlation_id", corrID)
		return respondError(http.StatusInternalServerError, usecase.ErrorInternal, "", corrID)
	}

	status := http.StatusInternalServerError
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorUnauthorized:
		status = http.StatusUnauthorized
	case usecase.ErrorNotFound:
		status = http.StatusNotFound
	case usecase.ErrorRateLimited:
		status = http.StatusTooManyRequests
	case usecase.ErrorIterationLimit:
		status = http.StatusLoopDetected
	case usecase.ErrorUpstream, usecase.ErrorEmptyResponse, usecase.ErrorMalformedCalls, usecase.ErrorExtraction:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", err, "correlation_id", corrID)
	}
	return respondError(status, ucErr.Code, ucErr.Reason, corrID)
}

// profileFromMetadata extracts the onboarding questionnaire stored in the
// identity provider's user metadata.
func profileFromMetadata(metadata map[string]any) (domain.Profile, error) {
	raw, ok := metadata["questionnaire"]
	if !ok {
		return domain.Profile{}, errors.New("handler: user metadata has no questionnaire")
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return domain.Profile{}, errors.New("handler: questionnaire is not an object")
	}
	var profile domain.Profile
	if err := json.Unmarshal(buf, &profile); err != nil {
		return domain.Profile{}, errors.New("handler: questionnaire does not match expected shape")
	}
	return profile, nil
}

// bearerToken pulls the token from the Authorization header, case-insensitive
// on both the header name and the scheme.
func bearerToken(headers map[string]string) string {
	for name, value := range headers {
		if !strings.EqualFold(name, "Authorization") {
			continue
		}
		parts := strings.SplitN(value, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

func correlationID(headers map[string]string) string {
	for name, value := range headers {
		if strings.EqualFold(name, correlationHeader) && value != "" {
			return value
		}
	}
	return uuid.NewString()
}

func respondJSON(status int, body any, corrID string) events.APIGatewayProxyResponse {
	buf, err := json.Marshal(body)
	if err != nil {
		return respondError(http.StatusInternalServerError, usecase.ErrorInternal, "encode_response", corrID)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(buf),
	}
}

func respondError(status int, code usecase.ErrorCode, reason, corrID string) events.APIGatewayProxyResponse {
	buf, _ := json.Marshal(errorResponse{Error: string(code), Reason: reason})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(buf),
	}
}
