package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nutriagent/internal/domain"
)

// PlanStore is the relational-store collaborator: simple insert/select/update
// operations on named tables, implemented by internal/repository.
type PlanStore interface {
	ListRecipes(ctx context.Context) ([]domain.Recipe, error)
	SearchRecipes(ctx context.Context, query string, threshold float64) ([]domain.Recipe, error)
	SaveMealPlan(ctx context.Context, plan domain.MealPlan) (string, error)
	LatestMealPlan(ctx context.Context, userID string) (*domain.MealPlan, error)
	CreateWeeklyPlan(ctx context.Context, plan domain.WeeklyPlan) error
	SetWeeklyPlanStatus(ctx context.Context, weeklyPlanID int64, status domain.WeeklyPlanStatus) error
	CreateDailyPlan(ctx context.Context, plan domain.DailyPlan) error
	InsertMeal(ctx context.Context, meal domain.Meal) error
	RecipesUsedInWeek(ctx context.Context, weeklyPlanID int64) ([]string, error)
}

// PlanService is the application facade: it computes targets, drives agent
// runs, and persists outcomes.
type PlanService struct {
	store   PlanStore
	toolbox *Toolbox
	daily   *ToolRegistry
	weekly  *ToolRegistry
	loop    *AgentLoop
	logger  *slog.Logger
	nowFn   func() time.Time
}

// NewPlanService wires the service. iterationLimit <= 0 and callTimeout <= 0
// select the defaults described on NewAgentLoop.
func NewPlanService(model ModelClient, store PlanStore, logger *slog.Logger, iterationLimit int, callTimeout time.Duration) (*PlanService, error) {
	if store == nil {
		return nil, errors.New("usecase: plan store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	nowFn := time.Now
	toolbox, err := NewToolbox(store, func() string { return nowFn().UTC().Format(time.RFC3339) })
	if err != nil {
		return nil, err
	}
	loop, err := NewAgentLoop(model, logger, iterationLimit, callTimeout)
	if err != nil {
		return nil, err
	}

	return &PlanService{
		store:   store,
		toolbox: toolbox,
		daily:   NewDailyRegistry(toolbox),
		weekly:  NewWeeklyRegistry(toolbox),
		loop:    loop,
		logger:  logger,
		nowFn:   nowFn,
	}, nil
}

type GenerateDayInput struct {
	UserID  string
	Profile domain.Profile
}

type GenerateDayOutput struct {
	Targets       TargetsResult
	AgentResponse string
	MealPlan      *domain.MealPlan
}

// GenerateDailyPlan runs one single-day agent session. The agent persists the
// plan itself through save_meal_plan; the saved row is read back afterwards
// so callers get the durable artifact, not just the model's prose.
func (s *PlanService) GenerateDailyPlan(ctx context.Context, in GenerateDayInput) (GenerateDayOutput, error) {
	if in.UserID == "" {
		return GenerateDayOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	targets, err := ComputeTargets(in.Profile)
	if err != nil {
		return GenerateDayOutput{}, err
	}

	s.logger.Info("starting daily plan generation",
		"user_id", in.UserID, "calories", targets.Targets.Calories)

	prompt := buildDailyTaskPrompt(in.UserID, targets.Targets, in.Profile)
	outcome, err := s.loop.Run(ctx, prompt, dailySystemPrompt(), s.daily)
	if err != nil {
		return GenerateDayOutput{}, err
	}
	if outcome.Empty {
		return GenerateDayOutput{}, newError(ErrorEmptyResponse, "agent_returned_empty", nil)
	}

	plan, err := s.store.LatestMealPlan(ctx, in.UserID)
	if err != nil {
		return GenerateDayOutput{}, newError(ErrorInternal, "plan_readback_failed", err)
	}

	return GenerateDayOutput{
		Targets:       targets,
		AgentResponse: outcome.Final,
		MealPlan:      plan,
	}, nil
}

// CurrentPlan returns the user's most recent saved plan.
func (s *PlanService) CurrentPlan(ctx context.Context, userID string) (*domain.MealPlan, error) {
	if userID == "" {
		return nil, newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	plan, err := s.store.LatestMealPlan(ctx, userID)
	if err != nil {
		return nil, newError(ErrorInternal, "plan_lookup_failed", err)
	}
	if plan == nil {
		return nil, newError(ErrorNotFound, "no_meal_plan", nil)
	}
	return plan, nil
}
