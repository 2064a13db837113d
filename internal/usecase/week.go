package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"nutriagent/internal/domain"
)

const (
	daysPerWeek = 7

	// emptyDayRetries is the number of shortened-prompt retries a day gets
	// after an empty agent response before the whole week fails.
	emptyDayRetries = 1
)

// Reserved non-meal keys inside the meal_plan object.
const (
	planKeyDistribution = "distribution"
	planKeyDailyTotals  = "Daily Totals"
)

type GenerateWeekInput struct {
	UserID  string
	Profile domain.Profile
}

type GenerateWeekOutput struct {
	WeeklyPlanID int64
	Targets      TargetsResult
}

// GenerateWeek sequences seven single-day agent runs into one weekly plan.
// Days are strictly sequential: day N's prompt depends on the recipes already
// committed for days 1..N-1, surfaced to the model through the
// get_previous_recipes_in_week tool. Any day failing (after its retry) marks
// the whole week failed; there is no partial-week success.
func (s *PlanService) GenerateWeek(ctx context.Context, in GenerateWeekInput) (GenerateWeekOutput, error) {
	if in.UserID == "" {
		return GenerateWeekOutput{}, newError(ErrorInvalidInput, "missing_user_id", nil)
	}

	targets, err := ComputeTargets(in.Profile)
	if err != nil {
		return GenerateWeekOutput{}, err
	}

	now := s.nowFn().UTC()
	start := nextMonday(now)
	weekly := domain.WeeklyPlan{
		ID:        now.UnixMilli(),
		UserID:    in.UserID,
		Status:    domain.WeeklyPlanGenerating,
		Targets:   targets.Targets.Scale(daysPerWeek),
		StartDate: start.Format("2006-01-02"),
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := s.store.CreateWeeklyPlan(ctx, weekly); err != nil {
		return GenerateWeekOutput{}, newError(ErrorInternal, "weekly_plan_create_failed", err)
	}

	s.logger.Info("starting weekly plan generation",
		"user_id", in.UserID, "weekly_plan_id", weekly.ID, "start_date", weekly.StartDate)

	for day := 1; day <= daysPerWeek; day++ {
		if err := s.generateDay(ctx, weekly, day, start, targets.Targets, in.Profile); err != nil {
			s.failWeek(ctx, weekly.ID)
			return GenerateWeekOutput{}, err
		}
	}

	if err := s.store.SetWeeklyPlanStatus(ctx, weekly.ID, domain.WeeklyPlanActive); err != nil {
		return GenerateWeekOutput{}, newError(ErrorInternal, "weekly_plan_activate_failed", err)
	}

	return GenerateWeekOutput{WeeklyPlanID: weekly.ID, Targets: targets}, nil
}

func (s *PlanService) generateDay(ctx context.Context, weekly domain.WeeklyPlan, day int, start time.Time, targets domain.NutritionTargets, profile domain.Profile) error {
	daily := domain.DailyPlan{
		ID:           uuid.NewString(),
		WeeklyPlanID: weekly.ID,
		DayNumber:    day,
		Date:         start.AddDate(0, 0, day-1).Format("2006-01-02"),
	}
	if err := s.store.CreateDailyPlan(ctx, daily); err != nil {
		return newError(ErrorInternal, "daily_plan_create_failed", err)
	}

	outcome, err := s.runDay(ctx, weekly.ID, day, targets, profile)
	if err != nil {
		return err
	}

	plan, err := ExtractPlan(outcome.Final)
	if err != nil {
		return err
	}

	inserted, err := s.insertDayMeals(ctx, daily, plan)
	if err != nil {
		return err
	}
	if inserted == 0 {
		// A day with zero durable meals is a hard failure, not an empty day.
		return newError(ErrorExtraction, "day_without_meals",
			fmt.Errorf("day %d produced no valid meal entries", day))
	}

	s.logger.Info("day generated", "weekly_plan_id", weekly.ID, "day", day, "meals", inserted)
	return nil
}

// runDay executes the agent for one day, retrying once with a shortened
// prompt when the model returns an empty response.
func (s *PlanService) runDay(ctx context.Context, weeklyPlanID int64, day int, targets domain.NutritionTargets, profile domain.Profile) (domain.RunOutcome, error) {
	prompt := buildWeeklyDayPrompt(weeklyPlanID, day, targets, profile)
	system := weeklySystemPrompt()

	outcome, err := s.loop.Run(ctx, prompt, system, s.weekly)
	if err != nil {
		return domain.RunOutcome{}, err
	}

	for attempt := 0; outcome.Empty && attempt < emptyDayRetries; attempt++ {
		s.logger.Warn("empty day response, retrying with shortened prompt",
			"weekly_plan_id", weeklyPlanID, "day", day)
		short := buildShortWeeklyDayPrompt(weeklyPlanID, day, targets, profile)
		outcome, err = s.loop.Run(ctx, short, system, s.weekly)
		if err != nil {
			return domain.RunOutcome{}, err
		}
	}
	if outcome.Empty {
		return domain.RunOutcome{}, newError(ErrorEmptyResponse, "empty_day_after_retry",
			fmt.Errorf("day %d returned empty responses", day))
	}
	return outcome, nil
}

// insertDayMeals walks the extracted meal_plan object and inserts one Meal
// row per well-formed entry. Defective entries (null placeholders, missing
// recipe identifiers) are skipped, never raised.
func (s *PlanService) insertDayMeals(ctx context.Context, daily domain.DailyPlan, plan map[string]any) (int, error) {
	mealPlan, ok := plan["meal_plan"].(map[string]any)
	if !ok {
		return 0, newError(ErrorExtraction, "missing_meal_plan_key",
			fmt.Errorf("extracted plan has no meal_plan object"))
	}

	slots := make([]string, 0, len(mealPlan))
	for slot := range mealPlan {
		if slot == planKeyDistribution || slot == planKeyDailyTotals {
			continue
		}
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	inserted := 0
	typeCounters := map[domain.MealType]int{}
	for _, slot := range slots {
		entry, ok := mealPlan[slot].(map[string]any)
		if !ok {
			s.logger.Warn("skipping malformed meal entry", "slot", slot, "daily_plan_id", daily.ID)
			continue
		}

		recipeID, _ := entry["recipe_id"].(string)
		recipeName, _ := entry["recipe_name"].(string)
		if recipeID == "" && recipeName == "" {
			s.logger.Warn("skipping meal entry without recipe identifier", "slot", slot)
			continue
		}

		mealType := mealTypeForSlot(slot)
		if mealType == "" {
			s.logger.Warn("skipping unrecognized meal slot", "slot", slot)
			continue
		}
		typeCounters[mealType]++

		servings, ok := toFloat(entry["servings"])
		if !ok || servings <= 0 {
			servings = 1.0
		}

		nutrition := mealNutrition(entry, servings)
		meal := domain.Meal{
			DailyPlanID:   daily.ID,
			WeeklyPlanID:  daily.WeeklyPlanID,
			Type:          mealType,
			TypeOrder:     typeCounters[mealType],
			RecipeID:      recipeID,
			RecipeName:    recipeName,
			Servings:      servings,
			Calories:      math.Round(nutrition.Calories),
			Protein:       round1(nutrition.Protein),
			Fat:           round1(nutrition.Fat),
			Carbohydrates: round1(nutrition.Carbs),
		}
		if err := s.store.InsertMeal(ctx, meal); err != nil {
			return inserted, newError(ErrorInternal, "meal_insert_failed", err)
		}
		inserted++
	}
	return inserted, nil
}

func (s *PlanService) failWeek(ctx context.Context, weeklyPlanID int64) {
	if err := s.store.SetWeeklyPlanStatus(ctx, weeklyPlanID, domain.WeeklyPlanFailed); err != nil {
		s.logger.Error("failed to mark weekly plan failed", "weekly_plan_id", weeklyPlanID, "err", err)
	}
}

func mealTypeForSlot(slot string) domain.MealType {
	switch {
	case strings.EqualFold(slot, "breakfast"):
		return domain.MealBreakfast
	case strings.EqualFold(slot, "lunch"):
		return domain.MealLunch
	case strings.EqualFold(slot, "dinner"):
		return domain.MealDinner
	case strings.HasPrefix(strings.ToLower(slot), "snack"):
		return domain.MealSnack
	default:
		return ""
	}
}

// mealNutrition prefers the entry's total_nutrition object and falls back to
// per-serving figures multiplied out.
func mealNutrition(entry map[string]any, servings float64) domain.NutritionTargets {
	if total, ok := entry["total_nutrition"].(map[string]any); ok {
		return nutritionFromObject(total, 1)
	}
	if per, ok := entry["nutritional_info_per_serving"].(map[string]any); ok {
		return nutritionFromObject(per, servings)
	}
	return domain.NutritionTargets{}
}

func nutritionFromObject(obj map[string]any, factor float64) domain.NutritionTargets {
	calories, _ := toFloat(obj["calories"])
	protein, _ := toFloat(obj["protein"])
	fat, _ := toFloat(obj["fat"])
	carbs, _ := toFloat(obj["carbohydrates"])
	return domain.NutritionTargets{
		Calories: calories * factor,
		Protein:  protein * factor,
		Fat:      fat * factor,
		Carbs:    carbs * factor,
	}
}

// nextMonday returns the Monday strictly after t's date.
func nextMonday(t time.Time) time.Time {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(date.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return date.AddDate(0, 0, offset)
}
