package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nutriagent/internal/domain"
)

var testProfile = domain.Profile{
	Gender:          "male",
	Height:          180,
	Age:             30,
	Weight:          80,
	WorkoutsPerWeek: 3,
	Goal:            GoalMaintenance,
}

const dayPlanText = "Day complete.\n```json\n" +
	`{"meal_plan": {` +
	`"Breakfast": {"recipe_id": "r1", "recipe_name": "Oatmeal", "servings": 1, "total_nutrition": {"calories": 400, "protein": 20, "fat": 10, "carbohydrates": 55}},` +
	`"Lunch": {"recipe_id": "r2", "recipe_name": "Chicken Curry", "servings": 1.5, "nutritional_info_per_serving": {"calories": 433.4, "protein": 30, "fat": 12, "carbohydrates": 40}},` +
	`"Dinner": {"recipe_id": "r3", "recipe_name": "Beef Stew", "servings": 1, "total_nutrition": {"calories": 650, "protein": 45, "fat": 25, "carbohydrates": 50}}` +
	`}}` + "\n```"

func newTestService(t *testing.T, model ModelClient, store *fakeStore) *PlanService {
	t.Helper()
	svc, err := NewPlanService(model, store, slog.Default(), 0, 0)
	require.NoError(t, err)
	svc.nowFn = func() time.Time {
		return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC) // a Tuesday
	}
	return svc
}

func TestGenerateWeek_Success(t *testing.T) {
	model := &scriptedModel{turns: []domain.ModelTurn{textTurn(dayPlanText)}}
	store := &fakeStore{}
	svc := newTestService(t, model, store)

	out, err := svc.GenerateWeek(context.Background(), GenerateWeekInput{UserID: "user-1", Profile: testProfile})
	require.NoError(t, err)

	require.Len(t, store.weeklyPlans, 1)
	weekly := store.weeklyPlans[0]
	require.Equal(t, out.WeeklyPlanID, weekly.ID)
	require.Equal(t, domain.WeeklyPlanGenerating, weekly.Status)
	require.Equal(t, "2026-09-07", weekly.StartDate)
	require.Equal(t, domain.WeeklyPlanActive, store.statuses[weekly.ID])

	// Weekly targets are the daily targets times seven.
	require.InDelta(t, out.Targets.Targets.Calories*7, weekly.Targets.Calories, 1e-9)

	require.Len(t, store.dailyPlans, 7)
	require.Equal(t, "2026-09-07", store.dailyPlans[0].Date)
	require.Equal(t, "2026-09-13", store.dailyPlans[6].Date)
	require.Len(t, store.meals, 21)
	require.Equal(t, 7, model.calls)
}

func TestGenerateWeek_DayFailureMarksWeekFailed(t *testing.T) {
	// Days 1 and 2 succeed; day 3's model call fails in transport, which must
	// stop the sequence and mark the whole week failed.
	model := &scriptedModel{
		turns: []domain.ModelTurn{textTurn(dayPlanText), textTurn(dayPlanText)},
		errs:  []error{nil, nil, errors.New("bad gateway")},
	}
	store := &fakeStore{}
	svc := newTestService(t, model, store)

	_, err := svc.GenerateWeek(context.Background(), GenerateWeekInput{UserID: "user-1", Profile: testProfile})
	require.Error(t, err)
	require.Equal(t, ErrorUpstream, CodeOf(err))

	require.Equal(t, 3, model.calls)
	require.Len(t, store.dailyPlans, 3)
	require.Equal(t, domain.WeeklyPlanFailed, store.statuses[store.weeklyPlans[0].ID])
}

func TestGenerateWeek_RequiresUserID(t *testing.T) {
	svc := newTestService(t, &scriptedModel{turns: []domain.ModelTurn{textTurn("x")}}, &fakeStore{})

	_, err := svc.GenerateWeek(context.Background(), GenerateWeekInput{Profile: testProfile})
	require.Error(t, err)
	require.Equal(t, ErrorInvalidInput, CodeOf(err))
}

func TestRunDay_RetriesOnceOnEmptyResponse(t *testing.T) {
	// First run: a tool call, then an empty turn. The retry run answers with a
	// valid plan on its first turn.
	model := &scriptedModel{turns: []domain.ModelTurn{
		callTurn(ToolCalculate),
		{},
		textTurn(dayPlanText),
	}}
	store := &fakeStore{}
	svc := newTestService(t, model, store)

	weekly := domain.WeeklyPlan{ID: 42, UserID: "user-1"}
	start := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

	err := svc.generateDay(context.Background(), weekly, 1, start, domain.NutritionTargets{Calories: 2000}, testProfile)
	require.NoError(t, err)
	require.Equal(t, 3, model.calls)
	require.Len(t, store.meals, 3)
}

func TestRunDay_EmptyAfterRetryFails(t *testing.T) {
	model := &scriptedModel{turns: []domain.ModelTurn{
		callTurn(ToolCalculate),
		{},
		callTurn(ToolCalculate),
		{},
	}}
	svc := newTestService(t, model, &fakeStore{})

	_, err := svc.runDay(context.Background(), 42, 1, domain.NutritionTargets{Calories: 2000}, testProfile)
	require.Error(t, err)
	require.Equal(t, ErrorEmptyResponse, CodeOf(err))
	require.Equal(t, 4, model.calls)
}

func TestInsertDayMeals_CoercionAndSkips(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, &scriptedModel{turns: []domain.ModelTurn{textTurn("x")}}, store)

	plan := map[string]any{
		"meal_plan": map[string]any{
			"distribution": map[string]any{"Breakfast": 400.0},
			"Daily Totals": map[string]any{"calories": 2000.0},
			"Breakfast": map[string]any{
				"recipe_id":   "r1",
				"recipe_name": "Oatmeal",
				"servings":    "2",
				"nutritional_info_per_serving": map[string]any{
					"calories": 150.4, "protein": 5.25, "fat": 3.0, "carbohydrates": 27.0,
				},
			},
			"Snack 1": map[string]any{
				"recipe_id":   "r4",
				"recipe_name": "Greek Yogurt",
				"total_nutrition": map[string]any{
					"calories": 150.0, "protein": 15.0, "fat": 4.0, "carbohydrates": 12.0,
				},
			},
			"Snack 2": map[string]any{
				"recipe_id":   "r5",
				"recipe_name": "Apple & Peanut Butter",
				"total_nutrition": map[string]any{
					"calories": 180.0, "protein": 6.0, "fat": 9.0, "carbohydrates": 20.0,
				},
			},
			"Lunch":     nil,
			"Dinner":    map[string]any{"servings": 1.0},
			"Brunch":    map[string]any{"recipe_id": "r9", "recipe_name": "Pancakes"},
			"Breakfast ": "not-an-object",
		},
	}

	daily := domain.DailyPlan{ID: "day-1", WeeklyPlanID: 42, DayNumber: 1}
	inserted, err := svc.insertDayMeals(context.Background(), daily, plan)
	require.NoError(t, err)
	require.Equal(t, 3, inserted)
	require.Len(t, store.meals, 3)

	byName := map[string]domain.Meal{}
	for _, m := range store.meals {
		byName[m.RecipeName] = m
	}

	oatmeal := byName["Oatmeal"]
	require.Equal(t, domain.MealBreakfast, oatmeal.Type)
	require.Equal(t, 1, oatmeal.TypeOrder)
	require.InDelta(t, 2.0, oatmeal.Servings, 1e-9)
	// Per-serving figures multiplied out, calories rounded whole, grams to one
	// decimal.
	require.InDelta(t, 301.0, oatmeal.Calories, 1e-9)
	require.InDelta(t, 10.5, oatmeal.Protein, 1e-9)

	require.Equal(t, domain.MealSnack, byName["Greek Yogurt"].Type)
	require.Equal(t, domain.MealSnack, byName["Apple & Peanut Butter"].Type)
	orders := []int{byName["Greek Yogurt"].TypeOrder, byName["Apple & Peanut Butter"].TypeOrder}
	require.ElementsMatch(t, []int{1, 2}, orders)
}

func TestInsertDayMeals_MissingMealPlanKey(t *testing.T) {
	svc := newTestService(t, &scriptedModel{turns: []domain.ModelTurn{textTurn("x")}}, &fakeStore{})

	_, err := svc.insertDayMeals(context.Background(), domain.DailyPlan{ID: "day-1"}, map[string]any{"notes": "oops"})
	require.Error(t, err)
	require.Equal(t, ErrorExtraction, CodeOf(err))
}

func TestGenerateDay_ZeroMealsIsFailure(t *testing.T) {
	// A decodable plan whose entries are all defective yields no durable
	// meals, which is a hard day failure.
	text := "```json\n" + `{"meal_plan": {"Breakfast": null, "Lunch": {"servings": 1}}}` + "\n```"
	model := &scriptedModel{turns: []domain.ModelTurn{textTurn(text)}}
	svc := newTestService(t, model, &fakeStore{})

	weekly := domain.WeeklyPlan{ID: 42, UserID: "user-1"}
	start := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

	err := svc.generateDay(context.Background(), weekly, 1, start, domain.NutritionTargets{Calories: 2000}, testProfile)
	require.Error(t, err)
	require.Equal(t, ErrorExtraction, CodeOf(err))
}

func TestNextMonday(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want string
	}{
		{name: "tuesday", in: time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC), want: "2026-09-07"},
		{name: "sunday", in: time.Date(2026, time.September, 6, 23, 0, 0, 0, time.UTC), want: "2026-09-07"},
		{name: "monday rolls a full week", in: time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC), want: "2026-09-14"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, nextMonday(tc.in).Format("2006-01-02"))
		})
	}
}
