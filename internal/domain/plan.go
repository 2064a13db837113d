package domain

// NutritionTargets is a daily (or, for a weekly plan, weekly) macro budget.
type NutritionTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Scale multiplies every target by n (used for 7x weekly totals).
func (t NutritionTargets) Scale(n float64) NutritionTargets {
	return NutritionTargets{
		Calories: t.Calories * n,
		Protein:  t.Protein * n,
		Fat:      t.Fat * n,
		Carbs:    t.Carbs * n,
	}
}

// Recipe is one row of the read-only recipe snapshot.
type Recipe struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
	Sodium        float64 `json:"sodium"`
}

// MealPlan is a persisted single-day plan as saved by the save_meal_plan tool.
type MealPlan struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	PlanData    map[string]any `json:"plan_data"`
	UserTargets map[string]any `json:"user_targets"`
	CreatedAt   string         `json:"created_at"`
}

// WeeklyPlanStatus tracks the lifecycle of a weekly plan record. A plan moves
// generating -> active or generating -> failed, never both.
type WeeklyPlanStatus string

const (
	WeeklyPlanGenerating WeeklyPlanStatus = "generating"
	WeeklyPlanActive     WeeklyPlanStatus = "active"
	WeeklyPlanFailed     WeeklyPlanStatus = "failed"
)

// WeeklyPlan owns exactly seven daily plans, one per calendar day starting
// next Monday. Targets hold the weekly totals (7x daily).
type WeeklyPlan struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Status    WeeklyPlanStatus `json:"status"`
	Targets   NutritionTargets `json:"targets"`
	StartDate string           `json:"start_date"`
	CreatedAt string           `json:"created_at"`
}

// DailyPlan is one generated day inside a weekly plan.
type DailyPlan struct {
	ID           string `json:"id"`
	WeeklyPlanID int64  `json:"weekly_plan_id"`
	DayNumber    int    `json:"day_number"`
	Date         string `json:"date"`
}

// MealType tags a meal row; same-typed meals are ordered by TypeOrder
// (Snack 1 vs Snack 2).
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Meal is one durably inserted meal row belonging to a daily plan.
type Meal struct {
	DailyPlanID   string   `json:"daily_plan_id"`
	WeeklyPlanID  int64    `json:"weekly_plan_id"`
	Type          MealType `json:"meal_type"`
	TypeOrder     int      `json:"type_order"`
	RecipeID      string   `json:"recipe_id"`
	RecipeName    string   `json:"recipe_name"`
	Servings      float64  `json:"servings"`
	Calories      float64  `json:"calories"`
	Protein       float64  `json:"protein"`
	Fat           float64  `json:"fat"`
	Carbohydrates float64  `json:"carbohydrates"`
}
