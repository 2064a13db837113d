package usecase

import (
	"fmt"
	"math"
	"strings"

	"nutriagent/internal/domain"
)

const (
	GoalFatLoss     = "Fat Loss"
	GoalMaintenance = "General Health / Maintenance"
	GoalBuildMuscle = "Build Muscle"

	// 7700 kcal is roughly one kg of body fat.
	kcalPerKg = 7700

	// Default meal distribution; snacks are a total budget that splits into
	// two slots once it exceeds snackSplitCalories.
	breakfastShare     = 0.20
	lunchShare         = 0.325
	dinnerShare        = 0.325
	snackShare         = 0.15
	snackSplitCalories = 250
)

var activityMultipliers = map[string]float64{
	"sedentary":         1.2,
	"lightly active":    1.375,
	"moderately active": 1.55,
	"very active":       1.725,
	"extra active":      1.9,
}

// ActivityLevelForWorkouts maps weekly workout count to an activity level.
func ActivityLevelForWorkouts(workoutsPerWeek int) string {
	switch {
	case workoutsPerWeek <= 2:
		return "lightly active"
	case workoutsPerWeek <= 5:
		return "moderately active"
	default:
		return "extra active"
	}
}

// TargetsResult bundles the computed daily targets with the intermediate
// metrics surfaced by the public calculate-targets endpoint.
type TargetsResult struct {
	Targets       domain.NutritionTargets
	TDEE          float64
	ActivityLevel string
}

// ComputeTargets derives daily calorie and macro targets from a profile using
// the Mifflin-St Jeor equation and goal-based adjustments.
func ComputeTargets(p domain.Profile) (TargetsResult, error) {
	activity := ActivityLevelForWorkouts(p.WorkoutsPerWeek)
	tdee, err := totalDailyExpenditure(p, activity)
	if err != nil {
		return TargetsResult{}, err
	}

	calories, err := goalCalories(p, tdee)
	if err != nil {
		return TargetsResult{}, err
	}

	protein := proteinGrams(p)
	fatPct := 0.25
	if p.Goal == GoalBuildMuscle {
		fatPct = 0.30
	}
	fat := calories * fatPct / 9
	carbs := math.Max(0, (calories-protein*4-fat*9)/4)

	return TargetsResult{
		Targets: domain.NutritionTargets{
			Calories: math.Round(calories),
			Protein:  round1(protein),
			Fat:      round1(fat),
			Carbs:    round1(carbs),
		},
		TDEE:          math.Round(tdee),
		ActivityLevel: activity,
	}, nil
}

func totalDailyExpenditure(p domain.Profile, activity string) (float64, error) {
	var base float64
	switch strings.ToLower(p.Gender) {
	case "male":
		base = 10*p.Weight + 6.25*p.Height - 5*float64(p.Age) + 5
	case "female":
		base = 10*p.Weight + 6.25*p.Height - 5*float64(p.Age) - 161
	default:
		return 0, newError(ErrorInvalidInput, "invalid_gender", fmt.Errorf("gender must be male or female, got %q", p.Gender))
	}

	mult, ok := activityMultipliers[activity]
	if !ok {
		return 0, newError(ErrorInvalidInput, "invalid_activity_level", fmt.Errorf("unknown activity level %q", activity))
	}
	return base * mult, nil
}

func goalCalories(p domain.Profile, tdee float64) (float64, error) {
	switch p.Goal {
	case GoalFatLoss:
		if p.PlannedWeeklyWeightLoss <= 0 {
			return 0, newError(ErrorInvalidInput, "missing_weekly_loss", fmt.Errorf("planned weekly weight loss required for %s", GoalFatLoss))
		}
		dailyDeficit := p.PlannedWeeklyWeightLoss * kcalPerKg / 7
		return tdee - dailyDeficit, nil
	case GoalMaintenance:
		return tdee, nil
	case GoalBuildMuscle:
		return tdee * 1.10, nil
	default:
		return 0, newError(ErrorInvalidInput, "invalid_goal", fmt.Errorf("goal must be one of %q, %q, %q", GoalFatLoss, GoalMaintenance, GoalBuildMuscle))
	}
}

func proteinGrams(p domain.Profile) float64 {
	switch p.Goal {
	case GoalFatLoss:
		return 1.8 * p.Weight
	case GoalBuildMuscle:
		return 2.2 * p.Weight
	default:
		return 2.0 * p.Weight
	}
}

// MealSlot is one prompt-level calorie allocation (Breakfast, Lunch, Dinner,
// Snack 1, optionally Snack 2).
type MealSlot struct {
	Name     string
	Calories float64
}

// MealSlots splits a daily calorie target across meal slots using the default
// distribution. The snack budget yields two slots when it exceeds the split
// threshold, one otherwise.
func MealSlots(totalCalories float64) []MealSlot {
	slots := []MealSlot{
		{Name: "Breakfast", Calories: math.Round(totalCalories * breakfastShare)},
		{Name: "Lunch", Calories: math.Round(totalCalories * lunchShare)},
		{Name: "Dinner", Calories: math.Round(totalCalories * dinnerShare)},
	}

	snackBudget := totalCalories * snackShare
	if snackBudget > snackSplitCalories {
		half := math.Round(snackBudget / 2)
		slots = append(slots,
			MealSlot{Name: "Snack 1", Calories: half},
			MealSlot{Name: "Snack 2", Calories: half},
		)
	} else {
		slots = append(slots, MealSlot{Name: "Snack 1", Calories: math.Round(snackBudget)})
	}
	return slots
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
