package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nutriagent/internal/domain"
)

func TestActivityLevelForWorkouts(t *testing.T) {
	require.Equal(t, "lightly active", ActivityLevelForWorkouts(0))
	require.Equal(t, "lightly active", ActivityLevelForWorkouts(2))
	require.Equal(t, "moderately active", ActivityLevelForWorkouts(3))
	require.Equal(t, "moderately active", ActivityLevelForWorkouts(5))
	require.Equal(t, "extra active", ActivityLevelForWorkouts(6))
}

func TestComputeTargets_Maintenance(t *testing.T) {
	// Mifflin-St Jeor, male, 80kg 180cm 30y: BMR 1780, x1.55 = 2759 kcal.
	result, err := ComputeTargets(domain.Profile{
		Gender:          "male",
		Weight:          80,
		Height:          180,
		Age:             30,
		WorkoutsPerWeek: 3,
		Goal:            GoalMaintenance,
	})
	require.NoError(t, err)
	require.Equal(t, "moderately active", result.ActivityLevel)
	require.InDelta(t, 2759.0, result.TDEE, 1e-9)
	require.InDelta(t, 2759.0, result.Targets.Calories, 1e-9)
	require.InDelta(t, 160.0, result.Targets.Protein, 1e-9)
	require.InDelta(t, 76.6, result.Targets.Fat, 1e-9)
	require.InDelta(t, 357.3, result.Targets.Carbs, 1e-9)
}

func TestComputeTargets_FatLossDeficit(t *testing.T) {
	// Female, 60kg 165cm 25y, 1 workout/week: BMR 1345.25, x1.375 = 1849.72.
	// Losing 0.5 kg/week costs a 550 kcal daily deficit.
	result, err := ComputeTargets(domain.Profile{
		Gender:                  "female",
		Weight:                  60,
		Height:                  165,
		Age:                     25,
		WorkoutsPerWeek:         1,
		Goal:                    GoalFatLoss,
		PlannedWeeklyWeightLoss: 0.5,
	})
	require.NoError(t, err)
	require.Equal(t, "lightly active", result.ActivityLevel)
	require.InDelta(t, 1850.0, result.TDEE, 1e-9)
	require.InDelta(t, 1300.0, result.Targets.Calories, 1e-9)
	require.InDelta(t, 108.0, result.Targets.Protein, 1e-9)
}

func TestComputeTargets_BuildMuscleSurplus(t *testing.T) {
	result, err := ComputeTargets(domain.Profile{
		Gender:          "male",
		Weight:          80,
		Height:          180,
		Age:             30,
		WorkoutsPerWeek: 6,
		Goal:            GoalBuildMuscle,
	})
	require.NoError(t, err)
	require.Equal(t, "extra active", result.ActivityLevel)
	require.InDelta(t, 176.0, result.Targets.Protein, 1e-9)
	// 10% surplus on TDEE.
	require.InDelta(t, result.TDEE*1.10, result.Targets.Calories, 1.0)
}

func TestComputeTargets_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		profile domain.Profile
	}{
		{name: "unknown gender", profile: domain.Profile{Gender: "other", Weight: 80, Height: 180, Age: 30, Goal: GoalMaintenance}},
		{name: "unknown goal", profile: domain.Profile{Gender: "male", Weight: 80, Height: 180, Age: 30, Goal: "Bulk"}},
		{name: "fat loss without weekly loss", profile: domain.Profile{Gender: "male", Weight: 80, Height: 180, Age: 30, Goal: GoalFatLoss}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTargets(tc.profile)
			require.Error(t, err)
			require.Equal(t, ErrorInvalidInput, CodeOf(err))
		})
	}
}

func TestMealSlots_SnackSplit(t *testing.T) {
	slots := MealSlots(2000)
	require.Len(t, slots, 5)
	require.Equal(t, MealSlot{Name: "Breakfast", Calories: 400}, slots[0])
	require.Equal(t, MealSlot{Name: "Lunch", Calories: 650}, slots[1])
	require.Equal(t, MealSlot{Name: "Dinner", Calories: 650}, slots[2])
	require.Equal(t, MealSlot{Name: "Snack 1", Calories: 150}, slots[3])
	require.Equal(t, MealSlot{Name: "Snack 2", Calories: 150}, slots[4])
}

func TestMealSlots_SingleSnack(t *testing.T) {
	slots := MealSlots(1500)
	require.Len(t, slots, 4)
	require.Equal(t, MealSlot{Name: "Snack 1", Calories: 225}, slots[3])
}
