package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPlan_FencedBlock(t *testing.T) {
	text := "Here is your plan for the day.\n\n```json\n" +
		`{"meal_plan": {"Breakfast": {"recipe_name": "Oatmeal"}}, "Daily Totals": {"calories": 2000}}` +
		"\n```\n\nEnjoy!"

	plan, err := ExtractPlan(text)
	require.NoError(t, err)

	mealPlan, ok := plan["meal_plan"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, mealPlan, "Breakfast")
	require.Contains(t, plan, "Daily Totals")
}

func TestExtractPlan_FencedDecodeFailureIsFatal(t *testing.T) {
	// A fenced candidate that does not decode must not fall through to the
	// bare-JSON stage.
	text := "```json\n{\"meal_plan\": {broken}\n```\n" +
		`{"meal_plan": {"Breakfast": {"recipe_name": "Oatmeal"}}}`

	_, err := ExtractPlan(text)
	require.Error(t, err)
	require.Equal(t, ErrorExtraction, CodeOf(err))
}

func TestExtractPlan_BareJSON(t *testing.T) {
	text := `The plan is {"meal_plan": {"Lunch": {"recipe_name": "Chicken Curry"}}} as requested.`

	plan, err := ExtractPlan(text)
	require.NoError(t, err)

	mealPlan, ok := plan["meal_plan"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, mealPlan, "Lunch")
}

func TestExtractPlan_NoPlan(t *testing.T) {
	_, err := ExtractPlan("I could not produce a plan today.")
	require.Error(t, err)
	require.Equal(t, ErrorExtraction, CodeOf(err))
}
