package usecase

import (
	"fmt"
	"strings"

	"nutriagent/internal/domain"
)

func dailySystemPrompt() string {
	return strings.Join([]string{
		"You are NutriWise AI, a nutrition assistant that helps users find recipes and create meal plans.",
		"",
		"Mandatory behavior:",
		"- When asked to create a meal plan, your FIRST action MUST be calling the calculate tool for meal targets.",
		"- NEVER write recipe recommendations, nutritional data, or calculations without first calling the appropriate tool and using its output.",
		"- NEVER invent or assume nutritional values; always use the recipe search tools.",
		"- ALWAYS persist completed meal plans with save_meal_plan before ending your response.",
		"",
		"Meal distribution (defaults, unless the user specifies otherwise):",
		"- Breakfast: 20% of daily calories",
		"- Lunch: 32.5% of daily calories",
		"- Dinner: 32.5% of daily calories",
		"- Snacks: 15% of daily calories. The snack allocation is a total budget:",
		"  if it exceeds 250 calories, split it into two distinct snacks, 'Snack 1'",
		"  and 'Snack 2', each receiving roughly half; otherwise create a single 'Snack 1'.",
		"  Each snack MUST be a separate top-level object in the final JSON.",
		"",
		"Workflow:",
		"1. Use calculate for every meal's calorie allocation.",
		"2. Search recipes with fuzzy_search_rows(query, column_name, threshold); use",
		"   1-2 word queries, threshold 85 for meals, 75 for snacks, and lower the",
		"   threshold or broaden the term if fewer than 3 suitable recipes return.",
		"3. Adjust servings (decimals allowed) so each meal lands within 5% of its target;",
		"   serving size is target_calories divided by recipe calories per serving.",
		"4. Build the complete meal_plan JSON object and compute Daily Totals.",
		"5. Call save_meal_plan with user_id, the complete plan_data, and user_targets",
		"   ({\"calories\": n, \"protein\": n, \"fat\": n, \"carbs\": n}).",
		"6. Confirm the save result to the user.",
		"",
		"Final answer format:",
		planJSONContract(),
	}, "\n")
}

func weeklySystemPrompt() string {
	return strings.Join([]string{
		"You are NutriWise AI, generating one day of a seven-day meal plan.",
		"",
		"Mandatory behavior:",
		"- Your FIRST action MUST be calling get_previous_recipes_in_week with the",
		"  weekly_plan_id from the request, and you MUST avoid the recipes it returns.",
		"- Then use calculate for meal targets and the recipe search tools for recipes;",
		"  never invent nutritional values.",
		"- Do NOT call save_meal_plan in weekly mode; the orchestrator persists each day.",
		"",
		"Meal distribution defaults and snack splitting follow the daily rules:",
		"breakfast 20%, lunch 32.5%, dinner 32.5%, snacks 15% total (two snacks when",
		"the snack budget exceeds 250 calories, otherwise one).",
		"",
		"Final answer format:",
		planJSONContract(),
	}, "\n")
}

func planJSONContract() string {
	return strings.Join([]string{
		"End with the complete plan as a fenced ```json code block containing a single",
		"object with top-level key \"meal_plan\". Its keys are the meal slot names",
		"('Breakfast', 'Lunch', 'Dinner', 'Snack 1', 'Snack 2', ...) plus 'distribution'",
		"and 'Daily Totals'. Each meal slot holds: recipe_name, recipe_id if known,",
		"servings (number), nutritional_info_per_serving and total_nutrition (objects",
		"with calories, protein, fat, carbohydrates, optionally sodium).",
	}, "\n")
}

// buildDailyTaskPrompt renders the user-facing task for a single-day run.
func buildDailyTaskPrompt(userID string, targets domain.NutritionTargets, p domain.Profile) string {
	var sb strings.Builder
	sb.WriteString("Hi NutriWise AI, I need a personalized daily meal plan.\n\n")
	fmt.Fprintf(&sb, "CRITICAL: My user ID is: %s\n\n", userID)
	sb.WriteString(targetsBlock(targets))
	fmt.Fprintf(&sb, "Dietary preference: %s\n", p.Diet)
	if p.AdditionalConsiderations != "" {
		fmt.Fprintf(&sb, "Additional preferences: %s\n", p.AdditionalConsiderations)
	}
	sb.WriteString("\nYour task (complete ALL steps):\n")
	sb.WriteString("1. Calculate meal targets (20% breakfast, 32.5% lunch, 32.5% dinner, 15% snacks).\n")
	sb.WriteString("2. Search for appropriate recipes.\n")
	sb.WriteString("3. Create and display the complete meal plan.\n")
	fmt.Fprintf(&sb, "4. MANDATORY: call save_meal_plan with user_id %q, your complete meal_plan object as plan_data, and user_targets %s.\n",
		userID, targetsJSON(targets))
	sb.WriteString("5. Confirm the save was successful.\n\n")
	sb.WriteString("Do NOT end your response until save_meal_plan has been called.\n")
	return sb.String()
}

// buildWeeklyDayPrompt renders the task for one day of a weekly run. The
// avoid-repeats constraint is a prompt-level contract enforced through the
// get_previous_recipes_in_week tool, not a programmatic filter.
func buildWeeklyDayPrompt(weeklyPlanID int64, dayNumber int, targets domain.NutritionTargets, p domain.Profile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi NutriWise AI, please create day %d of 7 of my weekly meal plan.\n\n", dayNumber)
	fmt.Fprintf(&sb, "Weekly plan ID: %d\n\n", weeklyPlanID)
	sb.WriteString(targetsBlock(targets))
	fmt.Fprintf(&sb, "Dietary preference: %s\n", p.Diet)
	if p.AdditionalConsiderations != "" {
		fmt.Fprintf(&sb, "Things to avoid / additional preferences: %s\n", p.AdditionalConsiderations)
	}
	sb.WriteString("\nBefore searching for any recipes you MUST call ")
	fmt.Fprintf(&sb, "get_previous_recipes_in_week(weekly_plan_id=%d) ", weeklyPlanID)
	sb.WriteString("and avoid every recipe it returns, so the week stays varied.\n\n")
	sb.WriteString("Then calculate per-meal targets, search recipes, adjust servings, and end with the complete meal_plan JSON.\n")
	return sb.String()
}

// buildShortWeeklyDayPrompt is the retry prompt after an empty response: the
// same contract with the preamble stripped down.
func buildShortWeeklyDayPrompt(weeklyPlanID int64, dayNumber int, targets domain.NutritionTargets, p domain.Profile) string {
	return fmt.Sprintf(
		"Create day %d of 7 of weekly plan %d. Daily targets: %s. Diet: %s. "+
			"First call get_previous_recipes_in_week(weekly_plan_id=%d) and avoid those recipes. "+
			"End with the complete meal_plan JSON in a fenced json block.",
		dayNumber, weeklyPlanID, targetsJSON(targets), p.Diet, weeklyPlanID)
}

func targetsBlock(t domain.NutritionTargets) string {
	return fmt.Sprintf("My daily targets:\n- Calories: %.0f\n- Protein: %.1fg\n- Fat: %.1fg\n- Carbs: %.1fg\n\n",
		t.Calories, t.Protein, t.Fat, t.Carbs)
}

func targetsJSON(t domain.NutritionTargets) string {
	return fmt.Sprintf(`{"calories": %.0f, "protein": %.1f, "fat": %.1f, "carbs": %.1f}`,
		t.Calories, t.Protein, t.Fat, t.Carbs)
}
