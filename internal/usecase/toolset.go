package usecase

import "nutriagent/internal/domain"

// Tool names are part of the conversation protocol: the model addresses
// tools by these strings.
const (
	ToolFuzzySearchRows       = "fuzzy_search_rows"
	ToolSearchRecipes         = "search_recipes"
	ToolCalculate             = "calculate"
	ToolSaveMealPlan          = "save_meal_plan"
	ToolGetCurrentMealPlan    = "get_current_meal_plan"
	ToolPreviousRecipesInWeek = "get_previous_recipes_in_week"
)

// NewDailyRegistry builds the five-tool registry for single-day generation.
func NewDailyRegistry(tb *Toolbox) *ToolRegistry {
	return newToolRegistry(dailyTools(tb)...)
}

// NewWeeklyRegistry adds the used-this-week lookup required by weekly mode.
func NewWeeklyRegistry(tb *Toolbox) *ToolRegistry {
	tools := append(dailyTools(tb), registeredTool{
		schema: domain.ToolSchema{
			Name:        ToolPreviousRecipesInWeek,
			Description: "Retrieves all recipe names used so far in the current weekly plan to help avoid repetition when generating new days.",
			Params: map[string]domain.ParamSchema{
				"weekly_plan_id": {Type: domain.ParamInteger, Description: "The ID of the weekly plan being generated."},
			},
			Required: []string{"weekly_plan_id"},
		},
		run: tb.previousRecipesInWeek,
	})
	return newToolRegistry(tools...)
}

func dailyTools(tb *Toolbox) []registeredTool {
	return []registeredTool{
		{
			schema: domain.ToolSchema{
				Name:        ToolFuzzySearchRows,
				Description: "Performs a fuzzy search on recipe names and returns matching rows with nutritional information per serving, including calories, protein, fat, carbohydrates, and sodium.",
				Params: map[string]domain.ParamSchema{
					"query":       {Type: domain.ParamString, Description: "The search term to match against recipe names (e.g., 'chicken curry', 'salmon bowl', 'omelette')."},
					"column_name": {Type: domain.ParamString, Description: "The column to search in. Default is 'name'."},
					"threshold":   {Type: domain.ParamInteger, Description: "Minimum similarity score from 0 to 100. Default is 85. Lower values (e.g., 70) return more results."},
				},
				Required: []string{"query"},
			},
			run: tb.fuzzySearchRows,
		},
		{
			schema: domain.ToolSchema{
				Name:        ToolSearchRecipes,
				Description: "Searches recipes by name using exact-match similarity and returns matching recipes with nutritional info.",
				Params: map[string]domain.ParamSchema{
					"query":     {Type: domain.ParamString, Description: "The search term for the recipe name."},
					"threshold": {Type: domain.ParamNumber, Description: "Optional similarity threshold from 0 to 1 (e.g., 0.8)."},
				},
				Required: []string{"query"},
			},
			run: tb.searchRecipes,
		},
		{
			schema: domain.ToolSchema{
				Name:        ToolCalculate,
				Description: "A calculator that safely evaluates a complete mathematical string expression. Use this for multi-step calculations involving parentheses and standard order of operations.",
				Params: map[string]domain.ParamSchema{
					"expression": {Type: domain.ParamString, Description: "The mathematical expression to evaluate, e.g., '2000 * 0.2'."},
				},
				Required: []string{"expression"},
			},
			run: tb.calculate,
		},
		{
			schema: domain.ToolSchema{
				Name:        ToolSaveMealPlan,
				Description: "Saves a generated meal plan to the database for a specific user.",
				Params: map[string]domain.ParamSchema{
					"user_id":      {Type: domain.ParamString, Description: "The user's unique identifier (UUID)."},
					"plan_data":    {Type: domain.ParamObject, Description: "The complete JSON object of the meal plan."},
					"user_targets": {Type: domain.ParamObject, Description: "A JSON object of the user's nutritional targets (calories, protein, fat, carbs)."},
				},
				Required: []string{"user_id", "plan_data", "user_targets"},
			},
			run: tb.saveMealPlan,
		},
		{
			schema: domain.ToolSchema{
				Name:        ToolGetCurrentMealPlan,
				Description: "Retrieves the most recent meal plan for a specific user.",
				Params: map[string]domain.ParamSchema{
					"user_id": {Type: domain.ParamString, Description: "The user's unique identifier (UUID)."},
				},
				Required: []string{"user_id"},
			},
			run: tb.getCurrentMealPlan,
		},
	}
}
