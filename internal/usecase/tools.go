package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Knetic/govaluate"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"nutriagent/internal/domain"
)

const (
	fuzzyDefaultThreshold = 85
	fuzzyResultCap        = 15
	exactDefaultThreshold = 0.80
)

// Toolbox holds the tool implementations and their shared collaborators. The
// recipe snapshot is loaded from the store on first use and treated as an
// immutable read-only view for the rest of the process lifetime.
type Toolbox struct {
	store PlanStore
	now   func() string

	cacheMu sync.Mutex
	loaded  bool
	recipes []domain.Recipe
}

// NewToolbox creates a Toolbox backed by the given store. now stamps saved
// plans and defaults to UTC RFC3339 when nil.
func NewToolbox(store PlanStore, now func() string) (*Toolbox, error) {
	if store == nil {
		return nil, fmt.Errorf("usecase: toolbox store must not be nil")
	}
	if now == nil {
		return nil, fmt.Errorf("usecase: toolbox clock must not be nil")
	}
	return &Toolbox{store: store, now: now}, nil
}

// recipeSnapshot populates the cache once; only one populate runs, and a
// failed populate is retried on the next call rather than cached.
func (tb *Toolbox) recipeSnapshot(ctx context.Context) ([]domain.Recipe, error) {
	tb.cacheMu.Lock()
	defer tb.cacheMu.Unlock()
	if tb.loaded {
		return tb.recipes, nil
	}
	rows, err := tb.store.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipe snapshot: %w", err)
	}
	tb.recipes = rows
	tb.loaded = true
	return tb.recipes, nil
}

func toolFailure(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

func toolFailureTyped(msg, errType string) map[string]any {
	return map[string]any{"success": false, "error": msg, "error_type": errType}
}

// fuzzySearchRows matches recipe names by token-set ratio (0-100) and returns
// up to fuzzyResultCap rows with nutritional info per serving.
func (tb *Toolbox) fuzzySearchRows(ctx context.Context, args map[string]any) map[string]any {
	query, _ := args["query"].(string)
	column := stringArg(args, "column_name", "name")
	threshold := intArg(args, "threshold", fuzzyDefaultThreshold)

	if column != "name" {
		return toolFailure(fmt.Sprintf("unknown column %q; only \"name\" is searchable", column))
	}

	rows, err := tb.recipeSnapshot(ctx)
	if err != nil {
		return toolFailure(err.Error())
	}

	var results []map[string]any
	for _, r := range rows {
		if fuzzy.TokenSetRatio(query, r.Name) >= threshold {
			results = append(results, recipeRow(r))
			if len(results) == fuzzyResultCap {
				break
			}
		}
	}

	return map[string]any{"success": true, "count": len(results), "results": results}
}

// searchRecipes is the exact-match variant: a normalized similarity with a
// 0-1 threshold, mirroring the store-side fuzzy search RPC.
func (tb *Toolbox) searchRecipes(ctx context.Context, args map[string]any) map[string]any {
	query, _ := args["query"].(string)
	threshold := floatArg(args, "threshold", exactDefaultThreshold)
	if threshold < 0 || threshold > 1 {
		return toolFailure(fmt.Sprintf("threshold must be between 0 and 1, got %v", threshold))
	}

	rows, err := tb.store.SearchRecipes(ctx, query, threshold)
	if err != nil {
		return toolFailure(err.Error())
	}

	results := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		results = append(results, recipeRow(r))
	}
	return map[string]any{"success": true, "count": len(results), "results": results}
}

// calculate evaluates an arithmetic expression string. Division by zero and
// parse failures come back as error envelopes for the model to correct.
func (tb *Toolbox) calculate(_ context.Context, args map[string]any) map[string]any {
	expr, _ := args["expression"].(string)

	parsed, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return toolFailure(fmt.Sprintf("invalid expression: %v", err))
	}
	value, err := parsed.Evaluate(nil)
	if err != nil {
		return toolFailure(fmt.Sprintf("calculation error: %v", err))
	}
	if f, ok := value.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return toolFailure("division by zero occurred in the expression")
	}
	return map[string]any{"success": true, "result": value}
}

// saveMealPlan validates and persists a single-day plan for a user.
func (tb *Toolbox) saveMealPlan(ctx context.Context, args map[string]any) map[string]any {
	userID, _ := args["user_id"].(string)
	if strings.TrimSpace(userID) == "" {
		return toolFailure("invalid user_id; must be a non-empty string")
	}

	planData, err := objectArg(args, "plan_data")
	if err != nil {
		return toolFailure(err.Error())
	}
	targets, err := objectArg(args, "user_targets")
	if err != nil {
		return toolFailure(err.Error())
	}
	for _, key := range []string{"calories", "protein", "fat", "carbs"} {
		v, ok := targets[key]
		if !ok {
			return toolFailure(fmt.Sprintf("user_targets missing required key %q", key))
		}
		if _, ok := toFloat(v); !ok {
			return toolFailure(fmt.Sprintf("user_targets[%q] must be a number, got %T", key, v))
		}
	}

	plan := domain.MealPlan{
		UserID:      userID,
		PlanData:    planData,
		UserTargets: targets,
		CreatedAt:   tb.now(),
	}
	id, err := tb.store.SaveMealPlan(ctx, plan)
	if err != nil {
		return toolFailureTyped(fmt.Sprintf("database insert failed: %v", err), "storage")
	}
	return map[string]any{"success": true, "message": "Meal plan saved successfully", "plan_id": id}
}

// getCurrentMealPlan retrieves the most recent plan for a user.
func (tb *Toolbox) getCurrentMealPlan(ctx context.Context, args map[string]any) map[string]any {
	userID, _ := args["user_id"].(string)

	plan, err := tb.store.LatestMealPlan(ctx, userID)
	if err != nil {
		return toolFailure(fmt.Sprintf("retrieving the meal plan failed: %v", err))
	}
	if plan == nil {
		return map[string]any{"success": false, "message": "No meal plan found for this user."}
	}
	return map[string]any{
		"success": true,
		"plan": map[string]any{
			"id":           plan.ID,
			"plan_data":    plan.PlanData,
			"user_targets": plan.UserTargets,
			"created_at":   plan.CreatedAt,
		},
	}
}

// previousRecipesInWeek lists recipe names already committed for a weekly
// plan, so the model can avoid repeats on later days.
func (tb *Toolbox) previousRecipesInWeek(ctx context.Context, args map[string]any) map[string]any {
	id, ok := toFloat(args["weekly_plan_id"])
	if !ok {
		return toolFailure(fmt.Sprintf("weekly_plan_id must be an integer, got %T", args["weekly_plan_id"]))
	}

	names, err := tb.store.RecipesUsedInWeek(ctx, int64(id))
	if err != nil {
		return toolFailure(err.Error())
	}
	sort.Strings(names)
	return map[string]any{"success": true, "recipes_used": names, "count": len(names)}
}

func recipeRow(r domain.Recipe) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"name":          r.Name,
		"calories":      r.Calories,
		"protein":       r.Protein,
		"fat":           r.Fat,
		"carbohydrates": r.Carbohydrates,
		"sodium":        r.Sodium,
	}
}

// objectArg fetches a map-valued argument, tolerating a JSON string the way
// models sometimes serialize nested objects.
func objectArg(args map[string]any, name string) (map[string]any, error) {
	switch v := args[name].(type) {
	case map[string]any:
		return v, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("%s is a string but not valid JSON", name)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an object, got %T", name, v)
	}
}

func stringArg(args map[string]any, name, def string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return def
}

func intArg(args map[string]any, name string, def int) int {
	if f, ok := toFloat(args[name]); ok {
		return int(f)
	}
	return def
}

func floatArg(args map[string]any, name string, def float64) float64 {
	if f, ok := toFloat(args[name]); ok {
		return f
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
