package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"nutriagent/internal/domain"
)

const (
	skMeta       = "META#"
	skPrefixPlan = "PLAN#"
	skPrefixMeal = "MEAL#"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Client wraps the two DynamoDB tables backing the planner: a recipe catalog
// table and a single-table layout for plans.
//
// Plans table key layout:
//
//	USER#<userID> / PLAN#<createdAt>#<uuid>   saved single-day plans
//	WEEK#<id>     / META#                     weekly plan record
//	WEEK#<id>     / DAY#<nn>                  daily plan records
//	WEEK#<id>     / MEAL#<dailyPlanID>#...    committed meals
type Client struct {
	api          dynamodbAPI
	plansTable   string
	recipesTable string
}

// New creates a new repository Client.
func New(api dynamodbAPI, plansTable, recipesTable string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(plansTable) == "" {
		return nil, errors.New("repository: plans table name must not be empty")
	}
	if strings.TrimSpace(recipesTable) == "" {
		return nil, errors.New("repository: recipes table name must not be empty")
	}
	return &Client{api: api, plansTable: plansTable, recipesTable: recipesTable}, nil
}

func userPK(userID string) string {
	return "USER#" + userID
}

func weekPK(weeklyPlanID int64) string {
	return fmt.Sprintf("WEEK#%d", weeklyPlanID)
}

func daySK(dayNumber int) string {
	return fmt.Sprintf("DAY#%02d", dayNumber)
}

// ListRecipes scans the full recipe catalog, following pagination until
// exhausted. The catalog is small (hundreds of rows) and read once per
// process, so a scan is acceptable here.
func (c *Client) ListRecipes(ctx context.Context) ([]domain.Recipe, error) {
	var recipes []domain.Recipe
	var startKey map[string]types.AttributeValue

	for {
		out, err := c.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(c.recipesTable),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListRecipes scan: %w", err)
		}
		for _, item := range out.Items {
			recipe, err := itemToRecipe(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListRecipes unmarshal: %w", err)
			}
			recipes = append(recipes, recipe)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return recipes, nil
}

// SearchRecipes filters the catalog by normalized name similarity in [0, 1].
func (c *Client) SearchRecipes(ctx context.Context, query string, threshold float64) ([]domain.Recipe, error) {
	all, err := c.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := int(threshold * 100)
	var matches []domain.Recipe
	for _, r := range all {
		if fuzzy.Ratio(strings.ToLower(query), strings.ToLower(r.Name)) >= cutoff {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// SaveMealPlan persists a single-day plan and returns its generated id.
// Plan payloads are stored as JSON strings; they are opaque to queries.
func (c *Client) SaveMealPlan(ctx context.Context, plan domain.MealPlan) (string, error) {
	id := uuid.NewString()

	planData, err := json.Marshal(plan.PlanData)
	if err != nil {
		return "", fmt.Errorf("repository: SaveMealPlan marshal plan_data: %w", err)
	}
	targets, err := json.Marshal(plan.UserTargets)
	if err != nil {
		return "", fmt.Errorf("repository: SaveMealPlan marshal user_targets: %w", err)
	}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.plansTable),
		Item: map[string]types.AttributeValue{
			"PK":          &types.AttributeValueMemberS{Value: userPK(plan.UserID)},
			"SK":          &types.AttributeValueMemberS{Value: skPrefixPlan + plan.CreatedAt + "#" + id},
			"id":          &types.AttributeValueMemberS{Value: id},
			"userId":      &types.AttributeValueMemberS{Value: plan.UserID},
			"planData":    &types.AttributeValueMemberS{Value: string(planData)},
			"userTargets": &types.AttributeValueMemberS{Value: string(targets)},
			"createdAt":   &types.AttributeValueMemberS{Value: plan.CreatedAt},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return "", fmt.Errorf("repository: SaveMealPlan: %w", err)
	}
	return id, nil
}

// LatestMealPlan returns the most recently saved plan for a user, or nil when
// the user has none.
func (c *Client) LatestMealPlan(ctx context.Context, userID string) (*domain.MealPlan, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.plansTable),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixPlan},
		},
		// Sort keys embed the RFC3339 timestamp, so descending key order is
		// newest first.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: LatestMealPlan query: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	plan, err := itemToMealPlan(out.Items[0])
	if err != nil {
		return nil, fmt.Errorf("repository: LatestMealPlan unmarshal: %w", err)
	}
	return &plan, nil
}

// CreateWeeklyPlan writes the weekly metadata record.
func (c *Client) CreateWeeklyPlan(ctx context.Context, plan domain.WeeklyPlan) error {
	targets, err := json.Marshal(plan.Targets)
	if err != nil {
		return fmt.Errorf("repository: CreateWeeklyPlan marshal targets: %w", err)
	}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.plansTable),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: weekPK(plan.ID)},
			"SK":        &types.AttributeValueMemberS{Value: skMeta},
			"id":        &types.AttributeValueMemberN{Value: strconv.FormatInt(plan.ID, 10)},
			"userId":    &types.AttributeValueMemberS{Value: plan.UserID},
			"status":    &types.AttributeValueMemberS{Value: string(plan.Status)},
			"targets":   &types.AttributeValueMemberS{Value: string(targets)},
			"startDate": &types.AttributeValueMemberS{Value: plan.StartDate},
			"createdAt": &types.AttributeValueMemberS{Value: plan.CreatedAt},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateWeeklyPlan: %w", err)
	}
	return nil
}

// SetWeeklyPlanStatus updates the status field on the weekly metadata record.
func (c *Client) SetWeeklyPlanStatus(ctx context.Context, weeklyPlanID int64, status domain.WeeklyPlanStatus) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.plansTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: weekPK(weeklyPlanID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:         aws.String("SET #status = :status"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: SetWeeklyPlanStatus: %w", err)
	}
	return nil
}

// CreateDailyPlan writes one day record under the weekly partition.
func (c *Client) CreateDailyPlan(ctx context.Context, plan domain.DailyPlan) error {
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.plansTable),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: weekPK(plan.WeeklyPlanID)},
			"SK":        &types.AttributeValueMemberS{Value: daySK(plan.DayNumber)},
			"id":        &types.AttributeValueMemberS{Value: plan.ID},
			"dayNumber": &types.AttributeValueMemberN{Value: strconv.Itoa(plan.DayNumber)},
			"date":      &types.AttributeValueMemberS{Value: plan.Date},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: CreateDailyPlan: %w", err)
	}
	return nil
}

// InsertMeal writes one committed meal row under the weekly partition.
func (c *Client) InsertMeal(ctx context.Context, meal domain.Meal) error {
	sk := fmt.Sprintf("%s%s#%s#%d", skPrefixMeal, meal.DailyPlanID, meal.Type, meal.TypeOrder)

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.plansTable),
		Item: map[string]types.AttributeValue{
			"PK":            &types.AttributeValueMemberS{Value: weekPK(meal.WeeklyPlanID)},
			"SK":            &types.AttributeValueMemberS{Value: sk},
			"dailyPlanId":   &types.AttributeValueMemberS{Value: meal.DailyPlanID},
			"mealType":      &types.AttributeValueMemberS{Value: string(meal.Type)},
			"typeOrder":     &types.AttributeValueMemberN{Value: strconv.Itoa(meal.TypeOrder)},
			"recipeId":      &types.AttributeValueMemberS{Value: meal.RecipeID},
			"recipeName":    &types.AttributeValueMemberS{Value: meal.RecipeName},
			"servings":      numAttr(meal.Servings),
			"calories":      numAttr(meal.Calories),
			"protein":       numAttr(meal.Protein),
			"fat":           numAttr(meal.Fat),
			"carbohydrates": numAttr(meal.Carbohydrates),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: InsertMeal: %w", err)
	}
	return nil
}

// RecipesUsedInWeek collects the recipe names of all meals committed so far
// for a weekly plan.
func (c *Client) RecipesUsedInWeek(ctx context.Context, weeklyPlanID int64) ([]string, error) {
	names := make([]string, 0)
	var startKey map[string]types.AttributeValue

	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.plansTable),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: weekPK(weeklyPlanID)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixMeal},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: RecipesUsedInWeek query: %w", err)
		}
		for _, item := range out.Items {
			if name, err := strAttr(item, "recipeName"); err == nil && name != "" {
				names = append(names, name)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return names, nil
}

// itemToRecipe converts a recipe catalog item to a domain Recipe.
func itemToRecipe(item map[string]types.AttributeValue) (domain.Recipe, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Recipe{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Recipe{}, err
	}

	// Nutrition attributes default to zero when absent; partial catalog rows
	// are still searchable by name.
	calories, _ := floatAttr(item, "calories")
	protein, _ := floatAttr(item, "protein")
	fat, _ := floatAttr(item, "fat")
	carbs, _ := floatAttr(item, "carbohydrates")
	sodium, _ := floatAttr(item, "sodium")

	return domain.Recipe{
		ID:            id,
		Name:          name,
		Calories:      calories,
		Protein:       protein,
		Fat:           fat,
		Carbohydrates: carbs,
		Sodium:        sodium,
	}, nil
}

func itemToMealPlan(item map[string]types.AttributeValue) (domain.MealPlan, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.MealPlan{}, err
	}
	userID, err := strAttr(item, "userId")
	if err != nil {
		return domain.MealPlan{}, err
	}
	createdAt, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.MealPlan{}, err
	}

	planData, err := jsonAttr(item, "planData")
	if err != nil {
		return domain.MealPlan{}, err
	}
	targets, err := jsonAttr(item, "userTargets")
	if err != nil {
		return domain.MealPlan{}, err
	}

	return domain.MealPlan{
		ID:          id,
		UserID:      userID,
		PlanData:    planData,
		UserTargets: targets,
		CreatedAt:   createdAt,
	}, nil
}

func numAttr(f float64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

// jsonAttr decodes a string attribute holding a JSON object.
func jsonAttr(item map[string]types.AttributeValue, key string) (map[string]any, error) {
	raw, err := strAttr(item, key)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("repository: decode attribute %q: %w", key, err)
	}
	return out, nil
}
