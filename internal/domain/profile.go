package domain

// Profile is the questionnaire data stored in the identity provider's user
// metadata. It feeds the targets calculator and the task prompt.
type Profile struct {
	Gender                   string  `json:"gender"`
	Height                   float64 `json:"height"`
	Age                      int     `json:"age"`
	Weight                   float64 `json:"weight"`
	WorkoutsPerWeek          int     `json:"workouts_per_week"`
	Goal                     string  `json:"goal"`
	Diet                     string  `json:"diet"`
	AdditionalConsiderations string  `json:"additional_considerations"`
	WeightGoal               float64 `json:"weight_goal"`
	PlannedWeeklyWeightLoss  float64 `json:"planned_weekly_weight_loss"`
}

// AuthUser is what the identity provider returns for a validated bearer
// token: a stable user id and an arbitrary metadata blob.
type AuthUser struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"user_metadata"`
}
