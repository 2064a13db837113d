package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"nutriagent/internal/domain"
)

func TestNewPlanService_RequiresStore(t *testing.T) {
	_, err := NewPlanService(&scriptedModel{}, nil, nil, 0, 0)
	require.Error(t, err)
}

func TestGenerateDailyPlan_HappyPath(t *testing.T) {
	saved := &domain.MealPlan{ID: "plan-1", UserID: "user-1"}
	store := &fakeStore{latest: saved}
	model := &scriptedModel{turns: []domain.ModelTurn{textTurn("Here is your plan.")}}
	svc := newTestService(t, model, store)

	out, err := svc.GenerateDailyPlan(context.Background(), GenerateDayInput{UserID: "user-1", Profile: testProfile})
	require.NoError(t, err)
	require.Equal(t, "Here is your plan.", out.AgentResponse)
	require.Equal(t, saved, out.MealPlan)
	require.InDelta(t, 2759.0, out.Targets.Targets.Calories, 1e-9)
}

func TestGenerateDailyPlan_RequiresUserID(t *testing.T) {
	svc := newTestService(t, &scriptedModel{turns: []domain.ModelTurn{textTurn("x")}}, &fakeStore{})

	_, err := svc.GenerateDailyPlan(context.Background(), GenerateDayInput{Profile: testProfile})
	require.Error(t, err)
	require.Equal(t, ErrorInvalidInput, CodeOf(err))
}

func TestGenerateDailyPlan_EmptyOutcomeIsError(t *testing.T) {
	model := &scriptedModel{turns: []domain.ModelTurn{callTurn(ToolCalculate), {}}}
	svc := newTestService(t, model, &fakeStore{})

	_, err := svc.GenerateDailyPlan(context.Background(), GenerateDayInput{UserID: "user-1", Profile: testProfile})
	require.Error(t, err)
	require.Equal(t, ErrorEmptyResponse, CodeOf(err))
}

func TestGenerateDailyPlan_InvalidProfile(t *testing.T) {
	profile := testProfile
	profile.Goal = "Get Shredded"
	svc := newTestService(t, &scriptedModel{turns: []domain.ModelTurn{textTurn("x")}}, &fakeStore{})

	_, err := svc.GenerateDailyPlan(context.Background(), GenerateDayInput{UserID: "user-1", Profile: profile})
	require.Error(t, err)
	require.Equal(t, ErrorInvalidInput, CodeOf(err))
}

func TestCurrentPlan(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, &scriptedModel{turns: []domain.ModelTurn{textTurn("x")}}, store)

	_, err := svc.CurrentPlan(context.Background(), "")
	require.Equal(t, ErrorInvalidInput, CodeOf(err))

	_, err = svc.CurrentPlan(context.Background(), "user-1")
	require.Equal(t, ErrorNotFound, CodeOf(err))

	store.latest = &domain.MealPlan{ID: "plan-1", UserID: "user-1"}
	plan, err := svc.CurrentPlan(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "plan-1", plan.ID)
}
