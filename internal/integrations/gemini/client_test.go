package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"nutriagent/internal/domain"
)

type stubGetter struct {
	params map[string]string
}

func (s *stubGetter) GetParameter(_ context.Context, name string) (string, error) {
	if v, ok := s.params[name]; ok {
		return v, nil
	}
	return "", context.Canceled
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(nil, "/app")
	require.Error(t, err)

	_, err = NewClient(&stubGetter{}, "  ")
	require.Error(t, err)
}

func TestClassify_EmptyResponse(t *testing.T) {
	turn := classify(&genai.GenerateContentResponse{})
	require.True(t, turn.Empty())
	require.False(t, turn.Malformed)
}

func TestClassify_MalformedFinishReason(t *testing.T) {
	turn := classify(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonMalformedFunctionCall,
		}},
	})
	require.True(t, turn.Empty())
	require.True(t, turn.Malformed)
}

func TestClassify_MixedParts(t *testing.T) {
	turn := classify(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "let me check"},
				{FunctionCall: &genai.FunctionCall{Name: "calculate", Args: map[string]any{"expression": "1+1"}}},
				{},
			}},
		}},
	})
	require.Len(t, turn.Parts, 2)
	require.Equal(t, "let me check", turn.Parts[0].Text)
	require.NotNil(t, turn.Parts[1].Call)
	require.Equal(t, "calculate", turn.Parts[1].Call.Name)
}

func TestToContents_RoleMapping(t *testing.T) {
	history := []domain.Message{
		domain.NewTextMessage(domain.RoleUser, "plan my day"),
		{Role: domain.RoleModel, Parts: []domain.Part{
			{Call: &domain.ToolCall{Name: "calculate", Args: map[string]any{"expression": "1+1"}}},
		}},
		{Role: domain.RoleTool, Parts: []domain.Part{
			{Result: &domain.ToolResult{Name: "calculate", Response: map[string]any{"result": map[string]any{"success": true}}}},
		}},
	}

	contents := toContents(history)
	require.Len(t, contents, 3)

	require.Equal(t, "user", contents[0].Role)
	require.Equal(t, "plan my day", contents[0].Parts[0].Text)

	require.Equal(t, "model", contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	require.Equal(t, "calculate", contents[1].Parts[0].FunctionCall.Name)

	// Tool results travel back under the user role as function responses.
	require.Equal(t, "user", contents[2].Role)
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	require.Equal(t, "calculate", contents[2].Parts[0].FunctionResponse.Name)
}

func TestToFunctionDeclarations(t *testing.T) {
	decls := toFunctionDeclarations([]domain.ToolSchema{{
		Name:        "save_meal_plan",
		Description: "Saves a plan.",
		Params: map[string]domain.ParamSchema{
			"user_id":   {Type: domain.ParamString, Description: "The user id."},
			"plan_data": {Type: domain.ParamObject},
			"servings":  {Type: domain.ParamNumber},
			"count":     {Type: domain.ParamInteger},
		},
		Required: []string{"user_id", "plan_data"},
	}})

	require.Len(t, decls, 1)
	decl := decls[0]
	require.Equal(t, "save_meal_plan", decl.Name)
	require.Equal(t, genai.TypeObject, decl.Parameters.Type)
	require.Equal(t, []string{"user_id", "plan_data"}, decl.Parameters.Required)
	require.Equal(t, genai.TypeString, decl.Parameters.Properties["user_id"].Type)
	require.Equal(t, genai.TypeObject, decl.Parameters.Properties["plan_data"].Type)
	require.Equal(t, genai.TypeNumber, decl.Parameters.Properties["servings"].Type)
	require.Equal(t, genai.TypeInteger, decl.Parameters.Properties["count"].Type)
}
