package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"nutriagent/internal/domain"
)

const defaultModel = "gemini-2.5-flash"

// Getter fetches configuration parameters; satisfied by paramstore.Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps the Gemini API for tool-calling content generation. The API
// key (and optional model override) are fetched from the parameter store on
// the first Generate call and reused for the lifetime of the process.
type Client struct {
	getter      Getter
	paramPrefix string
	baseURL     string

	initOnce sync.Once
	initErr  error
	api      *genai.Client
	model    string
}

type Option func(*Client)

// WithBaseURL points the client at a non-default API endpoint (tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// NewClient creates a Client backed by the given parameter Getter. Expected
// parameters under the prefix: "gemini_api_key" (SecureString) and, if set,
// "config/gemini_model".
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("gemini: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("gemini: parameter prefix must not be empty")
	}
	c := &Client{getter: ps, paramPrefix: paramPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) init(ctx context.Context) error {
	c.initOnce.Do(func() {
		key, err := c.getter.GetParameter(ctx, c.paramPrefix+"/gemini_api_key")
		if err != nil {
			c.initErr = fmt.Errorf("gemini: load api key: %w", err)
			return
		}

		c.model = defaultModel
		if model, err := c.getter.GetParameter(ctx, c.paramPrefix+"/config/gemini_model"); err == nil && strings.TrimSpace(model) != "" {
			c.model = strings.TrimSpace(model)
		}

		cfg := &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		}
		if c.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
		}
		c.api, c.initErr = genai.NewClient(ctx, cfg)
	})
	return c.initErr
}

// Generate sends the conversation with tool declarations and the system
// instruction, and classifies the response into a domain.ModelTurn. Endpoint
// and transport failures are returned as errors; empty or malformed turns
// are data for the agent loop's policies.
func (c *Client) Generate(ctx context.Context, history []domain.Message, tools []domain.ToolSchema, system string) (domain.ModelTurn, error) {
	if err := c.init(ctx); err != nil {
		return domain.ModelTurn{}, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(system)},
		},
	}
	if decls := toFunctionDeclarations(tools); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := c.api.Models.GenerateContent(ctx, c.model, toContents(history), config)
	if err != nil {
		return domain.ModelTurn{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	return classify(resp), nil
}

func classify(resp *genai.GenerateContentResponse) domain.ModelTurn {
	if resp == nil || len(resp.Candidates) == 0 {
		return domain.ModelTurn{}
	}
	candidate := resp.Candidates[0]

	turn := domain.ModelTurn{
		Malformed: candidate.FinishReason == genai.FinishReasonMalformedFunctionCall,
	}
	if candidate.Content == nil {
		return turn
	}
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil && part.FunctionCall.Name != "" {
			turn.Parts = append(turn.Parts, domain.Part{Call: &domain.ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}})
			continue
		}
		if part.Text != "" {
			turn.Parts = append(turn.Parts, domain.Part{Text: part.Text})
		}
	}
	return turn
}

// toContents converts conversation history to the wire shape. Tool results
// travel back as user-role function-response parts, matching the protocol's
// expectation that responses correlate 1:1 with the preceding calls.
func toContents(history []domain.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case domain.RoleUser:
			content := &genai.Content{Role: "user"}
			for _, p := range msg.Parts {
				if p.Text != "" {
					content.Parts = append(content.Parts, genai.NewPartFromText(p.Text))
				}
			}
			contents = append(contents, content)
		case domain.RoleModel:
			content := &genai.Content{Role: "model"}
			for _, p := range msg.Parts {
				switch {
				case p.Call != nil:
					content.Parts = append(content.Parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{Name: p.Call.Name, Args: p.Call.Args},
					})
				case p.Text != "":
					content.Parts = append(content.Parts, genai.NewPartFromText(p.Text))
				}
			}
			contents = append(contents, content)
		case domain.RoleTool:
			content := &genai.Content{Role: "user"}
			for _, p := range msg.Parts {
				if p.Result == nil {
					continue
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     p.Result.Name,
						Response: p.Result.Response,
					},
				})
			}
			contents = append(contents, content)
		}
	}
	return contents
}

func toFunctionDeclarations(tools []domain.ToolSchema) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Params)),
			Required:   t.Required,
		}
		for name, p := range t.Params {
			schema.Properties[name] = &genai.Schema{
				Type:        toSchemaType(p.Type),
				Description: p.Description,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func toSchemaType(t domain.ParamType) genai.Type {
	switch t {
	case domain.ParamNumber:
		return genai.TypeNumber
	case domain.ParamInteger:
		return genai.TypeInteger
	case domain.ParamObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
