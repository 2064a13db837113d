package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"nutriagent/internal/domain"
)

const (
	// DefaultIterationLimit bounds one agent run; a model stuck issuing tool
	// calls forever terminates with ITERATION_LIMIT at exactly this many
	// model calls.
	DefaultIterationLimit = 40

	// malformedFailWindow stops corrective retries once the run is inside the
	// last N iterations of the limit, so recovery attempts cannot eat the
	// remaining budget.
	malformedFailWindow = 5
)

const malformedRetryInstruction = "Error: Your last function call was malformed. " +
	"Please retry with valid JSON arguments. For save_meal_plan, ensure plan_data " +
	"is a properly formatted object with all required fields. Double-check all " +
	"quotes, commas, and brackets."

// ModelClient is the generative endpoint as seen by the loop. Generate sends
// the full conversation plus tool declarations and system instruction, and
// returns the model's next turn.
type ModelClient interface {
	Generate(ctx context.Context, history []domain.Message, tools []domain.ToolSchema, system string) (domain.ModelTurn, error)
}

// AgentLoop drives a tool-using conversation to completion: it calls the
// endpoint, classifies each turn, dispatches tool calls in emitted order, and
// feeds results back until the model answers with pure text or a bound trips.
type AgentLoop struct {
	model          ModelClient
	logger         *slog.Logger
	iterationLimit int
	callTimeout    time.Duration
}

// NewAgentLoop builds a loop. iterationLimit <= 0 selects the default;
// callTimeout <= 0 disables the per-call deadline.
func NewAgentLoop(model ModelClient, logger *slog.Logger, iterationLimit int, callTimeout time.Duration) (*AgentLoop, error) {
	if model == nil {
		return nil, errors.New("usecase: model client must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if iterationLimit <= 0 {
		iterationLimit = DefaultIterationLimit
	}
	return &AgentLoop{
		model:          model,
		logger:         logger,
		iterationLimit: iterationLimit,
		callTimeout:    callTimeout,
	}, nil
}

// Run executes one agent run from the initial prompt to a terminal outcome.
// Conversation history lives only for the duration of the call.
func (l *AgentLoop) Run(ctx context.Context, prompt, system string, reg *ToolRegistry) (domain.RunOutcome, error) {
	history := []domain.Message{domain.NewTextMessage(domain.RoleUser, prompt)}
	schemas := reg.Schemas()

	for iter := 1; iter <= l.iterationLimit; iter++ {
		turn, err := l.generate(ctx, history, schemas, system)
		if err != nil {
			// Transport and auth failures are fatal; the loop never retries them.
			return domain.RunOutcome{}, newError(ErrorUpstream, "model_call_failed", err)
		}

		if turn.Empty() {
			if turn.Malformed {
				if iter > l.iterationLimit-malformedFailWindow {
					l.logger.Error("malformed function call too close to iteration limit", "iteration", iter)
					return domain.RunOutcome{}, newError(ErrorMalformedCalls, "repeated_malformed_calls", nil)
				}
				l.logger.Warn("malformed function call, sending corrective instruction", "iteration", iter)
				history = append(history, domain.NewTextMessage(domain.RoleUser, malformedRetryInstruction))
				continue
			}
			if iter == 1 {
				// An empty first turn is an upstream rate limit or safety
				// block, not worth spending iterations on.
				return domain.RunOutcome{}, newError(ErrorEmptyResponse, "empty_first_turn", nil)
			}
			l.logger.Warn("model returned empty response", "iteration", iter)
			return domain.RunOutcome{Empty: true}, nil
		}

		history = append(history, domain.Message{Role: domain.RoleModel, Parts: turn.Parts})

		var texts []string
		var calls []domain.ToolCall
		for _, part := range turn.Parts {
			switch {
			case part.Call != nil:
				calls = append(calls, *part.Call)
			case part.Text != "":
				texts = append(texts, part.Text)
			}
		}

		if len(calls) > 0 {
			// A turn with pending tool calls is non-terminal; co-emitted text
			// is discarded.
			toolMsg := domain.Message{Role: domain.RoleTool}
			for _, call := range calls {
				l.logger.Info("dispatching tool", "iteration", iter, "tool", call.Name)
				result, err := reg.Dispatch(ctx, call)
				if err != nil {
					return domain.RunOutcome{}, err
				}
				toolMsg.Parts = append(toolMsg.Parts, domain.Part{Result: &result})
			}
			history = append(history, toolMsg)
			continue
		}

		if len(texts) > 0 {
			return domain.RunOutcome{Final: strings.Join(texts, "\n")}, nil
		}

		l.logger.Warn("turn had neither tool calls nor text", "iteration", iter)
	}

	return domain.RunOutcome{}, newError(ErrorIterationLimit, "iteration_limit_reached", nil)
}

func (l *AgentLoop) generate(ctx context.Context, history []domain.Message, schemas []domain.ToolSchema, system string) (domain.ModelTurn, error) {
	if l.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.callTimeout)
		defer cancel()
	}
	return l.model.Generate(ctx, history, schemas, system)
}
