package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"nutriagent/handler"
	"nutriagent/internal/integrations/authapi"
	"nutriagent/internal/integrations/gemini"
	"nutriagent/internal/integrations/paramstore"
	"nutriagent/internal/repository"
	"nutriagent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	plansTable := mustEnv("PLANS_TABLE")
	recipesTable := mustEnv("RECIPES_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	authBaseURL := mustEnv("AUTH_BASE_URL")
	maxIterations := envInt("MAX_AGENT_ITERATIONS", usecase.DefaultIterationLimit)
	callTimeout := time.Duration(envInt("MODEL_CALL_TIMEOUT_SECONDS", 90)) * time.Second

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), plansTable, recipesTable)
	if err != nil {
		slog.Error("failed to create repository client", "err", err)
		os.Exit(1)
	}
	geminiClient, err := gemini.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}
	authClient, err := authapi.NewClient(authBaseURL)
	if err != nil {
		slog.Error("failed to create auth client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	planService, err := usecase.NewPlanService(geminiClient, store, slog.Default(), maxIterations, callTimeout)
	if err != nil {
		slog.Error("failed to create plan service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(planService, authClient, slog.Default())
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
