package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travel-assistant/handler"
	"travel-assistant/internal/config"
	"travel-assistant/internal/integrations/bedrock"
	"travel-assistant/internal/integrations/openai"
	"travel-assistant/internal/integrations/paramstore"
	"travel-assistant/internal/observability/metrics"
	"travel-assistant/internal/repository"
	"travel-assistant/internal/usecase"
)

// App is the fully wired relay shared by the HTTP server and the Lambda
// entry point.
type App struct {
	Handler  *handler.Handler
	Chat     *usecase.ChatService
	Registry *prometheus.Registry
}

var (
	loadAWSConfig = func(ctx context.Context, region string) (aws.Config, error) {
		var opts []func(*awsconfig.LoadOptions) error
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		return awsconfig.LoadDefaultConfig(ctx, opts...)
	}
	newParamGetter = func(cfg aws.Config) (openai.Getter, error) {
		return paramstore.New(awsssm.NewFromConfig(cfg))
	}
	newBedrockClient = func(cfg aws.Config, modelID string, opts ...bedrock.Option) (*bedrock.Client, error) {
		return bedrock.NewClient(bedrockruntime.NewFromConfig(cfg), modelID, opts...)
	}
	newDynamoStore = func(cfg aws.Config, table string) (*repository.DynamoStore, error) {
		return repository.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), table)
	}
)

// New builds every component from cfg. Missing credentials are not fatal:
// they select fallback replies or the no-op store.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		c, err := loadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("app: load aws config: %w", err)
		}
		awsCfg = c
	}

	llm, err := newLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := newTurnWriter(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)

	chat, err := usecase.NewChatService(llm, store,
		usecase.WithLogger(logger),
		usecase.WithMetrics(chatMetrics),
		usecase.WithCompletionTimeout(cfg.CompletionTimeout),
		usecase.WithPersistTimeout(cfg.PersistTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}

	h, err := handler.NewHandler(chat,
		handler.WithLogger(logger),
		handler.WithServiceName(cfg.ServiceName),
		handler.WithIndexFile(cfg.IndexFile),
		handler.WithMetricsHandler(metricsHandler(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}

	logger.Info("chat relay wired",
		"provider", llm.Name(),
		"provider_configured", llm.Configured(),
		"persistence", cfg.PersistenceBackend,
	)
	return &App{Handler: h, Chat: chat, Registry: reg}, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (usecase.LLMClient, error) {
	if cfg.CompletionProvider == config.ProviderBedrock {
		c, err := newBedrockClient(awsCfg, cfg.BedrockModelID,
			bedrock.WithMaxTokens(cfg.CompletionMaxTokens),
			bedrock.WithTemperature(cfg.CompletionTemperature),
		)
		if err != nil {
			return nil, fmt.Errorf("app: create bedrock client: %w", err)
		}
		if !c.Configured() {
			logger.Warn("BEDROCK_MODEL_ID not set, replies will use the fallback responder")
		}
		return c, nil
	}

	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" && cfg.OpenAIAPIKeyParam != "" {
		apiKey = resolveOpenAIKey(ctx, awsCfg, cfg.OpenAIAPIKeyParam, logger)
	}
	if apiKey == "" {
		logger.Warn("OpenAI API key not configured, replies will use the fallback responder")
	}
	return openai.NewClient(apiKey,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithModel(cfg.OpenAIModel),
		openai.WithMaxTokens(cfg.CompletionMaxTokens),
		openai.WithTemperature(cfg.CompletionTemperature),
	), nil
}

// resolveOpenAIKey returns "" when the parameter cannot be read so startup
// continues in fallback mode.
func resolveOpenAIKey(ctx context.Context, awsCfg aws.Config, param string, logger *slog.Logger) string {
	getter, err := newParamGetter(awsCfg)
	if err != nil {
		logger.Error("failed to create parameter store client", "err", err)
		return ""
	}
	key, err := openai.ResolveAPIKey(ctx, getter, param)
	if err != nil {
		logger.Error("failed to resolve OpenAI API key", "param", param, "err", err)
		return ""
	}
	return key
}

func newTurnWriter(cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (usecase.TurnWriter, error) {
	switch cfg.PersistenceBackend {
	case config.BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			logger.Warn("SUPABASE_URL or SUPABASE_KEY not set, conversation turns will not be stored")
			return repository.NewNoopStore(), nil
		}
		s, err := repository.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey,
			repository.WithSupabaseTable(cfg.SupabaseTable),
		)
		if err != nil {
			return nil, fmt.Errorf("app: create supabase store: %w", err)
		}
		return s, nil
	case config.BackendDynamoDB:
		if cfg.DynamoDBTable == "" {
			logger.Warn("DYNAMODB_TABLE not set, conversation turns will not be stored")
			return repository.NewNoopStore(), nil
		}
		s, err := newDynamoStore(awsCfg, cfg.DynamoDBTable)
		if err != nil {
			return nil, fmt.Errorf("app: create dynamodb store: %w", err)
		}
		return s, nil
	default:
		return repository.NewNoopStore(), nil
	}
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
