package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"travel-assistant/internal/config"
	"travel-assistant/internal/integrations/bedrock"
	"travel-assistant/internal/integrations/openai"
	"travel-assistant/internal/repository"
)

type fakeGetter struct {
	value string
	err   error
	name  string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.name = name
	return f.value, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() *config.Config {
	return &config.Config{
		ServiceName:           "Travel Santa Marta AI Assistant",
		CompletionProvider:    config.ProviderOpenAI,
		OpenAIModel:           "gpt-4",
		CompletionMaxTokens:   500,
		CompletionTemperature: 0.7,
		CompletionTimeout:     time.Second,
		PersistenceBackend:    config.BackendNone,
		SupabaseTable:         "conversations",
		PersistTimeout:        time.Second,
	}
}

// stubAWS replaces the AWS config loader and fails the test if it is called
// when allowed is false.
func stubAWS(t *testing.T, allowed bool) *int {
	t.Helper()
	calls := 0
	orig := loadAWSConfig
	t.Cleanup(func() { loadAWSConfig = orig })
	loadAWSConfig = func(_ context.Context, region string) (aws.Config, error) {
		calls++
		if !allowed {
			t.Fatalf("unexpected aws config load")
		}
		if region == "" {
			region = "us-east-1"
		}
		return aws.Config{Region: region}, nil
	}
	return &calls
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), nil, discardLogger())
	require.Error(t, err)

	cfg := baseConfig()
	cfg.CompletionProvider = "cohere"
	_, err = New(context.Background(), cfg, discardLogger())
	require.Error(t, err)
}

func TestNew_FallbackModeWithoutCredentials(t *testing.T) {
	stubAWS(t, false)

	a, err := New(context.Background(), baseConfig(), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, a.Handler)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Santa Marta travel assistant")
}

func TestNew_ExposesMetrics(t *testing.T) {
	stubAWS(t, false)

	a, err := New(context.Background(), baseConfig(), discardLogger())
	require.NoError(t, err)

	a.Handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"beach"}`)))

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `travel_assistant_chat_replies_total{source="fallback"} 1`)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewLLMClient_OpenAIKeyFromParameterStore(t *testing.T) {
	calls := stubAWS(t, true)
	getter := &fakeGetter{value: `{"token":"sk-from-ssm"}`}
	orig := newParamGetter
	t.Cleanup(func() { newParamGetter = orig })
	newParamGetter = func(aws.Config) (openai.Getter, error) { return getter, nil }

	cfg := baseConfig()
	cfg.OpenAIAPIKeyParam = "/travel/openai"
	require.True(t, cfg.NeedsAWS())

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, 1, *calls)
	require.Equal(t, "/travel/openai", getter.name)

	llm, err := newLLMClient(context.Background(), cfg, aws.Config{}, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "openai", llm.Name())
	require.True(t, llm.Configured())
}

func TestNewLLMClient_ParameterStoreFailureFallsBack(t *testing.T) {
	orig := newParamGetter
	t.Cleanup(func() { newParamGetter = orig })
	newParamGetter = func(aws.Config) (openai.Getter, error) {
		return &fakeGetter{err: errors.New("access denied")}, nil
	}

	cfg := baseConfig()
	cfg.OpenAIAPIKeyParam = "/travel/openai"
	llm, err := newLLMClient(context.Background(), cfg, aws.Config{}, discardLogger())
	require.NoError(t, err)
	require.False(t, llm.Configured())
}

func TestNewLLMClient_DirectKeySkipsParameterStore(t *testing.T) {
	orig := newParamGetter
	t.Cleanup(func() { newParamGetter = orig })
	newParamGetter = func(aws.Config) (openai.Getter, error) {
		t.Fatalf("parameter store must not be used when a key is set")
		return nil, nil
	}

	cfg := baseConfig()
	cfg.OpenAIAPIKey = "sk-direct"
	cfg.OpenAIAPIKeyParam = "/travel/openai"
	require.False(t, cfg.NeedsAWS())

	llm, err := newLLMClient(context.Background(), cfg, aws.Config{}, discardLogger())
	require.NoError(t, err)
	require.True(t, llm.Configured())
}

func TestNewLLMClient_Bedrock(t *testing.T) {
	stubAWS(t, true)
	var gotModel string
	orig := newBedrockClient
	t.Cleanup(func() { newBedrockClient = orig })
	newBedrockClient = func(cfg aws.Config, modelID string, opts ...bedrock.Option) (*bedrock.Client, error) {
		gotModel = modelID
		return orig(cfg, modelID, opts...)
	}

	cfg := baseConfig()
	cfg.CompletionProvider = config.ProviderBedrock
	cfg.BedrockModelID = "anthropic.claude-3-haiku-20240307-v1:0"

	_, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.Equal(t, cfg.BedrockModelID, gotModel)

	llm, err := newLLMClient(context.Background(), cfg, aws.Config{Region: "us-east-1"}, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "bedrock", llm.Name())
	require.True(t, llm.Configured())

	cfg.BedrockModelID = ""
	llm, err = newLLMClient(context.Background(), cfg, aws.Config{Region: "us-east-1"}, discardLogger())
	require.NoError(t, err)
	require.False(t, llm.Configured())
}

func TestNewTurnWriter(t *testing.T) {
	awsCfg := aws.Config{Region: "us-east-1"}

	t.Run("none", func(t *testing.T) {
		w, err := newTurnWriter(baseConfig(), awsCfg, discardLogger())
		require.NoError(t, err)
		require.IsType(t, &repository.NoopStore{}, w)
	})

	t.Run("supabase", func(t *testing.T) {
		cfg := baseConfig()
		cfg.PersistenceBackend = config.BackendSupabase
		cfg.SupabaseURL = "https://example.supabase.co"
		cfg.SupabaseKey = "anon-key"
		w, err := newTurnWriter(cfg, awsCfg, discardLogger())
		require.NoError(t, err)
		require.IsType(t, &repository.SupabaseStore{}, w)
	})

	t.Run("supabase without credentials", func(t *testing.T) {
		cfg := baseConfig()
		cfg.PersistenceBackend = config.BackendSupabase
		w, err := newTurnWriter(cfg, awsCfg, discardLogger())
		require.NoError(t, err)
		require.IsType(t, &repository.NoopStore{}, w)
	})

	t.Run("dynamodb", func(t *testing.T) {
		cfg := baseConfig()
		cfg.PersistenceBackend = config.BackendDynamoDB
		cfg.DynamoDBTable = "travel-conversations"
		w, err := newTurnWriter(cfg, awsCfg, discardLogger())
		require.NoError(t, err)
		require.IsType(t, &repository.DynamoStore{}, w)
	})

	t.Run("dynamodb without table", func(t *testing.T) {
		cfg := baseConfig()
		cfg.PersistenceBackend = config.BackendDynamoDB
		w, err := newTurnWriter(cfg, awsCfg, discardLogger())
		require.NoError(t, err)
		require.IsType(t, &repository.NoopStore{}, w)
	})
}
