package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/logging"
	"travel-assistant/internal/observability/metrics"
)

const (
	defaultCompletionTimeout = 20 * time.Second
	defaultPersistTimeout    = 5 * time.Second

	// ClarifyReply answers requests without a usable message.
	ClarifyReply = "Please provide a message to chat with me!"
	// ApologyReply answers requests that hit an unexpected fault.
	ApologyReply = "I'm having trouble processing your message right now. Please try again in a moment!"
)

// ReplySource records which branch produced a chat reply.
type ReplySource string

const (
	SourceModel    ReplySource = "model"
	SourceFallback ReplySource = "fallback"
	SourceClarify  ReplySource = "clarify"
	SourceApology  ReplySource = "apology"
)

// LLMClient is a single-attempt chat completion provider. Configured reports
// whether the provider has the credentials it needs; when it does not, the
// service never calls Chat.
type LLMClient interface {
	Name() string
	Configured() bool
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// TurnWriter appends a conversation turn to the conversation log.
type TurnWriter interface {
	AppendTurn(ctx context.Context, turn domain.Turn) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type ChatInput struct {
	Message string
	LeadID  string
}

// PersistResult is the outcome of one best-effort turn write.
type PersistResult struct {
	Role domain.TurnRole
	OK   bool
	Err  error
}

type ChatOutput struct {
	Reply     string
	Source    ReplySource
	Persisted []PersistResult
}

// ChatService turns one inbound message into one reply. It holds no
// per-request state and is safe for concurrent use.
type ChatService struct {
	llm               LLMClient
	store             TurnWriter
	logger            *slog.Logger
	metrics           *metrics.ChatMetrics
	systemPrompt      string
	completionTimeout time.Duration
	persistTimeout    time.Duration
}

type Option func(*ChatService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *ChatService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(s *ChatService) {
		s.metrics = m
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(s *ChatService) {
		if strings.TrimSpace(prompt) != "" {
			s.systemPrompt = prompt
		}
	}
}

func WithCompletionTimeout(d time.Duration) Option {
	return func(s *ChatService) {
		if d > 0 {
			s.completionTimeout = d
		}
	}
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *ChatService) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

func NewChatService(llm LLMClient, store TurnWriter, opts ...Option) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: turn writer must not be nil")
	}
	s := &ChatService{
		llm:               llm,
		store:             store,
		logger:            slog.Default(),
		systemPrompt:      SystemPrompt,
		completionTimeout: defaultCompletionTimeout,
		persistTimeout:    defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Reply never fails: validation problems, provider outages and persistence
// errors all resolve to a reply text.
func (s *ChatService) Reply(ctx context.Context, in ChatInput) (out ChatOutput) {
	logger := logging.FromContext(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			err := newError(ErrorInternal, "panic", fmt.Errorf("%v", r))
			logger.Error("chat request failed", "err", err)
			out = ChatOutput{Reply: ApologyReply, Source: SourceApology}
		}
		s.metrics.ObserveReply(string(out.Source))
	}()

	message := strings.TrimSpace(in.Message)
	if message == "" {
		logger.Info("chat request rejected", "err", newError(ErrorInvalidInput, "empty_message", nil))
		return ChatOutput{Reply: ClarifyReply, Source: SourceClarify}
	}

	// Trimming applies to the emptiness check and the completion prompt only.
	reply, source := s.generate(ctx, logger, message)
	out = ChatOutput{
		Reply:     reply,
		Source:    source,
		Persisted: s.persistTurns(ctx, logger, strings.TrimSpace(in.LeadID), in.Message, reply),
	}
	logger.Info("chat reply sent", "source", out.Source, "lead_id", in.LeadID)
	return out
}

func (s *ChatService) generate(ctx context.Context, logger *slog.Logger, message string) (string, ReplySource) {
	if !s.llm.Configured() {
		logger.Debug("completion provider not configured, using fallback", "provider", s.llm.Name())
		return FallbackReply(message), SourceFallback
	}
	reply, err := s.complete(ctx, message)
	if err != nil {
		logger.Warn("completion unavailable, using fallback", "provider", s.llm.Name(), "err", err)
		return FallbackReply(message), SourceFallback
	}
	return reply, SourceModel
}

func (s *ChatService) complete(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.completionTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.llm.Chat(ctx, buildPromptMessages(s.systemPrompt, message))
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("usecase: empty completion")
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveCompletion(s.llm.Name(), status, time.Since(start).Seconds())

	if err != nil {
		if code, ok := upstreamStatusCode(err); ok && code == 429 {
			return "", newError(ErrorCompletionUnavailable, "completion_rate_limited", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", newError(ErrorCompletionUnavailable, "completion_timeout", err)
		}
		return "", newError(ErrorCompletionUnavailable, "completion_failed", err)
	}
	return reply, nil
}

// persistTurns writes the user turn exactly as received and the assistant
// turn concurrently, waiting at most persistTimeout for both. Writes run on a
// context detached from the request so a client disconnect does not abort them.
func (s *ChatService) persistTurns(ctx context.Context, logger *slog.Logger, leadID, message, reply string) []PersistResult {
	turns := []domain.Turn{
		domain.NewTurn(leadID, domain.TurnRoleUser, message),
		domain.NewTurn(leadID, domain.TurnRoleAssistant, reply),
	}

	base := context.WithoutCancel(ctx)
	done := make(chan PersistResult, len(turns))
	for _, turn := range turns {
		go func() {
			done <- s.persistTurn(base, logger, turn)
		}()
	}

	byRole := make(map[domain.TurnRole]PersistResult, len(turns))
	timer := time.NewTimer(s.persistTimeout)
	defer timer.Stop()
collect:
	for len(byRole) < len(turns) {
		select {
		case res := <-done:
			byRole[res.Role] = res
		case <-timer.C:
			break collect
		}
	}

	results := make([]PersistResult, 0, len(turns))
	for _, turn := range turns {
		res, ok := byRole[turn.Role]
		if !ok {
			res = PersistResult{
				Role: turn.Role,
				Err:  newError(ErrorPersistence, "append_turn_timeout", context.DeadlineExceeded),
			}
		}
		results = append(results, res)
	}
	return results
}

func (s *ChatService) persistTurn(ctx context.Context, logger *slog.Logger, turn domain.Turn) (res PersistResult) {
	res.Role = turn.Role
	defer func() {
		if r := recover(); r != nil {
			res = PersistResult{Role: turn.Role, Err: newError(ErrorPersistence, "panic", fmt.Errorf("%v", r))}
		}
		status := "ok"
		if !res.OK {
			status = "error"
			logger.Error("failed to persist conversation turn", "role", turn.Role, "err", res.Err)
		}
		s.metrics.ObservePersist(string(turn.Role), status)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.store.AppendTurn(ctx, turn); err != nil {
		res.Err = newError(ErrorPersistence, "append_turn_failed", err)
		return res
	}
	res.OK = true
	return res
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
