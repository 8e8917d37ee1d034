package handler

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"travel-assistant/internal/logging"
	"travel-assistant/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 1 << 20
)

//go:embed static/index.html
var fallbackIndex []byte

// ChatReplier produces the reply for one chat message. Implementations must
// not fail; see usecase.ChatService.
type ChatReplier interface {
	Reply(ctx context.Context, in usecase.ChatInput) usecase.ChatOutput
}

type chatRequest struct {
	Message json.RawMessage `json:"message"`
	Context json.RawMessage `json:"context"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Handler is the HTTP surface of the chat relay. It serves both the
// long-running server and, through HandleAPIGateway, the Lambda entry point.
type Handler struct {
	chat        ChatReplier
	logger      *slog.Logger
	serviceName string
	indexFile   string
	metrics     http.Handler
	router      http.Handler
	adapter     *httpadapter.HandlerAdapter
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithServiceName(name string) Option {
	return func(h *Handler) {
		if n := strings.TrimSpace(name); n != "" {
			h.serviceName = n
		}
	}
}

// WithIndexFile sets the landing page served at "/". When the file cannot be
// read the embedded page is served instead.
func WithIndexFile(path string) Option {
	return func(h *Handler) {
		h.indexFile = strings.TrimSpace(path)
	}
}

// WithMetricsHandler exposes the given handler at GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func NewHandler(chat ChatReplier, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat replier must not be nil")
	}
	h := &Handler{
		chat:        chat,
		logger:      slog.Default(),
		serviceName: "Travel Santa Marta AI Assistant",
	}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	h.adapter = httpadapter.New(h.router)
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(h.requestContext)
	r.Use(cors)
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Get("/health", h.health)
	r.Post("/chat", h.chatMessage)
	r.Post("/api/chat", h.chatMessage)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	return r
}

// requestContext assigns the correlation id, attaches a request-scoped logger
// and logs the completed request.
func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = newCorrelationID()
		}
		w.Header().Set(correlationHeader, id)

		logger := h.logger.With("correlation_id", id)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logging.WithContext(r.Context(), logger)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"remote_ip", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// cors applies the public widget policy: any origin, any method, any header.
// Every OPTIONS request is answered here with 200 and an empty body.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			allowHeaders := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers"))
			if allowHeaders == "" {
				allowHeaders = "*"
			}
			w.Header().Set("Access-Control-Allow-Methods", "*")
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	page := fallbackIndex
	if h.indexFile != "" {
		if b, err := os.ReadFile(h.indexFile); err == nil {
			page = b
		} else if !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(r.Context(), h.logger).Warn("failed to read index file", "path", h.indexFile, "err", err)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: h.serviceName})
}

// chatMessage always answers 200 with a reply. Undecodable bodies are treated
// as a missing message.
func (h *Handler) chatMessage(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), h.logger)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("chat handler panic", "panic", fmt.Sprint(rec))
			writeJSON(w, http.StatusOK, chatResponse{Reply: usecase.ApologyReply})
		}
	}()

	var body io.Reader
	if r.Body != nil {
		body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	in, err := decodeChatRequest(body)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		logger.Warn("chat request body too large", "limit_bytes", tooLarge.Limit)
	case err != nil:
		logger.Info("lenient chat request decode", "err", err)
	}
	out := h.chat.Reply(r.Context(), in)
	writeJSON(w, http.StatusOK, chatResponse{Reply: out.Reply})
}

func decodeChatRequest(body io.Reader) (usecase.ChatInput, error) {
	var in usecase.ChatInput
	if body == nil {
		return in, errors.New("handler: empty request body")
	}
	var req chatRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return in, fmt.Errorf("handler: decode chat request: %w", err)
	}
	in.LeadID = leadIDFrom(req.Context)
	if len(req.Message) > 0 && string(req.Message) != "null" {
		if err := json.Unmarshal(req.Message, &in.Message); err != nil {
			return in, fmt.Errorf("handler: message must be a string: %w", err)
		}
	}
	return in, nil
}

// leadIDFrom extracts context.lead_id. Strings are used as-is and numbers are
// kept in their literal form; anything else is ignored.
func leadIDFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return ""
	}
	switch v := fields["lead_id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
