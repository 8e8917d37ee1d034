package handler

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"travel-assistant/internal/logging"
)

// HandleAPIGateway replays an API Gateway proxy event through the same router
// the HTTP server uses, so both entry points share routes and middleware.
func (h *Handler) HandleAPIGateway(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := logging.FromContext(ctx, h.logger)

	// An undecodable body is handled like an empty one so chat stays lenient.
	if event.IsBase64Encoded {
		if _, err := base64.StdEncoding.DecodeString(event.Body); err != nil {
			logger.Warn("failed to decode base64 body", "err", err)
			event.Body = ""
			event.IsBase64Encoded = false
		}
	}

	resp, err := h.adapter.ProxyWithContext(ctx, event)
	if err != nil {
		logger.Error("api gateway proxy failed", "path", event.Path, "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusInternalServerError,
			MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
			Body:              `{"error":"INTERNAL_ERROR"}`,
		}, nil
	}
	return resp, nil
}
