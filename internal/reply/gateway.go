// Package reply talks to the automation webhook that turns a user utterance
// into an assistant reply.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"revot.app/chat/core/config"
)

// Gateway sends a single utterance for a session and returns the reply text.
type Gateway interface {
	Send(ctx context.Context, sessionID int64, text string) (string, error)
}

type webhookRequest struct {
	ChatInput string `json:"chatInput"`
	SessionID string `json:"sessionId"`
}

type webhookGateway struct {
	url    string
	client *http.Client
}

// NewWebhookGateway creates a Gateway posting to the configured webhook URL.
func NewWebhookGateway(cfg config.WebhookConfig) Gateway {
	return &webhookGateway{
		url: cfg.URL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (g *webhookGateway) Send(ctx context.Context, sessionID int64, text string) (string, error) {
	body, err := json.Marshal(webhookRequest{
		ChatInput: text,
		SessionID: strconv.FormatInt(sessionID, 10),
	})
	if err != nil {
		return "", fmt.Errorf("encoding webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.WarnContext(ctx, "webhook returned non-success status",
			"status", resp.StatusCode,
			"chat_session_id", sessionID,
		)
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if !json.Valid(raw) {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("undecodable webhook response")}
	}

	return Resolve(raw), nil
}
