package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConnectionResult reports whether the provider is reachable with the configured key.
type ConnectionResult struct {
	OK      bool
	Message string
	Models  []string
}

// TestConnection lists models with GET /models. Providers that do not support
// that endpoint are probed with a one-token chat request instead.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	if !c.HasKey() {
		return ConnectionResult{Message: "no API key configured"}
	}

	payload, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err == nil {
		var list struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		_ = json.Unmarshal(payload, &list)
		models := make([]string, 0, len(list.Data))
		for _, m := range list.Data {
			if m.ID != "" {
				models = append(models, m.ID)
			}
		}
		msg := "connected"
		if len(models) > 0 {
			msg = fmt.Sprintf("connected, %d models available", len(models))
		}
		return ConnectionResult{OK: true, Message: msg, Models: models}
	}

	if !methodNotSupported(err) {
		return ConnectionResult{Message: err.Error()}
	}

	if _, err := c.chat(ctx, []Message{{Role: "user", Content: "ping"}}, chatOptions{maxTokens: 1}); err != nil {
		return ConnectionResult{Message: fmt.Sprintf("chat probe failed: %v", err)}
	}
	return ConnectionResult{OK: true, Message: "connected (chat probe)"}
}

func methodNotSupported(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusMethodNotAllowed {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	for _, hint := range []string{"not supported", "invalidparameter", "request method", "method"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
