package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/julianstephens/tripkit/internal/constants"
)

const maxErrorBody = 512

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: constants.RemoteRequestTimeout}
}

// httpStatusError carries a trimmed response body for RemoteError.Err.
type httpStatusError struct {
	body string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return "unexpected response"
	}
	return e.body
}

// doJSON sends body (when non-nil) as JSON and returns the response status and payload.
// Transport failures come back as errors; status checking is left to the caller.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

func statusErr(payload []byte) error {
	body := strings.TrimSpace(string(payload))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &httpStatusError{body: body}
}

func trimBase(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}
