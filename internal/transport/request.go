package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/refdata/pkg/errors"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 2048

// DecodeResponse decodes a JSON response into the target structure and
// closes the body.
func DecodeResponse(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		service := "unknown"
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			service = resp.Request.URL.Host
			endpoint = resp.Request.URL.Path
		}
		return &errors.APIError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   endpoint,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}
