package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Response is a successful backend reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// JSON is true when the content type announced application/json
	JSON bool
}

func newResponse(resp *http.Response, body []byte) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		JSON:       isJSON(resp.Header.Get("Content-Type")),
	}
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// Text returns the raw body as a string
func (r *Response) Text() string {
	return string(r.Body)
}

// Data returns the JSON payload, unwrapping a {"data": ...} envelope.
func (r *Response) Data() json.RawMessage {
	return unwrapData(r.Body)
}

// Decode unmarshals the (unwrapped) payload into v.
func (r *Response) Decode(v any) error {
	if !r.JSON {
		return fmt.Errorf("response is not JSON (status %d)", r.StatusCode)
	}
	if err := json.Unmarshal(r.Data(), v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Value decodes the payload into a generic value: maps, slices, strings and
// numbers for JSON responses, the body text otherwise.
func (r *Response) Value() (any, error) {
	if !r.JSON {
		return r.Text(), nil
	}
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(r.Data(), &v); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return v, nil
}

// unwrapData returns raw["data"] when raw is an object carrying a non-null
// data member, raw itself otherwise.
func unwrapData(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return trimmed
	}
	return envelope.Data
}

// errorMessage extracts the backend's error message: the JSON "message"
// field, else the raw body, else fallback.
func errorMessage(body []byte, fallback string) string {
	var errResp struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch m := errResp.Message.(type) {
		case string:
			if m != "" {
				return m
			}
		case []any:
			// validation pipes report one message per field
			parts := make([]string, 0, len(m))
			for _, p := range m {
				parts = append(parts, fmt.Sprint(p))
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
		return fallback
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}
