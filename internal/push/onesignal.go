package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultOneSignalURL is the OneSignal REST API root
const DefaultOneSignalURL = "https://api.onesignal.com"

// OneSignal binds external ids through the OneSignal users API.
type OneSignal struct {
	BaseURL    string
	AppID      string
	APIKey     string
	HTTPClient *http.Client
}

// NewOneSignal creates a notifier for one OneSignal app.
func NewOneSignal(appID, apiKey string) *OneSignal {
	return &OneSignal{
		BaseURL: DefaultOneSignalURL,
		AppID:   appID,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type userRequest struct {
	Identity map[string]string `json:"identity"`
}

// Login creates (or finds) the OneSignal user carrying externalID.
func (o *OneSignal) Login(ctx context.Context, externalID string) error {
	if externalID == "" {
		return fmt.Errorf("onesignal: external id is required")
	}

	body, err := json.Marshal(userRequest{Identity: map[string]string{"external_id": externalID}})
	if err != nil {
		return fmt.Errorf("onesignal: failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/apps/%s/users", o.BaseURL, url.PathEscape(o.AppID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("onesignal: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Key "+o.APIKey)
	}

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("onesignal: request failed: %w", err)
	}
	defer resp.Body.Close()

	// 200: user exists, 201: created, 202: accepted for processing
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("onesignal: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
