package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordClient posts messages to Discord webhook URLs. An empty URL
// disables the client, which is how local development runs.
type DiscordClient struct {
	webhookURL string
	httpClient *http.Client
}

func NewDiscordClient(webhookURL string) *DiscordClient {
	return &DiscordClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one message. Returns nil without sending when disabled.
func (d *DiscordClient) Send(ctx context.Context, message string) error {
	if d.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("encode discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
