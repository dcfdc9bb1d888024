package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const graphBaseURL = "https://graph.instagram.com/v22.0"

// GraphAPI is the slice of the Instagram Graph API the automation
// processor uses. An interface so tests can fake it.
type GraphAPI interface {
	BusinessAccountID(ctx context.Context, accessToken string) (string, error)
	SendDM(ctx context.Context, accessToken, businessID, recipientUsername, message string) error
}

// GraphClient is the real Graph API client.
type GraphClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGraphClient() *GraphClient {
	return &GraphClient{
		baseURL:    graphBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// BusinessAccountID resolves the business account the token belongs to.
func (g *GraphClient) BusinessAccountID(ctx context.Context, accessToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/me?fields=id,username&access_token=%s",
		g.baseURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build me request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch business account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("graph /me returned status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode business account: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("graph /me returned no account id")
	}
	return out.ID, nil
}

// SendDM sends a direct message to a commenter by username.
func (g *GraphClient) SendDM(ctx context.Context, accessToken, businessID, recipientUsername, message string) error {
	payload := map[string]interface{}{
		"recipient": map[string]string{"username": recipientUsername},
		"message":   map[string]string{"text": message},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dm: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages?access_token=%s",
		g.baseURL, url.PathEscape(businessID), url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph messages returned status %d", resp.StatusCode)
	}
	return nil
}
