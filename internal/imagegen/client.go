package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the external image generation API used by the logo
// tool. The API takes a prompt and returns a URL to the rendered image.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		// Image rendering is slow; this timeout covers the synchronous API.
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Enabled reports whether the client is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ImageURL string `json:"image_url"`
	} `json:"data"`
}

// Generate renders one image and downloads its bytes.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("image generation is not configured")
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt, Size: "1024x1024"})
	if err != nil {
		return nil, fmt.Errorf("encode image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call image api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image api returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if out.Code != 200 || out.Data.ImageURL == "" {
		return nil, fmt.Errorf("image api error: %s", out.Msg)
	}

	return c.download(ctx, out.Data.ImageURL)
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	// 10 MB cap; generated logos are far smaller.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
