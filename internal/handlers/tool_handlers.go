package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/boostlyhq/boostly-golang/internal/ai"
	"github.com/boostlyhq/boostly-golang/internal/metrics"
	"github.com/boostlyhq/boostly-golang/internal/shortlink"
)

//
// --- Mini Tool Handlers ---
//
// The generator tools are public lead magnets on the marketing site, so
// none of them require a session. Every run is logged to
// tool_generations for the usage reports.
//

// logToolGeneration records one tool run. Logging failures are not
// surfaced to the caller.
func (h *Handlers) logToolGeneration(c *gin.Context, tool, prompt, output string) {
	var userID *int64
	if id := c.GetInt64("userID"); id != 0 {
		userID = &id
	}
	if _, err := h.DB.ExecContext(c.Request.Context(),
		`INSERT INTO tool_generations (user_id, tool, prompt, output) VALUES (?, ?, ?, ?)`,
		userID, tool, prompt, output); err != nil {
		h.Log.Error("failed to log tool generation", "tool", tool, "error", err)
	}
}

// runTextTool handles the shared bind/generate/log/respond cycle of the
// text generators.
func (h *Handlers) runTextTool(c *gin.Context, tool, system, user string) {
	if h.AIService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI generation is not configured"})
		return
	}

	output, tokens, err := h.AIService.Generate(c.Request.Context(), system, user)
	if err != nil {
		metrics.ToolGenerations.WithLabelValues(tool, metrics.OutcomeError).Inc()
		h.Log.Error("tool generation failed", "tool", tool, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation failed, please try again"})
		return
	}
	metrics.ToolGenerations.WithLabelValues(tool, metrics.OutcomeOK).Inc()
	h.logToolGeneration(c, tool, user, output)

	c.JSON(http.StatusOK, gin.H{
		"result": output,
		"tokens": tokens,
	})
}

type MetaTagInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// GenerateMetaTags is the handler for POST /api/tools/meta-tag-generator.
func (h *Handlers) GenerateMetaTags(c *gin.Context) {
	var input MetaTagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	system, user := ai.MetaTagPrompt(input.Title, input.Description, input.Keywords)
	h.runTextTool(c, "meta-tag-generator", system, user)
}

type JokeInput struct {
	Topic string `json:"topic" binding:"required"`
	Style string `json:"style"`
}

// GenerateJoke is the handler for POST /api/tools/joke-generator.
func (h *Handlers) GenerateJoke(c *gin.Context) {
	var input JokeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	system, user := ai.JokePrompt(input.Topic, input.Style)
	h.runTextTool(c, "joke-generator", system, user)
}

type PunInput struct {
	Topic string `json:"topic" binding:"required"`
}

// GeneratePun is the handler for POST /api/tools/pun-generator.
func (h *Handlers) GeneratePun(c *gin.Context) {
	var input PunInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	system, user := ai.PunPrompt(input.Topic)
	h.runTextTool(c, "pun-generator", system, user)
}

type InsultInput struct {
	Target string `json:"target" binding:"required"`
}

// GenerateInsult is the handler for POST /api/tools/insult-generator.
func (h *Handlers) GenerateInsult(c *gin.Context) {
	var input InsultInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	system, user := ai.InsultPrompt(input.Target)
	h.runTextTool(c, "insult-generator", system, user)
}

// --- Logo Generator ---

type LogoInput struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GenerateLogo is the handler for POST /api/tools/logo-generator.
// Generates an image and uploads it to S3; the public URL is returned.
func (h *Handlers) GenerateLogo(c *gin.Context) {
	if h.ImageGen == nil || !h.ImageGen.Enabled() || h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Logo generation is not configured"})
		return
	}

	var input LogoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, err := h.ImageGen.Generate(c.Request.Context(), input.Prompt)
	if err != nil {
		metrics.ToolGenerations.WithLabelValues("logo-generator", metrics.OutcomeError).Inc()
		h.Log.Error("logo generation failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation failed, please try again"})
		return
	}

	key := fmt.Sprintf("logos/%s/%s.png", time.Now().UTC().Format("2006/01"), uuid.NewString())
	url, err := h.Uploader.Upload(c.Request.Context(), key, "image/png", image)
	if err != nil {
		metrics.ToolGenerations.WithLabelValues("logo-generator", metrics.OutcomeError).Inc()
		h.Log.Error("logo upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store generated image"})
		return
	}

	metrics.ToolGenerations.WithLabelValues("logo-generator", metrics.OutcomeOK).Inc()
	h.logToolGeneration(c, "logo-generator", input.Prompt, url)

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// --- Link Shortener ---

type ShortenLinkInput struct {
	URL   string `json:"url" binding:"required"`
	Alias string `json:"alias"`
}

// ShortenLink is the handler for POST /api/tools/link-shortener.
func (h *Handlers) ShortenLink(c *gin.Context) {
	var input ShortenLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *int64
	if id := c.GetInt64("userID"); id != 0 {
		userID = &id
	}

	link, err := h.ShortLinks.Create(c.Request.Context(), input.URL, input.Alias, userID)
	if err != nil {
		switch {
		case errors.Is(err, shortlink.ErrInvalidURL), errors.Is(err, shortlink.ErrInvalidAlias):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, shortlink.ErrCodeTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "That alias is already taken"})
		default:
			h.Log.Error("short link create failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short link"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":     link.Code,
		"shortUrl": fmt.Sprintf("%s/s/%s", h.Cfg.BaseURL, link.Code),
		"target":   link.TargetURL,
	})
}

// RedirectShortLink is the handler for GET /s/:code.
func (h *Handlers) RedirectShortLink(c *gin.Context) {
	target, err := h.ShortLinks.Resolve(c.Request.Context(), c.Param("code"))
	if errors.Is(err, shortlink.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Short link not found"})
		return
	}
	if err != nil {
		h.Log.Error("short link resolve failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve short link"})
		return
	}
	c.Redirect(http.StatusFound, target)
}
