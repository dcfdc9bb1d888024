package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boostlyhq/boostly-golang/internal/analytics"
)

//
// --- Admin Analytics Handlers ---
//

// parseReportRange reads from/to query params (YYYY-MM-DD, inclusive)
// and falls back to the last 30 days.
func parseReportRange(c *gin.Context) (time.Time, time.Time, error) {
	from, to := analytics.DefaultRange(time.Now())

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'from' date: %q", v)
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'to' date: %q", v)
		}
		to = parsed
	}
	if to.Before(from) {
		return from, to, errors.New("'to' date is before 'from' date")
	}
	return from, to, nil
}

// GetAnalyticsReport is the handler for GET /api/admin/analytics/:type.
func (h *Handlers) GetAnalyticsReport(c *gin.Context) {
	reportType := c.Param("type")

	from, to, err := parseReportRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.Analytics.Report(c.Request.Context(), reportType, from, to)
	if err != nil {
		if errors.Is(err, analytics.ErrUnknownReport) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown report type: %s", reportType)})
			return
		}
		h.Log.Error("analytics report failed", "type", reportType, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type": reportType,
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
		"data": report,
	})
}

// ExportAnalytics is the handler for GET /api/admin/analytics-export.
// Streams the full report set as an XLSX workbook.
func (h *Handlers) ExportAnalytics(c *gin.Context) {
	from, to, err := parseReportRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.Analytics.ExportXLSX(c.Request.Context(), from, to)
	if err != nil {
		h.Log.Error("analytics export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	filename := fmt.Sprintf("boostly-analytics-%s-%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		h.Log.Error("analytics export write failed", "error", err)
	}
}
