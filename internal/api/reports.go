package api

import (
	"fmt"
	"net/http"

	"cafe-pos/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getStatistics(c *gin.Context) {
	stats, err := h.reports.GetStatistics(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) getTopProducts(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	top, err := h.reports.GetTopProducts(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

func (h *Handler) getSalesReport(c *gin.Context) {
	var q service.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}

	report, err := h.reports.GetSalesReport(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// exportReport streams the rendered report as an attachment
func (h *Handler) exportReport(c *gin.Context) {
	var q service.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}

	file, err := h.reports.ExportReport(c.Request.Context(), c.Query("format"), q)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.MimeType, []byte(file.Content))
}
