package api

import (
	"net/http"

	"cafe-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// createSale registers a sale. A replayed idempotency key answers 200 with
// the original sale instead of 201.
func (h *Handler) createSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	sale, replayed, err := h.sales.CreateSale(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, sale)
}

func (h *Handler) getSale(c *gin.Context) {
	sale, err := h.sales.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// listSales lists every sale, or the sales of a period when startDate,
// endDate or period is given.
func (h *Handler) listSales(c *gin.Context) {
	var q service.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}

	sales, _, err := h.sales.ListSalesByPeriod(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *Handler) listSalesByPeriod(c *gin.Context) {
	sales, _, err := h.sales.ListSalesByPeriod(c.Request.Context(), service.PeriodQuery{Period: c.Param("period")})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}
