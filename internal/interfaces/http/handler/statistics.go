package handler

import (
	appreception "github.com/erp/reception/internal/application/reception"
	"github.com/gin-gonic/gin"
)

// StatisticsHandler serves the reception statistics report
type StatisticsHandler struct {
	BaseHandler
	statistics *appreception.StatisticsService
}

// NewStatisticsHandler creates a new StatisticsHandler
func NewStatisticsHandler(statistics *appreception.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statistics: statistics}
}

// StatisticsQuery is the query string of GET /reception-statistics
type StatisticsQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
	Top  int    `form:"top" binding:"omitempty,min=1,max=100"`
}

// Report handles GET /reception-statistics?from=2026-01-01&to=2026-01-31.
// A date-only "to" includes that whole day.
func (h *StatisticsHandler) Report(c *gin.Context) {
	var q StatisticsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	from, err := parseDateParam(q.From, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	to, err := parseDateParam(q.To, true)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.statistics.Report(c.Request.Context(), appreception.StatisticsRequest{
		From: from,
		To:   to,
		Top:  q.Top,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
