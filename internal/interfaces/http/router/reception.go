package router

import (
	"github.com/erp/reception/internal/interfaces/http/handler"
)

// ReceptionRoutes builds the /receptions group
func ReceptionRoutes(h *handler.ReceptionHandler) *DomainGroup {
	g := NewDomainGroup("receptions", "/receptions")

	g.POST("", h.Create)
	g.GET("", h.Search)
	g.GET("/by-number/:number", h.GetByNumber)
	g.GET("/state/:state", h.ListByState)
	g.GET("/:id", h.GetByID)
	g.DELETE("/:id", h.Delete)

	g.POST("/:id/duplicate", h.Duplicate)
	g.POST("/:id/copy-to/:target_id", h.CopyPendingLines)

	g.POST("/:id/verify", h.Verify)
	g.POST("/:id/accept", h.Accept)
	g.POST("/:id/reject", h.Reject)
	g.POST("/:id/annul", h.Annul)

	g.GET("/:id/history", h.History)
	g.GET("/:id/totals", h.Totals)
	g.GET("/:id/discrepancies", h.Discrepancies)

	details := g.Group("details", "/:id/details")
	details.POST("", h.AttachDetail)
	details.DELETE("/:detail_id", h.RemoveLine)
	details.PUT("/:detail_id/received", h.RecordReceived)
	details.PUT("/:detail_id/correction", h.CorrectReceived)

	return g
}

// StatisticsRoutes builds the /reception-statistics group
func StatisticsRoutes(h *handler.StatisticsHandler) *DomainGroup {
	return NewDomainGroup("statistics", "/reception-statistics").
		GET("", h.Report)
}

// SystemRoutes builds the /system group
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}
