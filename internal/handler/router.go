package handler

import "github.com/gin-gonic/gin"

// Handlers groups every HTTP handler mounted by the API.
type Handlers struct {
	Students *StudentHandler
	Sessions *SessionHandler
	Exports  *ExportHandler
	Events   *EventsHandler
	Metrics  *MetricsHandler
}

// Register mounts ops endpoints on r and the API under prefix.
func (h Handlers) Register(r gin.IRouter, prefix string) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	if h.Metrics != nil {
		api.GET("/metrics/summary", h.Metrics.Snapshot)
	}

	if h.Students != nil {
		students := api.Group("/students")
		students.GET("", h.Students.List)
		students.POST("", h.Students.Create)
		students.GET("/lookup", h.Students.Lookup)
		students.GET("/:id", h.Students.Get)
		students.PUT("/:id", h.Students.Update)
		students.DELETE("/:id", h.Students.Delete)
	}

	if h.Sessions != nil {
		sessions := api.Group("/sessions")
		sessions.GET("", h.Sessions.List)
		sessions.POST("", h.Sessions.Create)
		sessions.POST("/reset-week", h.Sessions.ResetWeek)
		sessions.GET("/calendar.ics", h.Sessions.CalendarAll)
		sessions.GET("/:id", h.Sessions.Get)
		sessions.PUT("/:id", h.Sessions.Update)
		sessions.DELETE("/:id", h.Sessions.Delete)
		sessions.PATCH("/:id/status", h.Sessions.UpdateStatus)
		sessions.GET("/:id/message", h.Sessions.Message)
		sessions.GET("/:id/calendar.ics", h.Sessions.Calendar)
	}

	if h.Exports != nil {
		exports := api.Group("/exports")
		exports.GET("/roster", h.Exports.Roster)
		exports.POST("/share", h.Exports.Share)
		exports.GET("/share/:id", h.Exports.ShareStatus)
		exports.GET("/download", h.Exports.Download)
	}

	if h.Events != nil {
		api.GET("/events", h.Events.Stream)
	}
}
