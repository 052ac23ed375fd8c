package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"crm-connect/internal/common/logging"
	"crm-connect/internal/common/ratelimit"
	"crm-connect/internal/handlers"
	"crm-connect/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, authMiddleware func(http.Handler) http.Handler, rateLimiter ratelimit.Limiter, logger logging.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recover(logger))

	// Health check and docs (no auth required)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Provider callbacks and webhooks arrive without a session, so they are
	// limited per client IP instead
	public := router.NewRoute().Subrouter()
	if rateLimiter != nil {
		public.Use(ratelimit.HTTPMiddleware(rateLimiter, ratelimit.IPKey))
	}
	public.HandleFunc("/auth/{provider}/callback", h.Callback).Methods(http.MethodGet)
	public.HandleFunc("/webhooks/ringcentral", h.RingCentralWebhook).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	// Connection lifecycle
	protected.HandleFunc("/auth/{provider}", h.Connect).Methods(http.MethodGet)
	protected.HandleFunc("/auth/{provider}/status", h.Status).Methods(http.MethodGet)
	protected.HandleFunc("/auth/{provider}/disconnect", h.Disconnect).Methods(http.MethodPost, http.MethodDelete)

	// Google
	google := protected.PathPrefix("/api/google").Subrouter()
	google.HandleFunc("/calendar/events", h.CalendarEvents).Methods(http.MethodGet)
	google.HandleFunc("/calendar/events.ics", h.CalendarICS).Methods(http.MethodGet)
	google.HandleFunc("/calendar/events/{id}", h.CalendarEvent).Methods(http.MethodGet)
	google.HandleFunc("/calendar/events/{id}", h.DeleteCalendarEvent).Methods(http.MethodDelete)
	google.HandleFunc("/calendar/meetings", h.CreateCalendarMeeting).Methods(http.MethodPost)
	google.HandleFunc("/gmail/messages", h.GmailMessages).Methods(http.MethodGet)
	google.HandleFunc("/gmail/messages/{id}", h.GmailMessage).Methods(http.MethodGet)
	google.HandleFunc("/gmail/labels", h.GmailLabels).Methods(http.MethodGet)

	// RingCentral
	rc := protected.PathPrefix("/api/ringcentral").Subrouter()
	rc.HandleFunc("/account", h.RingCentralAccount).Methods(http.MethodGet)
	rc.HandleFunc("/call-log", h.CallLog).Methods(http.MethodGet)
	rc.HandleFunc("/sms", h.SendSMS).Methods(http.MethodPost)
	rc.HandleFunc("/contacts.vcf", h.ContactsVCF).Methods(http.MethodGet)
	rc.HandleFunc("/calls", h.MakeCall).Methods(http.MethodPost)
	rc.HandleFunc("/teams", h.Teams).Methods(http.MethodGet)
	rc.HandleFunc("/teams/{teamId}/messages", h.TeamMessages).Methods(http.MethodGet)
	rc.HandleFunc("/teams/{teamId}/messages", h.SendTeamMessage).Methods(http.MethodPost)
	rc.HandleFunc("/meetings", h.Meetings).Methods(http.MethodGet)
	rc.HandleFunc("/meetings", h.CreateMeeting).Methods(http.MethodPost)
	rc.HandleFunc("/meetings/{id}", h.Meeting).Methods(http.MethodGet)
	rc.HandleFunc("/meetings/{id}", h.DeleteMeeting).Methods(http.MethodDelete)
}
