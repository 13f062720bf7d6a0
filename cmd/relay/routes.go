package main

import (
	"github.com/gin-gonic/gin"

	"tiledesk-relay/internal/handlers"
	"tiledesk-relay/internal/metrics"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, relay *handlers.Relay, m *metrics.Metrics) {
	r.GET("/", relay.HandleRoot)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Chatbot webhooks: acknowledged synchronously, replied to out-of-band.
	r.POST("/bot/:botid", relay.HandleBot)
	r.POST("/microlang-bot/:botid", relay.HandleMicrolangBot)
	r.POST("/bot-fallback-handoff/:botid", relay.HandleFallbackHandoff)

	// Fulfillment webhook: the NLU service reads the override from this
	// response body, so it must complete synchronously.
	r.POST("/dfwebhook/:projectid", relay.HandleFulfillmentWebhook)
}
