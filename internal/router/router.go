package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayung21/billing-ps-api-sub000/internal/handler"
	"github.com/ayung21/billing-ps-api-sub000/pkg/constants"
)

// New builds the HTTP router.
func New(
	rentalHandler *handler.RentalHandler,
	tvWS *handler.TVSocketHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	// REST API: identity is attached upstream (JWT gateway) and required here.
	api := r.Group("/api", handler.RequireIdentity())
	{
		api.POST("/rentals", rentalHandler.StartRental)
	}

	// TV agent channel: /ws/tv?tv_id=...
	r.GET(constants.PathTVSocket, tvWS.ServeWS)

	return r
}
