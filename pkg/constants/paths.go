package constants

// Route paths shared between router and tests.
const (
	PathHealth   = "/health"
	PathReady    = "/ready"
	PathTVSocket = "/ws/tv"
	PathRentals  = "/api/rentals"
)
