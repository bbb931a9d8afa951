package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS creates a CORS middleware allowing the given browser origins to
// reach the control API.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
