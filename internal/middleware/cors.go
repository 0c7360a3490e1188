package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured comma separated origins. "*" allows any origin;
// an empty list denies every cross-origin request.
func CORS(origins string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		switch {
		case o == "*":
			cfg.AllowAllOrigins = true
		case o != "":
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	if cfg.AllowAllOrigins {
		cfg.AllowOrigins = nil
	} else if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AddAllowHeaders("Authorization", RequestIDHeader)
	cfg.AddExposeHeaders(RequestIDHeader, "Content-Disposition")
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
