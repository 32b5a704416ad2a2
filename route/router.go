package route

import (
	"strings"
	"time"

	"flavornet/controller"
	mw "flavornet/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	CORSOrigins []string
	// RateLimiter is optional.
	RateLimiter *mw.RateLimiter
}

// New builds the engine with the shared middleware chain and every route.
func New(h *controller.Controller, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), mw.RequestID(), mw.Logger())
	corsConfig := cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Authorization", "Accept", mw.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Authorization", mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return strings.HasPrefix(origin, "http://localhost:") ||
				strings.HasPrefix(origin, "http://127.0.0.1:")
		}
	}
	router.Use(cors.New(corsConfig))
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Middleware())
	}

	Unprotected(router, h)
	Protected(router, h)
	return router
}
