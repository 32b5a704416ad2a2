package route

import (
	"flavornet/controller"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Unprotected(router *gin.Engine, h *controller.Controller) {
	router.GET("/", h.Root)
	router.GET("/healthz", h.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/users", h.RegisterUser)
	router.GET("/users", h.ListUsers)
	router.GET("/users/:user_id/prefs", h.GetPrefs)
	router.PUT("/users/:user_id/prefs", h.ReplacePrefs)
	router.PATCH("/users/:user_id/prefs", h.PatchPrefs)
	router.DELETE("/users/:user_id/prefs", h.ClearPrefs)

	router.POST("/auth/login", h.Login)
	router.POST("/auth/logout", h.Logout)

	router.GET("/recipes", h.ListRecipes)
	router.GET("/recipes/recommended", h.Recommended)
	router.GET("/recipes/search", h.SearchRecipes)
	router.GET("/recipes/:slug", h.GetRecipe)
	router.GET("/recipes/:slug/comments", h.ListComments)

	router.GET("/taxonomy", h.GetTaxonomy)
}
