package route

import (
	"flavornet/controller"
	mw "flavornet/middlewares"
	"flavornet/utils"

	"github.com/gin-gonic/gin"
)

// Protected registers the routes that need a login token. Recipe writes
// are limited to admins.
func Protected(router *gin.Engine, h *controller.Controller) {
	protected := router.Group("/")
	protected.Use(mw.JWT(h.Tokens))

	protected.POST("/recipes/:slug/comments", h.CreateComment)

	admin := protected.Group("/")
	admin.Use(mw.RequireRole(utils.RoleAdmin))
	admin.POST("/recipes", h.CreateRecipe)
	admin.POST("/recipes/:slug/images", h.UploadImage)
}
