package controller

import (
	"net/http"
	"strings"

	"flavornet/middlewares"
	"flavornet/models"

	"github.com/gin-gonic/gin"
)

func (h *Controller) ListComments(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	recipe, err := h.Recipes.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		fail(c, err, "Recipe")
		return
	}
	result, err := h.Comments.ListByRecipe(ctx, recipe.ID, pageQuery(c))
	if err != nil {
		fail(c, err, "Failed to fetch comments")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateComment takes the author from the token.
func (h *Controller) CreateComment(c *gin.Context) {
	var req models.CommentRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	recipe, err := h.Recipes.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		fail(c, err, "Recipe")
		return
	}
	comment := &models.Comment{
		RecipeID: recipe.ID,
		Author:   c.GetString(middlewares.EmailKey),
		Text:     strings.TrimSpace(req.Text),
	}
	if comment.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		fail(c, err, "Failed to save comment")
		return
	}
	c.JSON(http.StatusCreated, comment)
}
