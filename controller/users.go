package controller

import (
	"net/http"

	"flavornet/models"
	"flavornet/utils"

	"github.com/gin-gonic/gin"
)

// prefsResponse is the prefs row shape the SPA reads.
func prefsResponse(userID int64, p *models.Prefs) gin.H {
	return gin.H{
		"user_id":    userID,
		"diet_type":  p.DietType,
		"allergies":  p.Allergies,
		"dislikes":   p.Dislikes,
		"updated_at": p.UpdatedAt,
	}
}

// RegisterUser creates the account and its preferences in one call.
func (h *Controller) RegisterUser(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}

	hash, err := utils.HashPass(req.Password)
	if err != nil {
		fail(c, err, "Error Hashing Password")
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	user := &models.User{Email: req.Email, Password: hash, Role: utils.RoleUser}
	pub := &models.UserPublic{
		Username: req.Username,
		Prefs: models.Prefs{
			DietType:  req.DietType,
			Allergies: req.Allergies,
			Dislikes:  req.Dislikes,
		},
	}
	if err := h.Users.Create(ctx, user, pub); err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusCreated, pub)
}

func (h *Controller) ListUsers(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		fail(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Controller) GetPrefs(c *gin.Context) {
	id, ok := userIDParam(c, c.Param("user_id"))
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	prefs, err := h.Users.GetPrefs(ctx, id)
	if err != nil {
		fail(c, err, "User preferences")
		return
	}
	c.JSON(http.StatusOK, prefsResponse(id, prefs))
}

// ReplacePrefs overwrites all lists; omitted lists are cleared.
func (h *Controller) ReplacePrefs(c *gin.Context) {
	id, ok := userIDParam(c, c.Param("user_id"))
	if !ok {
		return
	}
	var req models.PrefsReplaceRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	prefs, err := h.Users.ReplacePrefs(ctx, id, models.Prefs{
		DietType:  req.DietType,
		Allergies: req.Allergies,
		Dislikes:  req.Dislikes,
	})
	if err != nil {
		fail(c, err, "User preferences")
		return
	}
	c.JSON(http.StatusOK, prefsResponse(id, prefs))
}

func (h *Controller) PatchPrefs(c *gin.Context) {
	id, ok := userIDParam(c, c.Param("user_id"))
	if !ok {
		return
	}
	var req models.PrefsPatchRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	prefs, err := h.Users.PatchPrefs(ctx, id, req.Add, req.Remove)
	if err != nil {
		fail(c, err, "User preferences")
		return
	}
	c.JSON(http.StatusOK, prefsResponse(id, prefs))
}

func (h *Controller) ClearPrefs(c *gin.Context) {
	id, ok := userIDParam(c, c.Param("user_id"))
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	prefs, err := h.Users.ClearPrefs(ctx, id)
	if err != nil {
		fail(c, err, "User preferences")
		return
	}
	c.JSON(http.StatusOK, prefsResponse(id, prefs))
}
