package controller

import (
	"errors"
	"net/http"
	"time"

	"flavornet/logging"
	"flavornet/middlewares"
	"flavornet/models"
	"flavornet/store"
	"flavornet/utils"

	"github.com/gin-gonic/gin"
)

type loginResponse struct {
	Status string              `json:"status"`
	Token  string              `json:"token"`
	User   models.UserResponse `json:"user"`
}

func (h *Controller) setTokenCookie(c *gin.Context, value string, expires time.Time, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.TokenCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   h.SecureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login checks the password and issues a token in the body and a cookie.
func (h *Controller) Login(c *gin.Context) {
	var req models.UserLogin
	if !bind(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		fail(c, err, "Login failed")
		return
	}
	if err := utils.ComparePass(req.Password, user.Password); err != nil {
		lg := logging.FromContext(ctx)
		lg.Info().Int64("user_id", user.UserID).Msg("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	role := user.Role
	if role == "" {
		role = utils.RoleUser
	}
	token, err := h.Tokens.SignedToken(user.UserID, user.Email, role)
	if err != nil {
		fail(c, err, "Login failed")
		return
	}

	ttl := h.Tokens.TTL()
	h.setTokenCookie(c, token, time.Now().Add(ttl), int(ttl.Seconds()))
	c.JSON(http.StatusOK, loginResponse{
		Status: "Login successful",
		Token:  token,
		User:   models.UserResponse{ID: user.UserID, Email: user.Email},
	})
}

func (h *Controller) Logout(c *gin.Context) {
	h.setTokenCookie(c, "", time.Now().Add(-time.Second), -1)
	c.JSON(http.StatusOK, gin.H{"status": "Logout successful"})
}
