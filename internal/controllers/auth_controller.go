package controllers

import (
	"net/http"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/middleware"
	"github.com/counterjob/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// AuthController handles sign-in, sign-out and the profile page.
type AuthController struct {
	users UserAPI
}

func NewAuthController(users UserAPI) *AuthController {
	return &AuthController{users: users}
}

// GoogleLogin handles POST /auth/google
func (ac *AuthController) GoogleLogin(c *gin.Context) {
	var req models.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := ac.users.LoginWithGoogle(c.Request.Context(), req.Credential)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// EmailLogin handles POST /auth/login
func (ac *AuthController) EmailLogin(c *gin.Context) {
	var req models.EmailLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := ac.users.LoginWithEmail(c.Request.Context(), req.Email)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Logout handles POST /auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.users.Logout(c.Request.Context(), middleware.CurrentEmail(c)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetProfile handles GET /profile
func (ac *AuthController) GetProfile(c *gin.Context) {
	profile, err := ac.users.GetProfile(c.Request.Context(), middleware.CurrentEmail(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// UpdateProfile handles PUT /profile
func (ac *AuthController) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := ac.users.UpdateProfile(c.Request.Context(), middleware.CurrentEmail(c), &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}
