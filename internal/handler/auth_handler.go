package handler

import (
	"net/http"

	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler sets up the routing dependencies for authentication endpoints
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/request-restore", h.RequestRestore)
		authGroup.POST("/restore-account", h.RestoreAccount)
		authGroup.POST("/request-password-reset", h.RequestPasswordReset)
		authGroup.POST("/reset-password", h.ResetPassword)
	}
}

// Login handles POST /auth/login
// @Summary      Sign in
// @Description  Authenticates by username and password, returning a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	res, err := h.authService.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// RequestRestore handles POST /auth/request-restore
// @Summary      Request account restoration
// @Description  Mails a restore link for a deactivated account. Active accounts answer 404.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RequestRestoreRequest  true  "Account email"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /auth/request-restore [post]
func (h *AuthHandler) RequestRestore(c *gin.Context) {
	var req service.RequestRestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	if err := h.authService.RequestRestore(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Restore email sent"))
}

// RestoreAccount handles POST /auth/restore-account
// @Summary      Restore a deactivated account
// @Description  Consumes a restore token and reactivates the account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RestoreAccountRequest  true  "Restore token"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/restore-account [post]
func (h *AuthHandler) RestoreAccount(c *gin.Context) {
	var req service.RestoreAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	user, err := h.authService.RestoreAccount(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// RequestPasswordReset handles POST /auth/request-password-reset
// @Summary      Request a password reset
// @Description  Mails a reset link for an active account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RequestRestoreRequest  true  "Account email"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /auth/request-password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req service.RequestRestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Password reset email sent"))
}

// ResetPassword handles POST /auth/reset-password
// @Summary      Reset password
// @Description  Consumes a restore token and replaces the account password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ResetPasswordRequest  true  "Token and new password"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Password successfully reset"))
}
