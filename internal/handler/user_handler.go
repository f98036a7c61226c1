package handler

import (
	"net/http"

	"backend/internal/auth"
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	tokens      *auth.TokenService
}

// NewUserHandler sets up the routing dependencies for User endpoints
func NewUserHandler(userService service.UserService, tokens *auth.TokenService) *UserHandler {
	return &UserHandler{userService: userService, tokens: tokens}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		// Public registration
		users.POST("", h.Register)

		authed := users.Group("", middleware.RequireAuth(h.tokens))
		{
			authed.POST("/create-owner", middleware.RequireRole(model.RoleAdmin), h.CreateOwner)
			authed.GET("", middleware.RequireRole(model.RoleOwner, model.RoleAdmin), h.ListUsers)
			authed.GET("/active", middleware.RequireRole(model.RoleOwner, model.RoleAdmin), h.ListActive)
			authed.GET("/inactive", middleware.RequireRole(model.RoleAdmin), h.ListInactive)
			authed.GET("/:id", h.GetUserByID)
			authed.PATCH("/:id", h.UpdateUser)
			authed.DELETE("/me", h.DeactivateSelf)
			authed.DELETE("/:id", middleware.RequireRole(model.RoleOwner, model.RoleAdmin), h.DeactivateUser)
		}
	}
}

// Register handles POST /users
// @Summary      Register a customer account
// @Description  Creates a CUSTOMER account together with its customer profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Router       /users [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// CreateOwner handles POST /users/create-owner
// @Summary      Create an owner account
// @Description  Creates an OWNER account. Admin only.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RegisterRequest  true  "Owner Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /users/create-owner [post]
func (h *UserHandler) CreateOwner(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	_, role, ok := middleware.Requester(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Requester identity missing"))
		return
	}

	user, err := h.userService.CreateOwner(c.Request.Context(), req, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// ListUsers handles GET /users (active accounts)
// @Summary      List users
// @Description  Lists active accounts. Owner and admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.UserResponse}
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch users"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, users))
}

// ListActive handles GET /users/active
// @Summary      List active users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.UserResponse}
// @Router       /users/active [get]
func (h *UserHandler) ListActive(c *gin.Context) {
	users, err := h.userService.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch users"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, users))
}

// ListInactive handles GET /users/inactive
// @Summary      List deactivated users
// @Description  Lists soft-deactivated accounts. Admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.UserResponse}
// @Router       /users/inactive [get]
func (h *UserHandler) ListInactive(c *gin.Context) {
	users, err := h.userService.ListInactive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch users"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, users))
}

// GetUserByID handles GET /users/:id
// @Summary      Get user by ID
// @Description  Customers may only read their own account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	requesterID, role, ok := middleware.Requester(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Requester identity missing"))
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), targetID, service.Requester{ID: requesterID, Role: role})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateUser handles PATCH /users/:id
// @Summary      Update user
// @Description  Customers may only update their own contact fields; owners and admins update any account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                        true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /users/{id} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	requesterID, role, ok := middleware.Requester(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Requester identity missing"))
		return
	}

	user, err := h.userService.Update(c.Request.Context(), targetID, req, service.Requester{ID: requesterID, Role: role})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeactivateSelf handles DELETE /users/me
// @Summary      Deactivate own account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /users/me [delete]
func (h *UserHandler) DeactivateSelf(c *gin.Context) {
	requesterID, role, ok := middleware.Requester(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Requester identity missing"))
		return
	}

	if err := h.userService.Deactivate(c.Request.Context(), requesterID, service.Requester{ID: requesterID, Role: role}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Account deactivated"))
}

// DeactivateUser handles DELETE /users/:id
// @Summary      Deactivate user
// @Description  Soft-deactivates an account. Owner may target customers only; admin anyone but admins.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [delete]
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	requesterID, role, ok := middleware.Requester(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Requester identity missing"))
		return
	}

	if err := h.userService.Deactivate(c.Request.Context(), targetID, service.Requester{ID: requesterID, Role: role}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Account deactivated"))
}
