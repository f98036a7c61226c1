package handler

import (
	"net/http"

	"backend/internal/auth"
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
	tokens         *auth.TokenService
}

// NewCatalogHandler sets up the routing dependencies for product and order endpoints
func NewCatalogHandler(catalogService service.CatalogService, tokens *auth.TokenService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, tokens: tokens}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)

		staff := products.Group("", middleware.RequireAuth(h.tokens), middleware.RequireRole(model.RoleOwner, model.RoleAdmin))
		{
			staff.POST("", h.CreateProduct)
			staff.PATCH("/:id", h.UpdateProduct)
			staff.DELETE("/:id", h.DeleteProduct)
		}
	}

	orders := router.Group("/orders", middleware.RequireAuth(h.tokens))
	{
		orders.POST("", middleware.RequireRole(model.RoleCustomer), h.CreateOrder)
		orders.GET("", middleware.RequireRole(model.RoleOwner, model.RoleAdmin), h.ListOrders)
		orders.GET("/mine", h.ListMyOrders)
		orders.PATCH("/:id/status", middleware.RequireRole(model.RoleOwner, model.RoleAdmin), h.UpdateOrderStatus)
	}
}

// ListProducts handles GET /products
// @Summary      List products
// @Tags         catalog
// @Produce      json
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Items per page"
// @Param        search  query     string  false  "Name filter"
// @Success      200     {object}  response.Response{data=object}
// @Router       /products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	params := pagination.Parse(c)
	products, total, err := h.catalogService.ListProducts(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch products"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"products": products,
		"meta":     params.Meta(total),
	}))
}

// CreateProduct handles POST /products
// @Summary      Create product
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProductRequest  true  "Product Payload"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Router       /products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct handles PATCH /products/:id
// @Summary      Update product
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                           true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      404      {object}  response.Response
// @Router       /products/{id} [patch]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct handles DELETE /products/:id
// @Summary      Delete product
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [delete]
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted"))
}

// CreateOrder handles POST /orders
// @Summary      Place an order
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrderRequest  true  "Order Payload"
// @Success      201      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Router       /orders [post]
func (h *CatalogHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	requesterID, _, ok := middleware.Requester(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Requester identity missing"))
		return
	}

	order, err := h.catalogService.CreateOrder(c.Request.Context(), requesterID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders handles GET /orders
// @Summary      List all orders
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Router       /orders [get]
func (h *CatalogHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)
	orders, total, err := h.catalogService.ListOrders(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch orders"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"meta":   params.Meta(total),
	}))
}

// ListMyOrders handles GET /orders/mine
// @Summary      List own orders
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Router       /orders/mine [get]
func (h *CatalogHandler) ListMyOrders(c *gin.Context) {
	requesterID, _, ok := middleware.Requester(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Requester identity missing"))
		return
	}

	params := pagination.Parse(c)
	orders, total, err := h.catalogService.ListOrdersByClient(c.Request.Context(), requesterID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch orders"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"meta":   params.Meta(total),
	}))
}

// UpdateOrderStatus handles PATCH /orders/:id/status
// @Summary      Update order status
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                               true  "Order ID"
// @Param        payload  body      service.UpdateOrderStatusRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=model.Order}
// @Failure      404      {object}  response.Response
// @Router       /orders/{id}/status [patch]
func (h *CatalogHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.catalogService.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
