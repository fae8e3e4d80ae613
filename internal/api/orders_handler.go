package api

import (
	"errors"
	"net/http"

	"github.com/AndreyBry/HSEGozon/internal/service"
	"github.com/AndreyBry/HSEGozon/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// OrdersHandler contains the orders service's HTTP handlers
type OrdersHandler struct {
	orderService *service.OrderService
}

// NewOrdersHandler creates a new orders HTTP handler
func NewOrdersHandler(orderService *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orderService: orderService}
}

// SetupRoutes sets up the orders service routes
func (h *OrdersHandler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", healthCheck)
	router.GET("/ready", readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/orders", h.createOrder)
		api.GET("/orders/:id", h.getOrder)
		api.GET("/orders", h.getOrders)
	}
}

// CreateOrderRequest is the create-order request body
type CreateOrderRequest struct {
	UserID      uuid.UUID       `json:"userId" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description" binding:"required"`
}

func (h *OrdersHandler) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req.UserID, req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) || errors.Is(err, service.ErrMissingDescription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrdersHandler) getOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrdersHandler) getOrders(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing userId"})
		return
	}

	orders, err := h.orderService.GetOrdersForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, orders)
}
