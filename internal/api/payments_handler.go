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

// PaymentsHandler contains the payments service's HTTP handlers
type PaymentsHandler struct {
	accountService *service.AccountService
}

// NewPaymentsHandler creates a new payments HTTP handler
func NewPaymentsHandler(accountService *service.AccountService) *PaymentsHandler {
	return &PaymentsHandler{accountService: accountService}
}

// SetupRoutes sets up the payments service routes
func (h *PaymentsHandler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", healthCheck)
	router.GET("/ready", readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/accounts", h.createAccount)
		api.POST("/accounts/:userId/topup", h.topUpAccount)
		api.GET("/accounts/:userId", h.getAccount)
	}
}

// CreateAccountRequest is the create-account request body
type CreateAccountRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
}

// TopUpAccountRequest is the top-up request body
type TopUpAccountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (h *PaymentsHandler) createAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *PaymentsHandler) topUpAccount(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req TopUpAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	account, err := h.accountService.TopUpAccount(c.Request.Context(), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to top up account", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *PaymentsHandler) getAccount(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get account", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, account)
}
