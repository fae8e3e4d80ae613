package api

import (
	"fmt"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GatewayHandler proxies client requests verbatim to the owning service:
// order routes to the orders service, account routes to payments.
type GatewayHandler struct {
	ordersProxy   *httputil.ReverseProxy
	paymentsProxy *httputil.ReverseProxy
}

// NewGatewayHandler creates a gateway over the two service base URLs
func NewGatewayHandler(ordersURL, paymentsURL string) (*GatewayHandler, error) {
	orders, err := url.Parse(ordersURL)
	if err != nil {
		return nil, fmt.Errorf("invalid orders service URL: %w", err)
	}
	payments, err := url.Parse(paymentsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid payments service URL: %w", err)
	}

	return &GatewayHandler{
		ordersProxy:   httputil.NewSingleHostReverseProxy(orders),
		paymentsProxy: httputil.NewSingleHostReverseProxy(payments),
	}, nil
}

// SetupRoutes sets up the gateway routes
func (h *GatewayHandler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	toOrders := func(c *gin.Context) { h.ordersProxy.ServeHTTP(c.Writer, c.Request) }
	toPayments := func(c *gin.Context) { h.paymentsProxy.ServeHTTP(c.Writer, c.Request) }

	router.Any("/api/orders", toOrders)
	router.Any("/api/orders/*path", toOrders)
	router.Any("/api/accounts", toPayments)
	router.Any("/api/accounts/*path", toPayments)
}
