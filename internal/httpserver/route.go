package httpserver

import (
	"net/http"

	"github.com/dmarquez/online_store/internal/jwtmiddleware"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	OrderHandler   *OrderHTTP
	CartHandler    *CartHTTP
	WebhookHandler *WebhookHTTP
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	// Provider callbacks authenticate via signature, not JWT.
	e.POST("/webhooks/stripe", d.WebhookHandler.HandleStripeWebhook)

	api := e.Group("/api", jwtmiddleware.RequireLogin(d.JWTSecret))
	api.GET("/cart", d.CartHandler.GetCart)
	api.POST("/orders", d.OrderHandler.CreateOrder)
	api.GET("/orders", d.OrderHandler.ListOrders)
	api.GET("/orders/:id", d.OrderHandler.GetOrder)
}
