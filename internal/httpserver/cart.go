package httpserver

import (
	"errors"
	"net/http"

	"github.com/dmarquez/online_store/internal/logging"
	"github.com/dmarquez/online_store/internal/service"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc *service.OrderService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := getUserID(c)
	if err != nil {
		l.Warn("get_cart_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_cart_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "cart not found")
		}
		l.Error("get_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("get_cart_success", "items", len(cart.Items))
	return c.JSON(http.StatusOK, cart)
}
