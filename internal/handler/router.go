package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/stridewear/api/internal/middleware"
	"github.com/stridewear/api/internal/service"
)

// NewRouter assembles the echo instance: global middleware, the scrape and
// health endpoints, and every API route. metrics may be nil in tests.
func NewRouter(svc service.OrderService, client *mongo.Client, metrics *middleware.Metrics, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	if metrics != nil {
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
	}

	NewHealthHandler(client).RegisterRoutes(e)
	NewOrderHandler(svc).RegisterRoutes(e)
	NewAdminOrderHandler(svc).RegisterRoutes(e)
	NewPaymentHandler(svc).RegisterRoutes(e)

	return e
}
