package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// HealthHandler reports process liveness and storage reachability.
type HealthHandler struct {
	client *mongo.Client
}

func NewHealthHandler(client *mongo.Client) *HealthHandler {
	return &HealthHandler{client: client}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
}

func (h *HealthHandler) health(c echo.Context) error {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}

	if h.client != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := h.client.Ping(ctx, readpref.Primary()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["mongo"] = "unreachable"
		} else {
			body["mongo"] = "ok"
		}
	}
	return c.JSON(status, body)
}
