package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity headers set by the API gateway after it has verified the caller's
// token. This service trusts them; authentication itself is not its job.
const (
	UserIDHeader  = "X-User-Id"
	AdminIDHeader = "X-Admin-Id"

	userIDKey  = "actor_user_id"
	adminIDKey = "actor_admin_id"
)

type unauthorizedBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RequireUser rejects requests without a valid X-User-Id header and stores
// the parsed id on the echo context.
func RequireUser() echo.MiddlewareFunc {
	return requireActor(UserIDHeader, userIDKey, "authentication required")
}

// RequireAdmin rejects requests without a valid X-Admin-Id header and stores
// the parsed id on the echo context.
func RequireAdmin() echo.MiddlewareFunc {
	return requireActor(AdminIDHeader, adminIDKey, "admin authentication required")
}

func requireActor(header, key, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := primitive.ObjectIDFromHex(c.Request().Header.Get(header))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, unauthorizedBody{Message: message})
			}
			c.Set(key, id)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id. Only valid behind RequireUser.
func UserID(c echo.Context) primitive.ObjectID {
	id, _ := c.Get(userIDKey).(primitive.ObjectID)
	return id
}

// AdminID returns the authenticated admin's id. Only valid behind RequireAdmin.
func AdminID(c echo.Context) primitive.ObjectID {
	id, _ := c.Get(adminIDKey).(primitive.ObjectID)
	return id
}
