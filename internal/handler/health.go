package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health returns a health-check endpoint for load balancers and
// monitoring. It answers 200 with the name of the service that served it,
// which tells the two binaries apart when they share a proxy.
func Health(service string) echo.HandlerFunc {
    return func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": service})
    }
}
