package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // header parsing

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// bearerToken extracts the token from an "Authorization: Bearer <t>" header.
func bearerToken(c echo.Context) (string, bool) {
    scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
    if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
        return "", false
    }
    return strings.TrimSpace(token), true
}

// JWTAuth validates an HS256 operator token signed with secret and stores
// its sub and role claims as "user_id" and "role" on the context. Tokens
// without an exp claim are refused.
func JWTAuth(secret string) echo.MiddlewareFunc {
    parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    key := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearerToken(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims := jwt.MapClaims{}
            if _, err := parser.ParseWithClaims(raw, claims, key); err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set("user_id", claims["sub"])
            c.Set("role", claims["role"])
            return next(c)
        }
    }
}

// Optional applies mw only when enabled is true. It lets the router keep
// one route table whether or not auth is switched on.
func Optional(enabled bool, mw echo.MiddlewareFunc) echo.MiddlewareFunc {
    if !enabled {
        return passThrough
    }
    return mw
}
