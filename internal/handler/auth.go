package handler

import (
	"crypto/subtle" // constant-time comparison of the login name
	"net/http"      // HTTP status codes and primitives
	"strings"       // string manipulation utilities
	"time"          // expiry timestamps in responses

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/sirupsen/logrus"  // structured logging

	"github.com/iliyamo/showdesk/internal/config" // auth configuration
	"github.com/iliyamo/showdesk/internal/utils"  // helper functions (hashing, token issuing)
)

// AuthHandler issues operator tokens. It is only routed when auth is
// enabled.
type AuthHandler struct {
	Cfg config.AuthConfig
	Log *logrus.Logger
}

func NewAuthHandler(cfg config.AuthConfig, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   string    `json:"user"`
	Role   string    `json:"role"`
	Access tokenPart `json:"access"`
}

// Login: verify the operator credentials and return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.Cfg.OperatorUser)) == 1
	// always run bcrypt so a wrong user name costs as much as a wrong password
	passOK := utils.VerifyPassword(h.Cfg.OperatorPasswordHash, req.Password)
	if !userOK || !passOK {
		h.Log.WithFields(logrus.Fields{"user": req.Username, "ip": c.RealIP()}).Warn("auth: invalid credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.Username, utils.RoleOperator, h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.WithError(err).Error("auth: issue access token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:   req.Username,
		Role:   utils.RoleOperator,
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me echoes the identity carried by a valid token.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": c.Get("user_id"), "role": c.Get("role")})
}
