package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/config"
	"github.com/davitm/cinehub/internal/model"
	"github.com/davitm/cinehub/internal/utils"
)

// emailPattern is the registration-form email check: one @, no spaces,
// a dot in the domain.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 6

// AuthHandler bundles dependencies for the auth endpoints. The Identity
// behind it is mode-specific: the local credential collection or the
// upstream auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Identity catalog.Identity
}

func NewAuthHandler(cfg config.Config, id catalog.Identity) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Identity: id}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   model.User `json:"user"`
	Access tokenPart  `json:"access"`
}

// Register creates an account and returns the user with a fresh access
// token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if !emailPattern.MatchString(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password too short"})
	}

	u, err := h.Identity.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return writeStoreError(c, err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, *u, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusCreated, authResp{
		User:   *u,
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Login verifies credentials and returns the user with an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	u, err := h.Identity.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return writeStoreError(c, err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, *u, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:   *u,
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout clears the session record. The access token itself simply
// expires; there is no revocation list.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Identity.Logout(c.Request().Context()); err != nil {
		return writeStoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity claims of the presented token.
func (h *AuthHandler) Me(c echo.Context) error {
	email, ok := sessionEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"email": email,
		"role":  sessionRole(c),
	})
}
