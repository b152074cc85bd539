package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/models"
)

// AuthService signs accounts in and issues tokens.
type AuthService interface {
	Signup(ctx context.Context, req models.SignupRequest) (string, *models.Account, error)
	Signin(ctx context.Context, req models.SigninRequest) (string, error)
	FirebaseLogin(ctx context.Context, idToken string) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, a Auth) {
	g.POST("/auth/signup", h.Signup, compact(a.Limit)...)
	g.POST("/auth/signin", h.SignIn, compact(a.Limit)...)
	g.POST("/auth/firebase-login", h.FirebaseLogin, compact(a.Limit)...)
}

// Signup handles local account registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	token, _, err := h.auth.Signup(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token})
}

// SignIn handles local authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SigninRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	token, err := h.auth.Signin(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// FirebaseLogin exchanges a Firebase ID token for a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req models.FirebaseLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	token, err := h.auth.FirebaseLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}
