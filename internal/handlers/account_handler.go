package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/services"
)

type AccountService interface {
	Me(ctx context.Context, accountID uint) (*models.Account, error)
	Profile(ctx context.Context, accountID uint) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID uint, req models.UpdateAccountRequest) (*models.Account, error)
	Stats(ctx context.Context, accountID uint) (*services.AccountStats, error)
}

// PublicProfile is what other members see of an account.
type PublicProfile struct {
	models.AccountCompact
	Bio       string `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountHandler serves the caller's own account and public profiles
type AccountHandler struct {
	accounts AccountService
}

func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) RegisterAccountRoutes(g *echo.Group, a Auth) {
	g.GET("/me", h.GetMe, a.required()...)
	g.PATCH("/me", h.UpdateMe, a.write()...)
	g.GET("/accounts/:userId", h.GetProfile, a.optional()...)
	g.GET("/accounts/:userId/stats", h.GetStats, a.optional()...)
}

func (h *AccountHandler) GetMe(c echo.Context) error {
	account, err := h.accounts.Me(c.Request().Context(), middleware.AccountID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) UpdateMe(c echo.Context) error {
	var req models.UpdateAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	account, err := h.accounts.UpdateProfile(c.Request().Context(), middleware.AccountID(c), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) GetProfile(c echo.Context) error {
	id, err := uintParam(c, "userId")
	if err != nil {
		return err
	}
	account, err := h.accounts.Profile(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, PublicProfile{
		AccountCompact: account.ToCompact(),
		Bio:            account.Bio,
		CreatedAt:      account.CreatedAt,
	})
}

func (h *AccountHandler) GetStats(c echo.Context) error {
	id, err := uintParam(c, "userId")
	if err != nil {
		return err
	}
	stats, err := h.accounts.Stats(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
