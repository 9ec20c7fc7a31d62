package api

import (
	"context"
	"errors"

	"FinGenius/internal/domain/models"
	xhttp "FinGenius/pkg/http"
	"FinGenius/pkg/http/middleware"
	xlogger "FinGenius/pkg/logger"

	"github.com/labstack/echo/v4"
)

type Accounts interface {
	LinkAccount(ctx context.Context, userID, publicToken string) ([]models.Account, error)
	SyncUser(ctx context.Context, userID string) (*models.SyncReport, error)
	HandleWebhook(ctx context.Context, wh models.Webhook) (bool, error)
}

type AccountsHandler struct {
	logger   *xlogger.Logger
	accounts Accounts
}

func NewAccountsHandler(logger *xlogger.Logger, accounts Accounts) *AccountsHandler {
	return &AccountsHandler{logger: logger, accounts: accounts}
}

func (h *AccountsHandler) register(g *echo.Group) {
	g.POST("/accounts/link", h.Link)
	g.POST("/accounts/sync", h.Sync)
}

func (h *AccountsHandler) Link(c echo.Context) error {
	req := &models.LinkAccountRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	uid := middleware.UserIDFrom(c)
	accts, err := h.accounts.LinkAccount(c.Request().Context(), uid, req.PublicToken)
	if err != nil {
		h.logger.Error("link account error", xlogger.UserID(uid), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.CreatedResponse(c, newAccountViews(accts))
}

func (h *AccountsHandler) Sync(c echo.Context) error {
	uid := middleware.UserIDFrom(c)
	rep, err := h.accounts.SyncUser(c.Request().Context(), uid)
	if err != nil {
		h.logger.Error("sync accounts error", xlogger.UserID(uid), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, syncView{
		Accounts:   rep.Accounts,
		Added:      rep.Added,
		Failed:     rep.Failed,
		DurationMS: rep.Duration.Milliseconds(),
	})
}

// Webhook receives provider notifications. It is unauthenticated; unknown
// items are acknowledged so the provider stops retrying.
func (h *AccountsHandler) Webhook(c echo.Context) error {
	req := &models.WebhookRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	queued, err := h.accounts.HandleWebhook(c.Request().Context(), models.Webhook{
		WebhookType: req.WebhookType,
		WebhookCode: req.WebhookCode,
		ItemID:      req.ItemID,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.logger.Warn("webhook for unknown item", xlogger.String("item_id", req.ItemID))
			return xhttp.SuccessResponse(c, map[string]bool{"queued": false})
		}
		h.logger.Error("webhook error", xlogger.String("item_id", req.ItemID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, map[string]bool{"queued": queued})
}
