package api

import (
	"context"

	"FinGenius/internal/domain/models"
	xhttp "FinGenius/pkg/http"
	"FinGenius/pkg/http/middleware"
	xlogger "FinGenius/pkg/logger"

	"github.com/labstack/echo/v4"
)

type PipelineRunner interface {
	RunPipeline(ctx context.Context, userID string) (*models.PipelineResult, error)
}

type Approvals interface {
	ApproveAction(ctx context.Context, userID, actionID string) (*models.ApprovalResult, error)
	RejectAction(ctx context.Context, userID, actionID string) (*models.ApprovalResult, error)
	ListActions(ctx context.Context, userID string, status models.ActionStatus) ([]models.ProposedAction, error)
}

// RateLimiter admits or rejects a call for a key.
type RateLimiter interface {
	Allow(key string) bool
}

// AutomationHandler serves pipeline runs and action decisions.
type AutomationHandler struct {
	logger    *xlogger.Logger
	pipeline  PipelineRunner
	approvals Approvals
	limiter   RateLimiter
}

func NewAutomationHandler(logger *xlogger.Logger, pipeline PipelineRunner, approvals Approvals, limiter RateLimiter) *AutomationHandler {
	return &AutomationHandler{logger: logger, pipeline: pipeline, approvals: approvals, limiter: limiter}
}

func (h *AutomationHandler) register(g *echo.Group) {
	g.POST("/automation/run", h.Run)
	g.GET("/automation/actions", h.List)
	g.POST("/automation/actions/:id/approve", h.Approve)
	g.POST("/automation/actions/:id/reject", h.Reject)
}

func (h *AutomationHandler) Run(c echo.Context) error {
	uid := middleware.UserIDFrom(c)
	if h.limiter != nil && !h.limiter.Allow(uid) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("pipeline run limit reached, try again later"))
	}

	res, err := h.pipeline.RunPipeline(c.Request().Context(), uid)
	if err != nil {
		h.logger.Error("pipeline usecase error", xlogger.UserID(uid), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, newPipelineView(res))
}

func (h *AutomationHandler) List(c echo.Context) error {
	req := &models.ListActionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	uid := middleware.UserIDFrom(c)
	actions, err := h.approvals.ListActions(c.Request().Context(), uid, models.ActionStatus(req.Status))
	if err != nil {
		h.logger.Error("list actions error", xlogger.UserID(uid), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, newActionViews(actions), int64(len(actions)))
}

func (h *AutomationHandler) Approve(c echo.Context) error {
	return h.decide(c, h.approvals.ApproveAction)
}

func (h *AutomationHandler) Reject(c echo.Context) error {
	return h.decide(c, h.approvals.RejectAction)
}

func (h *AutomationHandler) decide(c echo.Context, fn func(context.Context, string, string) (*models.ApprovalResult, error)) error {
	req := &models.ActionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	uid := middleware.UserIDFrom(c)
	res, err := fn(c.Request().Context(), uid, req.ID)
	if err != nil {
		h.logger.Warn("action decision failed", xlogger.UserID(uid), xlogger.ActionID(req.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, approvalView{ActionID: res.ActionID, Applied: res.Applied, Status: string(res.Status)})
}
