package api

import (
	"context"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/usecase"
	xhttp "FinGenius/pkg/http"
	"FinGenius/pkg/http/middleware"
	xlogger "FinGenius/pkg/logger"

	"github.com/labstack/echo/v4"
)

type Insights interface {
	Categorize(ctx context.Context, description string) (string, error)
	TrainCategorizer(ctx context.Context) (int64, error)
	CashFlowForecast(ctx context.Context, userID string, steps int) ([]models.ForecastPoint, error)
	Segment(ctx context.Context, userID string) (*usecase.SegmentInsight, error)
}

// InsightsHandler exposes the categorizer, the forecaster and segments.
type InsightsHandler struct {
	logger   *xlogger.Logger
	insights Insights
}

func NewInsightsHandler(logger *xlogger.Logger, insights Insights) *InsightsHandler {
	return &InsightsHandler{logger: logger, insights: insights}
}

func (h *InsightsHandler) register(g *echo.Group) {
	g.POST("/categorizer/predict", h.Predict)
	g.POST("/categorizer/train", h.Train)
	g.GET("/forecast/cash-flow", h.Forecast)
	g.GET("/insights/segment", h.Segment)
}

func (h *InsightsHandler) Predict(c echo.Context) error {
	req := &models.PredictCategoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cat, err := h.insights.Categorize(c.Request().Context(), req.Description)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"category": cat})
}

func (h *InsightsHandler) Train(c echo.Context) error {
	v, err := h.insights.TrainCategorizer(c.Request().Context())
	if err != nil {
		h.logger.Error("categorizer training error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"trained": v > 0, "version": v})
}

func (h *InsightsHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	uid := middleware.UserIDFrom(c)
	pts, err := h.insights.CashFlowForecast(c.Request().Context(), uid, req.Steps)
	if err != nil {
		h.logger.Error("forecast error", xlogger.UserID(uid), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *InsightsHandler) Segment(c echo.Context) error {
	uid := middleware.UserIDFrom(c)
	ins, err := h.insights.Segment(c.Request().Context(), uid)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, ins)
}
