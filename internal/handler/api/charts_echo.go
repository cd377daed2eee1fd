package api

import (
	"errors"
	"time"

	models "ChartFeed/internal/domain/models"
	domrepo "ChartFeed/internal/domain/repository"
	"ChartFeed/internal/services/chart"
	"ChartFeed/internal/usecase"
	xhttp "ChartFeed/pkg/http"
	xlogger "ChartFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ChartsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ChartsEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.ChartUseCase
	candles *usecase.CandlesUseCase
}

func NewChartsEchoHandler(logger *xlogger.Logger, uc *usecase.ChartUseCase) *ChartsEchoHandler {
	return &ChartsEchoHandler{logger: logger, uc: uc}
}

// SetCandlesUseCase enables the raw candles endpoint.
func (h *ChartsEchoHandler) SetCandlesUseCase(uc *usecase.CandlesUseCase) { h.candles = uc }

func (h *ChartsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/charts")
	g.GET("/renko", h.Renko)
	g.GET("/pnf", h.PointFigure)
	if h.candles != nil {
		e.GET("/api/candles", h.Candles)
	}
}

func (h *ChartsEchoHandler) Renko(c echo.Context) error {
	req := &models.RenkoRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetRenko(c.Request().Context(), req)
	if err != nil {
		if isChartRequestError(err) {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("renko usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartsEchoHandler) PointFigure(c echo.Context) error {
	req := &models.PointFigureRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetPointFigure(c.Request().Context(), req)
	if err != nil {
		if isChartRequestError(err) {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("pnf usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

// Candles serves the raw stored candles backing the chart endpoints.
func (h *ChartsEchoHandler) Candles(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}
	tf := c.QueryParam("tf")
	if tf == "" {
		tf = "1m"
	}
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), time.Now().UTC())
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), to.Add(-24*time.Hour))
	if from.After(to) {
		return xhttp.BadRequestResponse(c, "from must not be after to")
	}

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    symbol,
		From:      from,
		To:        to,
		Timeframe: domrepo.Timeframe(tf),
		Limit:     xhttp.ParseIntDefault(c.QueryParam("limit"), 0),
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func isChartRequestError(err error) bool {
	var cfgErr *chart.ConfigError
	var inErr *chart.InputError
	return errors.As(err, &cfgErr) || errors.As(err, &inErr)
}
