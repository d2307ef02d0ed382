package rest

import (
	"context"
	"errors"
	"net/http"

	"adserve/business/permission"
	"adserve/business/serving"
	"adserve/domain"
	"adserve/pkg/logger"
	"adserve/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	ServeHandler struct {
		validate       *validator.Validate
		servingService ServingService
	}

	ServingService interface {
		ServeAd(ctx context.Context, opp serving.Opportunity) (*domain.CreativeAd, error)
		DebugServe(ctx context.Context, opp serving.Opportunity) ([]domain.AdScoreBreakdown, error)
		RecordEvent(ctx context.Context, event domain.AdEvent) error
	}

	ServeRequest struct {
		AdType        string           `json:"ad_type" validate:"required,oneof=notification inline_content new_tab_page promoted_content search_result"`
		UserModel     domain.UserModel `json:"user_model"`
		UserActive    bool             `json:"user_active"`
		BrowserActive bool             `json:"browser_active"`
	}

	ServeResponse struct {
		Outcome string             `json:"outcome"`
		Reason  string             `json:"reason,omitempty"`
		Ad      *domain.CreativeAd `json:"ad,omitempty"`
	}
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

const (
	OutcomeServed       = "served"
	OutcomeNoEligibleAd = "no_eligible_ad"
	OutcomeDenied       = "denied"
)

func NewServeHandler(svc ServingService) *ServeHandler {
	return &ServeHandler{
		validate:       validator.New(),
		servingService: svc,
	}
}

// POST /api/v1/ads/serve
func (h *ServeHandler) Serve(c echo.Context) error {
	timer := prometheus.NewTimer(metrics.ServeLatency)
	defer timer.ObserveDuration()
	metrics.ServeRequests.Inc()

	var req ServeRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid serve request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	opp := serving.Opportunity{
		AdType:        req.AdType,
		User:          req.UserModel,
		UserActive:    req.UserActive,
		BrowserActive: req.BrowserActive,
	}

	ad, err := h.servingService.ServeAd(c.Request().Context(), opp)
	if err != nil {
		var denied *permission.DeniedError
		switch {
		case errors.As(err, &denied):
			return c.JSON(http.StatusOK, fres.Response.StatusOK(ServeResponse{
				Outcome: OutcomeDenied,
				Reason:  denied.Rule,
			}))
		case errors.Is(err, serving.ErrNoEligibleAds):
			return c.JSON(http.StatusOK, fres.Response.StatusOK(ServeResponse{
				Outcome: OutcomeNoEligibleAd,
			}))
		case errors.Is(err, serving.ErrCatalogUnavailable),
			errors.Is(err, serving.ErrCollaboratorUnavailable):
			return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
		default:
			logger.Error("Serve attempt failed", "error", err)
			return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(ServeResponse{
		Outcome: OutcomeServed,
		Ad:      ad,
	}))
}

// POST /api/v1/ads/serve/debug
// Same pipeline without side effects; returns every eligible candidate's
// score breakdown.
func (h *ServeHandler) DebugServe(c echo.Context) error {
	var req ServeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	opp := serving.Opportunity{
		AdType:        req.AdType,
		User:          req.UserModel,
		UserActive:    req.UserActive,
		BrowserActive: req.BrowserActive,
	}

	breakdowns, err := h.servingService.DebugServe(c.Request().Context(), opp)
	if err != nil {
		if errors.Is(err, serving.ErrCatalogUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
		}
		logger.Error("Debug serve failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(breakdowns))
}
