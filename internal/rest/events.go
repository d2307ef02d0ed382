package rest

import (
	"errors"
	"net/http"

	"adserve/business/serving"
	"adserve/domain"
	"adserve/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
)

type (
	EventHandler struct {
		validate       *validator.Validate
		servingService ServingService
	}

	EventRequest struct {
		CreativeInstanceID string `json:"creative_instance_id" validate:"required"`
		ConfirmationType   string `json:"confirmation_type" validate:"required,oneof=served viewed clicked dismissed landed transferred conversion"`
		AdType             string `json:"ad_type"`

		Context map[string]interface{} `json:"context"`
	}
)

func NewEventHandler(svc ServingService) *EventHandler {
	return &EventHandler{
		validate:       validator.New(),
		servingService: svc,
	}
}

// POST /api/v1/ads/events
func (h *EventHandler) Record(c echo.Context) error {
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid event request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	event := domain.AdEvent{
		CreativeInstanceID: req.CreativeInstanceID,
		ConfirmationType:   req.ConfirmationType,
		AdType:             req.AdType,
		Context:            datatypes.JSONMap(req.Context),
	}

	if err := h.servingService.RecordEvent(c.Request().Context(), event); err != nil {
		if errors.Is(err, serving.ErrUnknownConfirmationType) {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		logger.Error("Failed to record ad event", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("event recorded"))
}
