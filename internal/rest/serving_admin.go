package rest

import (
	"context"
	"net/http"

	"adserve/business/serving"
	"adserve/domain"

	"github.com/labstack/echo/v4"
)

type (
	// CatalogAdmin swaps the active creative catalog.
	CatalogAdmin interface {
		ReplaceCatalog(ctx context.Context, version int, ads []domain.CreativeAd) error
	}

	// ArmLister exposes the stored bandit arms for inspection.
	ArmLister interface {
		ListArms(ctx context.Context) ([]domain.BanditArm, error)
	}

	ServingAdminHandler struct {
		cfgRepo      serving.ConfigRepository
		catalogAdmin CatalogAdmin
		armLister    ArmLister
	}

	replaceCatalogRequest struct {
		Version int                 `json:"version"`
		Ads     []domain.CreativeAd `json:"ads"`
	}
)

func NewServingAdminHandler(
	cfgRepo serving.ConfigRepository,
	catalogAdmin CatalogAdmin,
	armLister ArmLister,
) *ServingAdminHandler {
	return &ServingAdminHandler{
		cfgRepo:      cfgRepo,
		catalogAdmin: catalogAdmin,
		armLister:    armLister,
	}
}

// GET /api/v1/admin/serving/config?ad_type=notification
func (h *ServingAdminHandler) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()
	adType := c.QueryParam("ad_type")

	if adType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "ad_type is required",
		})
	}

	cfg, ok, err := h.cfgRepo.GetConfig(ctx, adType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "config not found",
		})
	}

	return c.JSON(http.StatusOK, cfg)
}

// PUT /api/v1/admin/serving/config
// body: ServingConfig JSON
func (h *ServingAdminHandler) UpsertConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var body domain.ServingConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if body.AdType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "ad_type is required",
		})
	}

	if err := h.cfgRepo.UpsertConfig(ctx, body); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
	})
}

// PUT /api/v1/admin/serving/catalog
// body: { "version": 42, "ads": [...] }
func (h *ServingAdminHandler) ReplaceCatalog(c echo.Context) error {
	ctx := c.Request().Context()

	var body replaceCatalogRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if body.Version <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "version must be positive",
		})
	}

	if err := h.catalogAdmin.ReplaceCatalog(ctx, body.Version, body.Ads); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"version": body.Version,
		"ads":     len(body.Ads),
	})
}

// GET /api/v1/admin/serving/arms
func (h *ServingAdminHandler) ListArms(c echo.Context) error {
	ctx := c.Request().Context()

	arms, err := h.armLister.ListArms(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"arms": arms,
	})
}
