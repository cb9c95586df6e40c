package handlers

import (
	"net/http"

	"aquarium_dashboard/internal/models"

	"github.com/gin-gonic/gin"
)

type timelineRequest struct {
	Timeline string `json:"timeline" binding:"required"` // day | week | month (or 1d | 1w | 1m)
}

type viewRequest struct {
	View string `json:"view" binding:"required"` // monitoring | feeding
}

type predictionRequest struct {
	QuantityG float64 `json:"quantity_g" binding:"required"`
}

// TankProfileRequest is the settings form payload.
type TankProfileRequest struct {
	VolumeLiters          *float64 `json:"volume_liters" example:"120"`
	AppropriateWaterLevel *float64 `json:"appropriate_water_level" example:"85"`
	FishSmall             int      `json:"fish_small" example:"4"`
	FishMedium            int      `json:"fish_medium" example:"2"`
	FishLarge             int      `json:"fish_large" example:"0"`
	FishXLarge            int      `json:"fish_xlarge" example:"0"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Dashboard snapshot
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dashboard.Snapshot
// @Router       /api/v1/dashboard [get]
func (h *Handler) getDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshot())
}

// @Summary      Run one refresh cycle now
// @Description  Failed resources are reported in "errors"; their retry is already scheduled.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/refresh [post]
func (h *Handler) refresh(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if err := h.services.RefreshCycle(c.Request.Context()); err != nil {
		h.log.Infow("refresh_degraded", "err", err)
		resp["status"] = "degraded"
		resp["errors"] = err.Error()
	}
	resp["dashboard"] = h.services.Snapshot()
	c.JSON(http.StatusOK, resp)
}

// @Summary      Select timeline
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        body  body  timelineRequest  true  "timeline"
// @Success      200  {object}  dashboard.Snapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/timeline [put]
func (h *Handler) setTimeline(c *gin.Context) {
	var req timelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "timeline_bind_failed", err)
		return
	}
	tl, err := models.ParseTimeline(req.Timeline)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), "timeline_invalid", err)
		return
	}
	if err := h.services.SetTimeline(c.Request.Context(), tl); err != nil {
		// the previous window is gone either way; the retry is scheduled
		h.log.Infow("timeline_fetch_failed", "timeline", tl, "err", err)
	}
	c.JSON(http.StatusOK, h.services.Snapshot())
}

// @Summary      Select view
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        body  body  viewRequest  true  "view"
// @Success      200  {object}  dashboard.Snapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/view [put]
func (h *Handler) setView(c *gin.Context) {
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "view_bind_failed", err)
		return
	}
	v, err := models.ParseView(req.View)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), "view_invalid", err)
		return
	}
	if err := h.services.SetView(c.Request.Context(), v); err != nil {
		h.log.Infow("view_refresh_failed", "view", v, "err", err)
	}
	c.JSON(http.StatusOK, h.services.Snapshot())
}

// @Summary      Current tank profile
// @Tags         settings
// @Produce      json
// @Success      200  {object}  models.TankProfile
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/tank-profile [get]
func (h *Handler) getTankProfile(c *gin.Context) {
	snap := h.services.Snapshot()
	if snap.Profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tank profile not loaded yet"})
		return
	}
	c.JSON(http.StatusOK, snap.Profile)
}

// @Summary      Save tank settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body  TankProfileRequest  true  "settings"
// @Success      200  {object}  models.TankProfile
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/tank-profile [put]
func (h *Handler) saveTankProfile(c *gin.Context) {
	var req TankProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "settings_bind_failed", err)
		return
	}
	p := models.TankProfile{
		VolumeLiters:          req.VolumeLiters,
		AppropriateWaterLevel: req.AppropriateWaterLevel,
		FishCounts: models.FishCounts{
			Small:      req.FishSmall,
			Medium:     req.FishMedium,
			Large:      req.FishLarge,
			ExtraLarge: req.FishXLarge,
		},
	}
	if err := h.services.SaveSettings(c.Request.Context(), p); err != nil {
		h.respondError(c, "settings_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, h.services.Snapshot().Profile)
}

// @Summary      Current alerts
// @Tags         dashboard
// @Produce      json
// @Success      200  {array}  models.Alert
// @Router       /api/v1/alerts [get]
func (h *Handler) getAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Alerts())
}

// @Summary      Predict ammonia for a feed quantity
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        body  body  predictionRequest  true  "quantity"
// @Success      200  {object}  models.Prediction
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/prediction [post]
func (h *Handler) predict(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "prediction_bind_failed", err)
		return
	}
	pred, err := h.services.Predict(c.Request.Context(), req.QuantityG)
	if err != nil {
		h.respondError(c, "prediction_failed", err)
		return
	}
	c.JSON(http.StatusOK, pred)
}
