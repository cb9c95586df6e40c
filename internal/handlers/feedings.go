package handlers

import (
	"net/http"

	"aquarium_dashboard/internal/feeding"

	"github.com/gin-gonic/gin"
)

type deleteOpenRequest struct {
	Timestamp string `json:"timestamp" binding:"required"`
}

type deleteConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) feedingTables(c *gin.Context, status int) {
	snap := h.services.Snapshot()
	c.JSON(status, gin.H{
		"pending":        snap.Pending,
		"history":        snap.History,
		"feed_defaults":  snap.Defaults,
		"pending_delete": snap.PendingDelete,
		"busy":           snap.Busy,
	})
}

// @Summary      Feeding tables
// @Tags         feeding
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "pending, history"
// @Router       /api/v1/feedings [get]
func (h *Handler) listFeedings(c *gin.Context) {
	h.feedingTables(c, http.StatusOK)
}

// @Summary      Schedule a feed
// @Tags         feeding
// @Accept       json
// @Produce      json
// @Param        body  body  feeding.CreateInput  true  "feed"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/feedings [post]
func (h *Handler) createFeeding(c *gin.Context) {
	var req feeding.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "feeding_bind_failed", err)
		return
	}
	if err := h.services.Create(c.Request.Context(), req); err != nil {
		h.respondError(c, "feeding_create_failed", err)
		return
	}
	h.feedingTables(c, http.StatusCreated)
}

// @Summary      Edit a pending feed
// @Tags         feeding
// @Accept       json
// @Produce      json
// @Param        body  body  feeding.EditInput  true  "feed"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/feedings [put]
func (h *Handler) editFeeding(c *gin.Context) {
	var req feeding.EditInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "feeding_bind_failed", err)
		return
	}
	if err := h.services.Edit(c.Request.Context(), req); err != nil {
		h.respondError(c, "feeding_edit_failed", err)
		return
	}
	h.feedingTables(c, http.StatusOK)
}

// @Summary      Open delete confirmation
// @Tags         feeding
// @Accept       json
// @Produce      json
// @Param        body  body  deleteOpenRequest  true  "event"
// @Success      200  {object}  map[string]string  "token"
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/feedings/delete [post]
func (h *Handler) openDelete(c *gin.Context) {
	var req deleteOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "feeding_bind_failed", err)
		return
	}
	token, err := h.services.OpenDelete(req.Timestamp)
	if err != nil {
		h.respondError(c, "feeding_delete_open_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "timestamp": req.Timestamp})
}

// @Summary      Confirm delete
// @Tags         feeding
// @Accept       json
// @Produce      json
// @Param        body  body  deleteConfirmRequest  true  "token"
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/feedings/delete/confirm [post]
func (h *Handler) confirmDelete(c *gin.Context) {
	var req deleteConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errInvalidBodyPref+err.Error(), "feeding_bind_failed", err)
		return
	}
	if err := h.services.CommitDelete(c.Request.Context(), req.Token); err != nil {
		h.respondError(c, "feeding_delete_failed", err)
		return
	}
	h.feedingTables(c, http.StatusOK)
}

// @Summary      Cancel delete confirmation
// @Tags         feeding
// @Success      204
// @Router       /api/v1/feedings/delete [delete]
func (h *Handler) cancelDelete(c *gin.Context) {
	h.services.CancelDelete()
	c.Status(http.StatusNoContent)
}
