package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createDeviceRequest struct {
	TemplateID int64  `json:"template_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	ModelCode  string `json:"model_code"`
}

// CreateDevice handles POST /api/projects/:pid/devices.
func (h *Handler) CreateDevice(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.store.CreateDevice(c.Request.Context(), projectID, req.TemplateID, req.Name, req.ModelCode)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListDevicePorts handles GET /api/projects/:pid/devices/:did/ports.
func (h *Handler) ListDevicePorts(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	deviceID, ok := idParam(c, "did")
	if !ok {
		return
	}

	ports, err := h.store.ListDevicePorts(c.Request.Context(), projectID, deviceID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ports)
}

type reconcileRequest struct {
	TemplateID int64 `json:"template_id" binding:"required"`
}

// ReconcilePorts handles POST /api/devices/:did/ports/reconcile.
func (h *Handler) ReconcilePorts(c *gin.Context) {
	deviceID, ok := idParam(c, "did")
	if !ok {
		return
	}
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.store.ReconcilePorts(c.Request.Context(), req.TemplateID, deviceID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

type createChildPortRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateChildPort handles POST /api/devices/:did/ports/:port_id/children.
func (h *Handler) CreateChildPort(c *gin.Context) {
	deviceID, ok := idParam(c, "did")
	if !ok {
		return
	}
	parentID, ok := idParam(c, "port_id")
	if !ok {
		return
	}
	var req createChildPortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.store.CreateChildPort(c.Request.Context(), deviceID, parentID, req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type switchTemplateRequest struct {
	TemplateID int64  `json:"template_id" binding:"required"`
	Name       string `json:"name"`
	ModelCode  string `json:"model_code"`
}

// SwitchTemplate handles PUT /api/devices/:did/template.
func (h *Handler) SwitchTemplate(c *gin.Context) {
	deviceID, ok := idParam(c, "did")
	if !ok {
		return
	}
	var req switchTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SwitchTemplate(c.Request.Context(), deviceID, req.TemplateID, req.Name, req.ModelCode); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteDevice handles DELETE /api/devices/:did.
func (h *Handler) DeleteDevice(c *gin.Context) {
	deviceID, ok := idParam(c, "did")
	if !ok {
		return
	}
	if err := h.store.DeleteDevice(c.Request.Context(), deviceID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
