package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portlink-backend/internal/model"
)

// linkResponse is the API form of a link.
type linkResponse struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	APortID   int64      `json:"a_port_id"`
	BPortID   int64      `json:"b_port_id"`
	ADeviceID int64      `json:"a_device_id"`
	BDeviceID int64      `json:"b_device_id"`
	Status    string     `json:"status"`
	Remark    string     `json:"remark"`
	Printed   bool       `json:"printed"`
	PrintedAt *time.Time `json:"printed_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func toLinkResponse(l model.Link) linkResponse {
	return linkResponse{
		ID:        l.ID,
		ProjectID: l.ProjectID,
		APortID:   l.APortID,
		BPortID:   l.BPortID,
		ADeviceID: l.ADeviceID,
		BDeviceID: l.BDeviceID,
		Status:    l.Status,
		Remark:    l.Remark,
		Printed:   l.Printed,
		PrintedAt: l.PrintedAt,
		CreatedAt: l.CreatedAt,
	}
}

// FindCandidates handles GET /api/projects/:pid/candidates?a=&b=.
func (h *Handler) FindCandidates(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	a, okA, errA := intQuery(c, "a")
	b, okB, errB := intQuery(c, "b")
	if errA != nil || errB != nil || !okA || !okB {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Query parameters 'a' and 'b' must be device IDs"})
		return
	}

	cands, err := h.store.FindCandidates(c.Request.Context(), projectID, a, b)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cands)
}

// ListLinks handles GET /api/projects/:pid/links.
func (h *Handler) ListLinks(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}

	links, err := h.store.ListLinks(c.Request.Context(), projectID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	resp := make([]linkResponse, 0, len(links))
	for _, l := range links {
		resp = append(resp, toLinkResponse(l))
	}
	c.JSON(http.StatusOK, resp)
}

type createLinkRequest struct {
	APortID int64 `json:"a_port_id" binding:"required"`
	BPortID int64 `json:"b_port_id" binding:"required"`
}

// CreateLink handles POST /api/projects/:pid/links.
func (h *Handler) CreateLink(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.store.CreateLink(c.Request.Context(), projectID, req.APortID, req.BPortID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// DeleteLink handles DELETE /api/projects/:pid/links/:lid.
func (h *Handler) DeleteLink(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	linkID, ok := idParam(c, "lid")
	if !ok {
		return
	}

	deleted, err := h.store.DeleteLink(c.Request.Context(), projectID, linkID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

type setPortActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetPortActive handles PATCH /api/projects/:pid/ports/:port_id/active.
func (h *Handler) SetPortActive(c *gin.Context) {
	projectID, ok := idParam(c, "pid")
	if !ok {
		return
	}
	portID, ok := idParam(c, "port_id")
	if !ok {
		return
	}
	var req setPortActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetPortActive(c.Request.Context(), projectID, portID, *req.IsActive); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
